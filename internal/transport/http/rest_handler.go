package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"survey-game-service/internal/app"
)

// RESTHandler serves the read-only HTTP endpoints.
type RESTHandler struct {
	service *app.SurveyService
	logger  *slog.Logger
}

func NewRESTHandler(service *app.SurveyService, logger *slog.Logger) *RESTHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RESTHandler{service: service, logger: logger}
}

// Leaderboard handles GET /leaderboard?limit=N.
func (h *RESTHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	lb, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		h.logger.Error("leaderboard failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, lb)
}

func (h *RESTHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorPayload{Code: http.StatusText(status), Message: message})
}
