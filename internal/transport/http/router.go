package http

import (
	"log/slog"
	"net/http"
	"time"

	"survey-game-service/internal/app"
)

// NewRouter mounts the websocket and REST endpoints.
func NewRouter(service *app.SurveyService, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	ws := NewWSHandler(service, logger)
	rest := NewRESTHandler(service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rest.Healthz)
	mux.HandleFunc("GET /leaderboard", WithLogging(logger, rest.Leaderboard))
	mux.HandleFunc("/ws", WithLogging(logger, ws.ServeWS))
	return mux
}

// WithLogging logs each request once it completes. For websockets that is when the socket
// closes.
func WithLogging(logger *slog.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
