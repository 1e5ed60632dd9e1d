package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"survey-game-service/internal/app"
	"survey-game-service/internal/domain"
	"survey-game-service/internal/survey"
)

type WSHandler struct {
	service  *app.SurveyService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SurveyService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Value   string         `json:"value"`
	Quality survey.Quality `json:"quality"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs one survey session over the socket. A sessionId query
// parameter resumes a stored session instead of starting a new one. Closing the socket leaves
// the session stored so it can be resumed later.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	respondentID := query.Get("respondentId")
	displayName := query.Get("name")
	locale := query.Get("locale")
	sessionID := query.Get("sessionId")
	if respondentID == "" && sessionID == "" {
		http.Error(w, "missing respondentId or sessionId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	var view app.SessionView
	if sessionID != "" {
		view, err = h.service.Resume(ctx, sessionID)
	} else {
		view, err = h.service.Start(ctx, respondentID, displayName, locale)
	}
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: toErrorPayload(err)})
		return
	}
	if view.Empty {
		_ = conn.WriteJSON(outboundMessage[app.SessionView]{Type: "state", Payload: view})
		return
	}
	sessionID = view.SessionID
	log := h.logger.With("session", sessionID)

	updates, cancel, err := h.service.Subscribe(ctx)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: toErrorPayload(err)})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not allow concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	deliver(send, writerDone, outboundMessage[any]{Type: "state", Payload: view})

read:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		for _, msg := range h.dispatch(ctx, sessionID, inbound) {
			if !deliver(send, writerDone, msg) {
				log.Debug("ws writer stopped, closing")
				break read
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// deliver queues msg for the writer. It reports false once the writer has stopped.
func deliver(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

// dispatch runs one inbound action and returns the messages to send back.
func (h *WSHandler) dispatch(ctx context.Context, sessionID string, inbound inboundMessage) []outboundMessage[any] {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return []outboundMessage[any]{errorMessage(errorPayload{Code: "bad_request", Message: "invalid answer payload"})}
		}
		out, err := h.service.Answer(ctx, sessionID, payload.Value, payload.Quality)
		return outcomeMessages(out, err)
	case "skip":
		out, err := h.service.Skip(ctx, sessionID)
		return outcomeMessages(out, err)
	case "jump":
		out, err := h.service.Jump(ctx, sessionID)
		return outcomeMessages(out, err)
	case "back":
		view, err := h.service.Back(ctx, sessionID)
		return viewMessages(view, err)
	case "current":
		view, err := h.service.Current(ctx, sessionID)
		return viewMessages(view, err)
	default:
		return []outboundMessage[any]{errorMessage(errorPayload{Code: "bad_request", Message: "unsupported message type"})}
	}
}

func outcomeMessages(out app.AnswerOutcome, err error) []outboundMessage[any] {
	if err != nil {
		return []outboundMessage[any]{errorMessage(toErrorPayload(err))}
	}
	msgs := []outboundMessage[any]{{Type: "reward", Payload: out}}
	if out.Completed {
		msgs = append(msgs, outboundMessage[any]{Type: "completed", Payload: out.SessionView})
	}
	return msgs
}

func viewMessages(view app.SessionView, err error) []outboundMessage[any] {
	if err != nil {
		return []outboundMessage[any]{errorMessage(toErrorPayload(err))}
	}
	return []outboundMessage[any]{{Type: "state", Payload: view}}
}

func errorMessage(p errorPayload) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: p}
}

func toErrorPayload(err error) errorPayload {
	code := "internal"
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		code = "not_found"
	case errors.Is(err, domain.ErrSessionCompleted):
		code = "completed"
	case errors.Is(err, domain.ErrInvalidAnswer):
		code = "invalid_answer"
	case errors.Is(err, domain.ErrNoCurrentQuestion):
		code = "no_question"
	case errors.Is(err, domain.ErrSnapshotMismatch):
		code = "stale_session"
	}
	return errorPayload{Code: code, Message: err.Error()}
}
