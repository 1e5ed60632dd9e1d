package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"survey-game-service/internal/domain"
)

// Sink is where the worker writes decoded responses.
type Sink interface {
	Persist(ctx context.Context, response domain.Response) error
}

// Worker drains the response queue into a sink.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

func NewWorker(redisOpt asynq.RedisConnOpt, sink Sink, opts Options, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: opts.Concurrency,
		Queues:      map[string]int{defaultQueue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("task failed", "type", task.Type(), "error", err)
		}),
		Logger: NewLogger(logger),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePersistResponse, HandlePersist(sink, logger))

	return &Worker{server: server, mux: mux, logger: logger}
}

// Run blocks until ctx is cancelled, then drains in-flight tasks.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("starting response worker")
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.logger.Info("stopping response worker")
	w.server.Shutdown()
	return nil
}

// HandlePersist decodes a response task and writes it. A payload that cannot be decoded will
// never succeed, so it is not retried.
func HandlePersist(sink Sink, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var response domain.Response
		if err := json.Unmarshal(task.Payload(), &response); err != nil {
			return fmt.Errorf("unmarshal response payload: %v: %w", err, asynq.SkipRetry)
		}
		if err := sink.Persist(ctx, response); err != nil {
			return fmt.Errorf("persist response %s/%s: %w", response.SessionID, response.QuestionID, err)
		}
		logger.Debug("response persisted", "session", response.SessionID, "question", response.QuestionID)
		return nil
	}
}
