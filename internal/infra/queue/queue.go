package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"survey-game-service/internal/domain"
)

const (
	// TypePersistResponse is the task that writes one answer event to the response store.
	TypePersistResponse = "response:persist"

	defaultQueue = "responses"
)

// Options tune enqueueing and the worker.
type Options struct {
	Concurrency int
	MaxRetry    int
	Timeout     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 10
	}
	if o.MaxRetry <= 0 {
		o.MaxRetry = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// RedisOpt builds the asynq connection options from the service's Redis settings.
func RedisOpt(addr, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: addr, Password: password, DB: db}
}

// ResponseQueue is a response sink that hands answer events to a background worker instead of
// writing them inline.
type ResponseQueue struct {
	client *asynq.Client
	opts   Options
	logger *slog.Logger
}

func NewResponseQueue(redisOpt asynq.RedisConnOpt, opts Options, logger *slog.Logger) *ResponseQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseQueue{
		client: asynq.NewClient(redisOpt),
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

func (q *ResponseQueue) Persist(ctx context.Context, response domain.Response) error {
	task, err := NewPersistTask(response)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue(defaultQueue),
		asynq.MaxRetry(q.opts.MaxRetry),
		asynq.Timeout(q.opts.Timeout),
	)
	if err != nil {
		return fmt.Errorf("enqueue response: %w", err)
	}
	q.logger.Debug("response queued", "task", info.ID, "session", response.SessionID, "question", response.QuestionID)
	return nil
}

func (q *ResponseQueue) Close() error {
	return q.client.Close()
}

// NewPersistTask encodes a response as a task payload.
func NewPersistTask(response domain.Response) (*asynq.Task, error) {
	payload, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("marshal response payload: %w", err)
	}
	return asynq.NewTask(TypePersistResponse, payload), nil
}
