package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"survey-game-service/internal/domain"
	"survey-game-service/internal/infra/memory"
)

const questionsKey = "survey:questions"

// QuestionRepository caches the whole question set in Redis as one JSON blob and falls back to a
// loader on cache miss, so every instance shares a single warm copy.
type QuestionRepository struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) ListQuestions(ctx context.Context) ([]domain.QuestionRecord, error) {
	if qs, ok := r.cached(ctx); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(questionsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := r.cached(ctx); ok {
			return qs, nil
		}

		qs, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(qs)
		if err != nil {
			return nil, fmt.Errorf("encode questions: %w", err)
		}
		// a failed cache write only costs another load later
		_ = r.client.Set(ctx, questionsKey, raw, r.ttlWithJitter()).Err()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionRecord), nil
}

// Invalidate drops the shared cache, e.g. after reseeding the question store.
func (r *QuestionRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, questionsKey).Err()
}

func (r *QuestionRepository) cached(ctx context.Context) ([]domain.QuestionRecord, bool) {
	raw, err := r.client.Get(ctx, questionsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var qs []domain.QuestionRecord
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, false
	}
	return qs, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func isMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
