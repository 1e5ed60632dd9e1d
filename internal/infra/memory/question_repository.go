package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"survey-game-service/internal/domain"
)

// QuestionLoader fetches every question record from a backing store (e.g., document DB).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.QuestionRecord, error)
}

const cacheKey = "questions"

// QuestionRepository caches the question set with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	questions []domain.QuestionRecord
	expiresAt time.Time
	loaded    bool
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) ListQuestions(ctx context.Context) ([]domain.QuestionRecord, error) {
	if qs, ok := r.cached(r.clock()); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(cacheKey, func() (interface{}, error) {
		now := r.clock()
		if qs, ok := r.cached(now); ok {
			return qs, nil
		}

		qs, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.questions = qs
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.loaded = true
		r.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionRecord), nil
}

// Invalidate drops the cached question set so the next read goes to the loader.
func (r *QuestionRepository) Invalidate() {
	r.mu.Lock()
	r.loaded = false
	r.questions = nil
	r.mu.Unlock()
}

func (r *QuestionRepository) cached(now time.Time) ([]domain.QuestionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.loaded && r.expiresAt.After(now) {
		return r.questions, true
	}
	return nil, false
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a simple loader backed by an in-memory slice (useful for tests/demos).
type StaticQuestionLoader struct {
	questions []domain.QuestionRecord
}

func NewStaticQuestionLoader(questions []domain.QuestionRecord) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context) ([]domain.QuestionRecord, error) {
	return append([]domain.QuestionRecord(nil), l.questions...), nil
}
