package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"survey-game-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleQuestions())}
	repo := NewQuestionRepository(loader, time.Minute)

	qs, err := repo.ListQuestions(context.Background())
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.ListQuestions(context.Background()); err != nil {
		t.Fatalf("list questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}

	repo.Invalidate()
	if _, err := repo.ListQuestions(context.Background()); err != nil {
		t.Fatalf("list questions 3: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestQuestionRepositoryExpires(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleQuestions())}
	repo := NewQuestionRepository(loader, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.ListQuestions(context.Background())
	now = now.Add(2 * time.Minute)
	_, _ = repo.ListQuestions(context.Background())
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestQuestionRepositoryDoesNotCacheErrors(t *testing.T) {
	loader := &failingLoader{err: errors.New("store down")}
	repo := NewQuestionRepository(loader, time.Minute)

	if _, err := repo.ListQuestions(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	loader.err = nil
	if _, err := repo.ListQuestions(context.Background()); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context) ([]domain.QuestionRecord, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx)
}

type failingLoader struct {
	err error
}

func (l *failingLoader) LoadQuestions(context.Context) ([]domain.QuestionRecord, error) {
	if l.err != nil {
		return nil, l.err
	}
	return sampleQuestions(), nil
}

func sampleQuestions() []domain.QuestionRecord {
	return []domain.QuestionRecord{
		{ID: "Q1", Category: "Personal Background", Type: "text", Text: map[string]string{"en": "Your name?"}},
		{ID: "Q2", Category: "Faculty", Type: "likert", Text: map[string]string{"en": "Faculty are helpful."}},
	}
}
