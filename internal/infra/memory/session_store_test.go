package memory

import (
	"context"
	"errors"
	"testing"

	"survey-game-service/internal/app"
	"survey-game-service/internal/domain"
	"survey-game-service/internal/survey"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	record := app.SessionRecord{
		ID:           "s1",
		RespondentID: "u1",
		Progress: survey.Snapshot{
			QuestionIndex: 1,
			Answers:       []survey.Answer{{QuestionID: "Q1", Value: "Agree"}},
		},
	}
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	record.Progress.Answers[0].Value = "mutated"

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Progress.QuestionIndex != 1 || got.Progress.Answers[0].Value != "Agree" {
		t.Fatalf("unexpected record %+v", got)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session removed, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store")
	}
}
