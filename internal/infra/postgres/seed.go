package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"survey-game-service/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:survey_questions"`

	ID        string                `bun:"id,pk"`
	Data      domain.QuestionRecord `bun:"data,type:jsonb"`
	UpdatedAt time.Time             `bun:"updated_at"`
}

// SeedQuestions upserts question documents by id. Records without an id are rejected.
func SeedQuestions(ctx context.Context, db *bun.DB, records []domain.QuestionRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([]questionRow, 0, len(records))
	for i, rec := range records {
		if rec.ID == "" {
			return 0, fmt.Errorf("question %d has no id", i)
		}
		rows = append(rows, questionRow{ID: rec.ID, Data: rec, UpdatedAt: now})
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert questions: %w", err)
	}
	return len(rows), nil
}
