package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"survey-game-service/internal/domain"
)

// QuestionLoader loads question JSONB documents from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

// LoadQuestions returns every stored question. A document that does not decode is reported
// rather than skipped so a bad seed is noticed.
func (l *QuestionLoader) LoadQuestions(ctx context.Context) ([]domain.QuestionRecord, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, data FROM survey_questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.QuestionRecord
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var rec domain.QuestionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal question %s: %w", id, err)
		}
		if rec.ID == "" {
			rec.ID = id
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return out, nil
}
