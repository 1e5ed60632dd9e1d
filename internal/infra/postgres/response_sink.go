package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"survey-game-service/internal/domain"
)

type responseRow struct {
	bun.BaseModel `bun:"table:survey_responses"`

	ID             int64     `bun:"id,pk,autoincrement"`
	SessionID      string    `bun:"session_id"`
	RespondentID   string    `bun:"respondent_id"`
	QuestionID     string    `bun:"question_id"`
	Section        string    `bun:"section"`
	Answer         string    `bun:"answer"`
	Skipped        bool      `bun:"skipped"`
	ElapsedSeconds float64   `bun:"elapsed_seconds"`
	Locale         string    `bun:"locale"`
	AnsweredAt     time.Time `bun:"answered_at"`
}

func rowFromResponse(r domain.Response) responseRow {
	return responseRow{
		SessionID:      r.SessionID,
		RespondentID:   r.RespondentID,
		QuestionID:     r.QuestionID,
		Section:        r.Section,
		Answer:         r.Answer,
		Skipped:        r.Skipped,
		ElapsedSeconds: r.ElapsedSeconds,
		Locale:         r.Locale,
		AnsweredAt:     r.AnsweredAt,
	}
}

func (row responseRow) response() domain.Response {
	return domain.Response{
		SessionID:      row.SessionID,
		RespondentID:   row.RespondentID,
		QuestionID:     row.QuestionID,
		Section:        row.Section,
		Answer:         row.Answer,
		Skipped:        row.Skipped,
		ElapsedSeconds: row.ElapsedSeconds,
		Locale:         row.Locale,
		AnsweredAt:     row.AnsweredAt,
	}
}

// ResponseSink appends answer events to survey_responses. Re-answers are new rows; the latest
// row per (session, question) is the effective answer.
type ResponseSink struct {
	db *bun.DB
}

func NewResponseSink(db *bun.DB) *ResponseSink {
	return &ResponseSink{db: db}
}

func (s *ResponseSink) Persist(ctx context.Context, response domain.Response) error {
	row := rowFromResponse(response)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

// SessionResponses lists the rows written for one session in write order.
func (s *ResponseSink) SessionResponses(ctx context.Context, sessionID string) ([]domain.Response, error) {
	var rows []responseRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	out := make([]domain.Response, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.response())
	}
	return out, nil
}
