package domain

import (
	"time"

	"survey-game-service/internal/survey"
)

// QuestionRecord is a question as held by the question store. Options may be a list or a
// delimited string, so it stays untyped until normalized.
type QuestionRecord struct {
	ID       string            `json:"id" yaml:"id"`
	Category string            `json:"category" yaml:"category"`
	Type     string            `json:"type" yaml:"type"`
	Text     map[string]string `json:"text" yaml:"text"`
	Options  any               `json:"options,omitempty" yaml:"options,omitempty"`
}

// Normalize converts the record into an engine question.
func (r QuestionRecord) Normalize() survey.Question {
	return survey.NewQuestion(r.ID, r.Category, r.Type, r.Text, r.Options)
}

// NormalizeAll converts records in order.
func NormalizeAll(records []QuestionRecord) []survey.Question {
	out := make([]survey.Question, 0, len(records))
	for _, r := range records {
		out = append(out, r.Normalize())
	}
	return out
}

// Response is one persisted answer event.
type Response struct {
	SessionID      string    `json:"sessionId"`
	RespondentID   string    `json:"respondentId"`
	QuestionID     string    `json:"questionId"`
	Section        string    `json:"section"`
	Answer         string    `json:"answer,omitempty"`
	Skipped        bool      `json:"skipped"`
	ElapsedSeconds float64   `json:"elapsedSeconds"`
	Locale         string    `json:"locale"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// Player is a respondent and their accumulated game stats.
type Player struct {
	RespondentID string           `json:"respondentId"`
	DisplayName  string           `json:"displayName"`
	Stats        survey.GameStats `json:"stats"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// LeaderboardEntry is a snapshot-friendly view of a player.
type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	RespondentID string `json:"respondentId"`
	DisplayName  string `json:"displayName"`
	Level        int    `json:"level"`
	Points       int    `json:"points"`
}

// Leaderboard is the ordered ranking of players by points.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// EntryFor builds an unranked leaderboard entry for p.
func EntryFor(p Player) LeaderboardEntry {
	return LeaderboardEntry{
		RespondentID: p.RespondentID,
		DisplayName:  p.DisplayName,
		Level:        p.Stats.Level,
		Points:       p.Stats.Points,
	}
}
