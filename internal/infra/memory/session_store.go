package memory

import (
	"context"
	"sync"

	"survey-game-service/internal/app"
	"survey-game-service/internal/domain"
	"survey-game-service/internal/survey"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]app.SessionRecord
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]app.SessionRecord),
	}
}

func (s *SessionStore) Save(_ context.Context, record app.SessionRecord) error {
	record.Progress.Answers = append([]survey.Answer(nil), record.Progress.Answers...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[record.ID] = record
	return nil
}

func (s *SessionStore) Load(_ context.Context, sessionID string) (app.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.sessions[sessionID]
	if !ok {
		return app.SessionRecord{}, domain.ErrSessionNotFound
	}
	return record, nil
}

func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Len reports how many sessions are held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
