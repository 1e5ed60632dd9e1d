package memory

import (
	"context"
	"sync"

	"survey-game-service/internal/domain"
)

// ResponseSink appends responses to an in-memory log.
type ResponseSink struct {
	mu        sync.Mutex
	responses []domain.Response
}

func NewResponseSink() *ResponseSink {
	return &ResponseSink{}
}

func (s *ResponseSink) Persist(_ context.Context, response domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, response)
	return nil
}

// Responses returns a copy of everything persisted so far, in write order.
func (s *ResponseSink) Responses() []domain.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Response(nil), s.responses...)
}
