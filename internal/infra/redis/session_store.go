package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"survey-game-service/internal/app"
	"survey-game-service/internal/domain"
)

// SessionStore keeps session snapshots in Redis so a respondent can resume on any instance.
// Every save refreshes the TTL; idle sessions simply expire.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, record app.SessionRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, s.key(record.ID), raw, s.ttl).Err()
}

func (s *SessionStore) Load(ctx context.Context, sessionID string) (app.SessionRecord, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if isMiss(err) {
		return app.SessionRecord{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return app.SessionRecord{}, err
	}
	var record app.SessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return app.SessionRecord{}, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return record, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "survey:session:" + sessionID
}
