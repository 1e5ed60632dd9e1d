package memory

import (
	"context"
	"sync"

	"survey-game-service/internal/domain"
)

// PlayerStore keeps players in memory and ranks them on demand.
type PlayerStore struct {
	mu      sync.RWMutex
	players map[string]domain.Player
}

func NewPlayerStore() *PlayerStore {
	return &PlayerStore{players: make(map[string]domain.Player)}
}

func (s *PlayerStore) GetPlayer(_ context.Context, respondentID string) (domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[respondentID]
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return p, nil
}

func (s *PlayerStore) SavePlayer(_ context.Context, player domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.RespondentID] = player
	return nil
}

func (s *PlayerStore) Top(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	players := make([]domain.Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p)
	}
	s.mu.RUnlock()
	return domain.RankPlayers(players, limit), nil
}
