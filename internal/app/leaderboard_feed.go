package app

import (
	"sync"
	"time"

	"survey-game-service/internal/domain"
)

// leaderboardFeed fans leaderboard snapshots out to subscribers.
type leaderboardFeed struct {
	now         func() time.Time
	mu          sync.RWMutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func newLeaderboardFeed(now func() time.Time) *leaderboardFeed {
	return &leaderboardFeed{
		now:         now,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

func (f *leaderboardFeed) subscribe(initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	ch <- initial

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			if _, ok := f.subscribers[ch]; ok {
				delete(f.subscribers, ch)
				close(ch)
			}
			f.mu.Unlock()
		})
	}
	return ch, cancel
}

func (f *leaderboardFeed) hasSubscribers() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers) > 0
}

// publish never blocks: a subscriber that has fallen behind loses its oldest pending update.
func (f *leaderboardFeed) publish(lb domain.Leaderboard) {
	if lb.UpdatedAt.IsZero() {
		lb.UpdatedAt = f.now()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- lb:
			default:
			}
		}
	}
}
