package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"survey-game-service/internal/domain"
	"survey-game-service/internal/survey"
)

const leaderboardKey = "survey:leaderboard"

// PlayerStore keeps players in Redis:
//
//	HSET survey:player:{id} displayName .. stats {json} updatedAt {rfc3339}
//	ZADD survey:leaderboard {points} {id}
type PlayerStore struct {
	client *redis.Client
}

func NewPlayerStore(client *redis.Client) *PlayerStore {
	return &PlayerStore{client: client}
}

func (s *PlayerStore) GetPlayer(ctx context.Context, respondentID string) (domain.Player, error) {
	fields, err := s.client.HGetAll(ctx, s.key(respondentID)).Result()
	if err != nil {
		return domain.Player{}, err
	}
	if len(fields) == 0 {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return decodePlayer(respondentID, fields)
}

func (s *PlayerStore) SavePlayer(ctx context.Context, player domain.Player) error {
	stats, err := json.Marshal(player.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key(player.RespondentID),
			"displayName", player.DisplayName,
			"stats", string(stats),
			"updatedAt", player.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(player.Stats.Points), Member: player.RespondentID})
		return nil
	})
	return err
}

// Top reads the highest scores from the sorted set and ranks them with the same tie-breaks as
// the in-memory store. Every member tied with the limit-th score is loaded before ranking.
func (s *PlayerStore) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	ids, err := s.topIDs(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.LeaderboardEntry{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	players := make([]domain.Player, 0, len(ids))
	for i, id := range ids {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		p, err := decodePlayer(id, fields)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return domain.RankPlayers(players, limit), nil
}

func (s *PlayerStore) topIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return s.client.ZRevRange(ctx, leaderboardKey, 0, -1).Result()
	}
	head, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(head) < limit {
		ids := make([]string, len(head))
		for i, z := range head {
			ids[i] = z.Member.(string)
		}
		return ids, nil
	}
	cutoff := head[len(head)-1].Score
	return s.client.ZRevRangeByScore(ctx, leaderboardKey, &redis.ZRangeBy{
		Min: strconv.FormatFloat(cutoff, 'f', -1, 64),
		Max: "+inf",
	}).Result()
}

func (s *PlayerStore) key(respondentID string) string {
	return "survey:player:" + respondentID
}

func decodePlayer(respondentID string, fields map[string]string) (domain.Player, error) {
	p := domain.Player{
		RespondentID: respondentID,
		DisplayName:  fields["displayName"],
		Stats:        survey.NewGameStats(),
	}
	if raw := fields["stats"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.Stats); err != nil {
			return domain.Player{}, fmt.Errorf("decode stats for %s: %w", respondentID, err)
		}
	}
	if ts := fields["updatedAt"]; ts != "" {
		if at, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			p.UpdatedAt = at
		}
	}
	return p, nil
}
