package domain

import "sort"

// RankPlayers orders players by points, then level, then whoever reached the score first, then
// name, and assigns 1-based ranks. limit <= 0 keeps everyone.
func RankPlayers(players []Player, limit int) []LeaderboardEntry {
	sorted := append([]Player(nil), players...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Stats.Points != b.Stats.Points {
			return a.Stats.Points > b.Stats.Points
		}
		if a.Stats.Level != b.Stats.Level {
			return a.Stats.Level > b.Stats.Level
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return a.DisplayName < b.DisplayName
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	entries := make([]LeaderboardEntry, 0, len(sorted))
	for i, p := range sorted {
		e := EntryFor(p)
		e.Rank = i + 1
		entries = append(entries, e)
	}
	return entries
}
