package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreAnswer_BaseByQuality(t *testing.T) {
	cases := []struct {
		quality Quality
		exp     int
		coins   int
	}{
		{QualityPoor, 5, 1},
		{QualityBad, 5, 1},
		{QualityGood, 10, 2},
		{QualityPerfect, 20, 3},
		{QualityExcellent, 20, 3},
		{Quality("PERFECT"), 20, 3},
		{Quality("weird"), 10, 2},
		{Quality(""), 10, 2},
	}
	for _, tc := range cases {
		t.Run(string(tc.quality), func(t *testing.T) {
			_, r := ScoreAnswer(NewGameStats(), 10, tc.quality)
			assert.Equal(t, tc.exp, r.ExpDelta)
			assert.Equal(t, tc.coins, r.CoinDelta)
			assert.Zero(t, r.SpeedBonus)
			assert.Zero(t, r.ComboBonus)
		})
	}
}

func TestScoreAnswer_SpeedThresholdsStack(t *testing.T) {
	for _, q := range []Quality{QualityPoor, QualityGood, QualityPerfect} {
		prev := -1
		for _, elapsed := range []float64{10, 3, 2.5, 1.5, 0.5} {
			_, r := ScoreAnswer(NewGameStats(), elapsed, q)
			require.GreaterOrEqual(t, r.ExpDelta, BaseExperience(q))
			if elapsed < 3 {
				require.Greater(t, r.ExpDelta, prev, "quality=%s elapsed=%v", q, elapsed)
			}
			prev = r.ExpDelta
		}
	}

	_, r := ScoreAnswer(NewGameStats(), 0.5, QualityGood)
	assert.Equal(t, 20, r.SpeedBonus)
	assert.Equal(t, 30, r.ExpDelta)
	assert.Equal(t, 4, r.CoinDelta)

	_, r = ScoreAnswer(NewGameStats(), 2.5, QualityGood)
	assert.Equal(t, 5, r.SpeedBonus)
	assert.Equal(t, 3, r.CoinDelta)
}

func TestScoreAnswer_UnmeasuredElapsedEarnsNoSpeedBonus(t *testing.T) {
	for _, elapsed := range []float64{0, -4} {
		_, r := ScoreAnswer(NewGameStats(), elapsed, QualityGood)
		assert.Equal(t, 10, r.ExpDelta)
		assert.Zero(t, r.SpeedBonus)
	}
}

func TestScoreAnswer_ComboMilestones(t *testing.T) {
	stats := NewGameStats()
	var r Reward
	for i := 1; i <= 15; i++ {
		stats, r = ScoreAnswer(stats, 10, QualityGood)
		want := 10
		if i%5 == 0 {
			want = 20
		}
		require.Equal(t, want, r.ExpDelta, "answer %d", i)
	}
	assert.Equal(t, 15, stats.Combo)
	assert.Equal(t, 15, stats.HighestCombo)
	assert.Equal(t, 15, stats.QuestionsAnswered)
}

func TestApplyExperience_CarriesMultipleLevels(t *testing.T) {
	stats := GameStats{Level: 3, Experience: 95}
	stats, gained := applyExperience(stats, 130)
	assert.Equal(t, 25, stats.Experience)
	assert.Equal(t, 5, stats.Level)
	assert.Equal(t, 2, gained)
}

func TestScoreAnswer_LevelUp(t *testing.T) {
	stats := GameStats{Level: 1, Experience: 95}
	stats, r := ScoreAnswer(stats, 10, QualityGood)
	assert.True(t, r.LeveledUp)
	assert.Equal(t, 1, r.LevelsGained)
	assert.Equal(t, 2, stats.Level)
	assert.Equal(t, 5, stats.Experience)

	stats, r = ScoreAnswer(stats, 10, QualityPoor)
	assert.False(t, r.LeveledUp)
	assert.Equal(t, 10, stats.Experience)
}

func TestScoreAnswer_CoinsAndPointsNeverDecrease(t *testing.T) {
	stats := NewGameStats()
	for i, q := range []Quality{QualityPoor, QualityPerfect, "x", QualityBad} {
		before := stats
		stats, _ = ScoreAnswer(stats, float64(i), q)
		assert.GreaterOrEqual(t, stats.Coins, before.Coins)
		assert.Greater(t, stats.Points, before.Points)
	}
}

func TestScoreAnswer_DoesNotTouchStreak(t *testing.T) {
	stats := GameStats{Level: 1, Streak: 4}
	stats, _ = ScoreAnswer(stats, 1, QualityPoor)
	assert.Equal(t, 4, stats.Streak)
}

func TestUpdateStreak(t *testing.T) {
	stats := NewGameStats()
	stats = UpdateStreak(stats, true)
	stats = UpdateStreak(stats, true)
	assert.Equal(t, 2, stats.Streak)
	stats = UpdateStreak(stats, false)
	assert.Zero(t, stats.Streak)
}

func TestResetCombo_KeepsHighest(t *testing.T) {
	stats := GameStats{Level: 1, Combo: 7, HighestCombo: 7}
	stats = ResetCombo(stats)
	assert.Zero(t, stats.Combo)
	assert.Equal(t, 7, stats.HighestCombo)
}
