package survey

import "strings"

// Quality is the coarse classification of an answer that sets its base reward.
type Quality string

const (
	QualityPoor      Quality = "poor"
	QualityBad       Quality = "bad"
	QualityGood      Quality = "good"
	QualityPerfect   Quality = "perfect"
	QualityExcellent Quality = "excellent"
)

const (
	experiencePerLevel = 100
	comboMilestone     = 5
	comboBonus         = 10
)

type tier struct {
	experience int
	coins      int
}

var (
	tierLow  = tier{experience: 5, coins: 1}
	tierMid  = tier{experience: 10, coins: 2}
	tierHigh = tier{experience: 20, coins: 3}
)

func tierFor(q Quality) tier {
	switch Quality(strings.ToLower(string(q))) {
	case QualityPoor, QualityBad:
		return tierLow
	case QualityPerfect, QualityExcellent:
		return tierHigh
	default:
		return tierMid
	}
}

// BaseExperience is the experience awarded for quality before any bonus.
func BaseExperience(q Quality) int {
	return tierFor(q).experience
}

// GameStats is a player's gamification state. It outlives a single survey session.
type GameStats struct {
	Level             int `json:"level"`
	Experience        int `json:"experience"`
	Points            int `json:"points"`
	Coins             int `json:"coins"`
	Streak            int `json:"streak"`
	Combo             int `json:"combo"`
	HighestCombo      int `json:"highestCombo"`
	QuestionsAnswered int `json:"questionsAnswered"`
}

// NewGameStats returns stats for a new player.
func NewGameStats() GameStats {
	return GameStats{Level: 1}
}

// Reward is the outcome of scoring one answer.
type Reward struct {
	ExpDelta     int  `json:"expDelta"`
	CoinDelta    int  `json:"coinDelta"`
	SpeedBonus   int  `json:"speedBonus"`
	ComboBonus   int  `json:"comboBonus"`
	LeveledUp    bool `json:"leveledUp"`
	LevelsGained int  `json:"levelsGained"`
}

// speedBonus stacks: under 3s +5, under 2s +5 more, under 1s +10 more.
// A non-positive elapsed time is treated as unmeasured and earns nothing.
func speedBonus(elapsedSeconds float64) (exp, coins int) {
	if elapsedSeconds <= 0 {
		return 0, 0
	}
	if elapsedSeconds < 3 {
		exp += 5
		coins++
	}
	if elapsedSeconds < 2 {
		exp += 5
	}
	if elapsedSeconds < 1 {
		exp += 10
		coins++
	}
	return exp, coins
}

// ScoreAnswer computes the reward for one answer and applies it to stats.
// Combo grows on every answer and each fifth consecutive answer earns a bonus.
// Experience carries into levels in steps of 100. Scoring never fails: unknown qualities score
// as good.
func ScoreAnswer(stats GameStats, elapsedSeconds float64, quality Quality) (GameStats, Reward) {
	if stats.Level < 1 {
		stats.Level = 1
	}
	if stats.Experience < 0 {
		stats.Experience = 0
	}

	t := tierFor(quality)
	speedExp, speedCoins := speedBonus(elapsedSeconds)

	stats.Combo++
	if stats.Combo > stats.HighestCombo {
		stats.HighestCombo = stats.Combo
	}
	bonus := 0
	if stats.Combo%comboMilestone == 0 {
		bonus = comboBonus
	}

	r := Reward{
		ExpDelta:   t.experience + speedExp + bonus,
		CoinDelta:  t.coins + speedCoins,
		SpeedBonus: speedExp,
		ComboBonus: bonus,
	}

	stats, r.LevelsGained = applyExperience(stats, r.ExpDelta)
	r.LeveledUp = r.LevelsGained > 0
	stats.Points += r.ExpDelta
	stats.Coins += r.CoinDelta
	stats.QuestionsAnswered++
	return stats, r
}

// applyExperience adds exp and carries every full 100 into a level.
func applyExperience(stats GameStats, exp int) (GameStats, int) {
	if exp < 0 {
		exp = 0
	}
	stats.Experience += exp
	gained := 0
	for stats.Experience >= experiencePerLevel {
		stats.Experience -= experiencePerLevel
		stats.Level++
		gained++
	}
	return stats, gained
}

// UpdateStreak extends the streak on a successful answer and resets it otherwise.
// Scoring never touches the streak; callers decide what counts as success.
func UpdateStreak(stats GameStats, correct bool) GameStats {
	if correct {
		stats.Streak++
	} else {
		stats.Streak = 0
	}
	return stats
}

// ResetCombo clears the running combo, keeping HighestCombo.
func ResetCombo(stats GameStats) GameStats {
	stats.Combo = 0
	return stats
}
