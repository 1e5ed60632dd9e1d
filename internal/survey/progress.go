package survey

import (
	"errors"
	"fmt"
	"time"
)

// ErrSnapshotMismatch is returned when a snapshot position does not fit the current sections.
var ErrSnapshotMismatch = errors.New("snapshot does not match survey sections")

// Answer is the recorded response for one question. Value is empty when Skipped is set.
type Answer struct {
	QuestionID string  `json:"questionId"`
	Value      string  `json:"value,omitempty"`
	Skipped    bool    `json:"skipped"`
	TimeSpent  float64 `json:"timeSpent"`
}

// ProgressState is the position and answer log of one survey session.
//
// Transitions never mutate their input; each returns a new state.
// Answers keep the order in which questions were first answered. Re-answering a question
// overwrites its value and time spent without moving it.
type ProgressState struct {
	SectionIndex  int
	QuestionIndex int
	Completed     bool
	SessionStart  time.Time
	QuestionStart time.Time

	answers map[string]Answer
	order   []string
}

// NewProgress starts a session at the first question of the first section.
func NewProgress(now time.Time) ProgressState {
	return ProgressState{
		SessionStart:  now,
		QuestionStart: now,
		answers:       make(map[string]Answer),
	}
}

func (p ProgressState) clone() ProgressState {
	out := p
	out.answers = make(map[string]Answer, len(p.answers))
	for k, v := range p.answers {
		out.answers[k] = v
	}
	out.order = append([]string(nil), p.order...)
	return out
}

func (p *ProgressState) put(a Answer) {
	if p.answers == nil {
		p.answers = make(map[string]Answer)
	}
	if _, ok := p.answers[a.QuestionID]; !ok {
		p.order = append(p.order, a.QuestionID)
	}
	p.answers[a.QuestionID] = a
}

func (p ProgressState) inRange(sections []Section) bool {
	if p.SectionIndex < 0 || p.SectionIndex >= len(sections) {
		return false
	}
	return p.QuestionIndex >= 0 && p.QuestionIndex < len(sections[p.SectionIndex].Questions)
}

// Answer returns the recorded answer for a question id.
func (p ProgressState) Answer(questionID string) (Answer, bool) {
	a, ok := p.answers[questionID]
	return a, ok
}

// Answers returns every recorded answer in first-answered order.
func (p ProgressState) Answers() []Answer {
	out := make([]Answer, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.answers[id])
	}
	return out
}

// AnsweredCount is the number of distinct questions answered or skipped.
func (p ProgressState) AnsweredCount() int {
	return len(p.order)
}

// Elapsed is the time in seconds since the current question was shown.
func (p ProgressState) Elapsed(now time.Time) float64 {
	if p.QuestionStart.IsZero() {
		return 0
	}
	return now.Sub(p.QuestionStart).Seconds()
}

// CurrentQuestion returns the question at the tracked position. It reports false when there is
// nothing to show: no sections, or the survey is complete.
func CurrentQuestion(state ProgressState, sections []Section) (Question, bool) {
	if state.Completed || !state.inRange(sections) {
		return Question{}, false
	}
	sec, _ := CurrentSection(state, sections)
	return sec.Questions[state.QuestionIndex], true
}

// CurrentSection returns the section at the tracked position. It reports false when the section
// index is out of range.
func CurrentSection(state ProgressState, sections []Section) (Section, bool) {
	if state.SectionIndex < 0 || state.SectionIndex >= len(sections) {
		return Section{}, false
	}
	return sections[state.SectionIndex], true
}

// RecordAnswer stores an answer for q. Last write wins; first-answered order is kept.
// Negative elapsed times are stored as 0.
func RecordAnswer(state ProgressState, q Question, value string, skipped bool, elapsedSeconds float64) ProgressState {
	next := state.clone()
	if skipped {
		value = ""
	}
	next.put(Answer{
		QuestionID: q.ID,
		Value:      value,
		Skipped:    skipped,
		TimeSpent:  clampElapsed(elapsedSeconds),
	})
	return next
}

// Skip records q as skipped without a value.
func Skip(state ProgressState, q Question, elapsedSeconds float64) ProgressState {
	return RecordAnswer(state, q, "", true, elapsedSeconds)
}

// IsComplete reports whether Next has been taken from the final question of the final section.
func IsComplete(state ProgressState) bool {
	return state.Completed
}

func clampElapsed(s float64) float64 {
	if s < 0 {
		return 0
	}
	return s
}

// Snapshot is the serializable form of a ProgressState.
type Snapshot struct {
	SectionIndex  int       `json:"sectionIndex"`
	QuestionIndex int       `json:"questionIndex"`
	Completed     bool      `json:"completed"`
	SessionStart  time.Time `json:"sessionStart"`
	QuestionStart time.Time `json:"questionStart"`
	Answers       []Answer  `json:"answers"`
}

// Snapshot captures the state for storage.
func (p ProgressState) Snapshot() Snapshot {
	return Snapshot{
		SectionIndex:  p.SectionIndex,
		QuestionIndex: p.QuestionIndex,
		Completed:     p.Completed,
		SessionStart:  p.SessionStart,
		QuestionStart: p.QuestionStart,
		Answers:       p.Answers(),
	}
}

// Restore rebuilds a ProgressState from a snapshot, checking that its position is valid for
// sections. A completed snapshot is accepted as long as sections is not empty.
func Restore(snap Snapshot, sections []Section) (ProgressState, error) {
	state := ProgressState{
		SectionIndex:  snap.SectionIndex,
		QuestionIndex: snap.QuestionIndex,
		Completed:     snap.Completed,
		SessionStart:  snap.SessionStart,
		QuestionStart: snap.QuestionStart,
		answers:       make(map[string]Answer, len(snap.Answers)),
	}
	for _, a := range snap.Answers {
		if a.QuestionID == "" {
			continue
		}
		state.put(a)
	}
	if !state.inRange(sections) {
		return ProgressState{}, fmt.Errorf("%w: position %d/%d", ErrSnapshotMismatch, snap.SectionIndex, snap.QuestionIndex)
	}
	return state, nil
}
