package survey

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// UncategorizedSection collects questions stored without a category.
const UncategorizedSection = "Others"

// DefaultSectionOrder is the canonical section order used when a deployment configures none.
func DefaultSectionOrder() []string {
	return []string{
		"Personal Background",
		"Orientation Week Team Building",
		"Admissions",
		"Faculty",
		"Education and Curriculum",
		"Academic Advisor",
		"Academic Affairs",
		"Study Abroad",
		"Student Services",
		"Residence",
		"Facilities",
		"IT Resources: SAIS, SMART, E-Mail & Attendance App",
		"Library",
		"Meals",
		"Counseling Services",
		"Student Belongingness",
		"Extra-curricular Activities",
		"Employment in Korea",
		"Frequency Mode",
		"At a Glance",
	}
}

// Section is a named, ordered group of questions. Sections are derived, never stored.
type Section struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Sequencer groups questions into sections following a configured canonical order.
type Sequencer struct {
	order          []string
	appendUnlisted bool
}

// SequencerOption customizes a Sequencer.
type SequencerOption func(*Sequencer)

// WithUnlistedSections keeps categories missing from the canonical order, appended after it
// in first-seen order. By default they are dropped.
func WithUnlistedSections() SequencerOption {
	return func(s *Sequencer) { s.appendUnlisted = true }
}

// NewSequencer returns a Sequencer for order. An empty order falls back to DefaultSectionOrder.
func NewSequencer(order []string, opts ...SequencerOption) *Sequencer {
	if len(order) == 0 {
		order = DefaultSectionOrder()
	}
	s := &Sequencer{order: append([]string(nil), order...)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Order returns the canonical section order.
func (s *Sequencer) Order() []string {
	return append([]string(nil), s.order...)
}

// Build partitions questions by category, orders each group by numeric id and emits the groups
// in canonical order. Empty input yields an empty result.
func (s *Sequencer) Build(questions []Question) []Section {
	if len(questions) == 0 {
		return nil
	}

	sorted := append([]Question(nil), questions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return numericID(sorted[i].ID) < numericID(sorted[j].ID)
	})

	grouped := make(map[string][]Question)
	var seen []string
	for _, q := range sorted {
		cat := q.Category
		if cat == "" {
			cat = UncategorizedSection
		}
		if _, ok := grouped[cat]; !ok {
			seen = append(seen, cat)
		}
		grouped[cat] = append(grouped[cat], q)
	}

	sections := make([]Section, 0, len(grouped))
	listed := make(map[string]bool, len(s.order))
	for _, name := range s.order {
		if listed[name] {
			continue
		}
		listed[name] = true
		if qs := grouped[name]; len(qs) > 0 {
			sections = append(sections, Section{Name: name, Questions: qs})
		}
	}
	if s.appendUnlisted {
		for _, name := range seen {
			if !listed[name] {
				sections = append(sections, Section{Name: name, Questions: grouped[name]})
			}
		}
	}
	return sections
}

var digits = regexp.MustCompile(`\d+`)

// numericID extracts the first run of digits in an id ("Q171" -> 171). Ids without digits sort last.
func numericID(id string) int64 {
	m := digits.FindString(id)
	if m == "" {
		return math.MaxInt64
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return math.MaxInt64
	}
	return n
}

// TotalQuestionCount sums the questions across sections.
func TotalQuestionCount(sections []Section) int {
	total := 0
	for _, s := range sections {
		total += len(s.Questions)
	}
	return total
}

// Direction is a navigation step.
type Direction int

const (
	Next Direction = iota
	Back
)

func (d Direction) String() string {
	if d == Back {
		return "back"
	}
	return "next"
}

// Advance moves the position one question forward or back across section boundaries.
// Next from the final question of the final section completes the survey; Back from the very
// first question is a no-op. Any move resets the question timer to now.
func Advance(state ProgressState, sections []Section, dir Direction, now time.Time) ProgressState {
	if state.Completed || !state.inRange(sections) {
		return state
	}
	next := state.clone()
	sec, q := state.SectionIndex, state.QuestionIndex

	switch dir {
	case Next:
		if q < len(sections[sec].Questions)-1 {
			next.QuestionIndex = q + 1
		} else if sec < len(sections)-1 {
			next.SectionIndex = sec + 1
			next.QuestionIndex = 0
		} else {
			next.Completed = true
			return next
		}
	case Back:
		if sec == 0 && q == 0 {
			return state
		}
		if q > 0 {
			next.QuestionIndex = q - 1
		} else {
			next.SectionIndex = sec - 1
			next.QuestionIndex = len(sections[sec-1].Questions) - 1
		}
	default:
		return state
	}
	next.QuestionStart = now
	return next
}

// JumpToSectionEnd marks every question from the current one up to, but not including, the
// section's last question as skipped and moves to that last question. Questions that already
// hold a response keep it. The current question is charged elapsedSeconds; the rest are charged 0.
// The second return value lists the ids newly marked as skipped; it is empty when already at the
// last question.
func JumpToSectionEnd(state ProgressState, sections []Section, elapsedSeconds float64, now time.Time) (ProgressState, []string) {
	if state.Completed || !state.inRange(sections) {
		return state, nil
	}
	qs := sections[state.SectionIndex].Questions
	last := len(qs) - 1
	if state.QuestionIndex >= last {
		return state, nil
	}

	next := state.clone()
	var skipped []string
	for i := state.QuestionIndex; i < last; i++ {
		id := qs[i].ID
		if _, ok := next.answers[id]; ok {
			continue
		}
		spent := 0.0
		if i == state.QuestionIndex {
			spent = clampElapsed(elapsedSeconds)
		}
		next.put(Answer{QuestionID: id, Skipped: true, TimeSpent: spent})
		skipped = append(skipped, id)
	}
	next.QuestionIndex = last
	next.QuestionStart = now
	return next, skipped
}
