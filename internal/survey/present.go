package survey

import "sort"

// DefaultLocale is used when a prompt has no text in the requested locale.
const DefaultLocale = "en"

// View is what a presentation layer needs to render the current question.
type View struct {
	QuestionID      string       `json:"questionId"`
	Prompt          string       `json:"prompt"`
	Type            QuestionType `json:"type"`
	Options         []string     `json:"options"`
	SectionName     string       `json:"sectionName"`
	SectionNumber   int          `json:"sectionNumber"`
	SectionCount    int          `json:"sectionCount"`
	SectionPosition int          `json:"sectionPosition"`
	SectionTotal    int          `json:"sectionTotal"`
	OverallPosition int          `json:"overallPosition"`
	OverallTotal    int          `json:"overallTotal"`
	Answered        int          `json:"answered"`
	Previous        *Answer      `json:"previous,omitempty"`
}

// PromptText picks the prompt for locale, falling back to fallback and then to the first locale
// in sorted order.
func (q Question) PromptText(locale, fallback string) string {
	if s := q.Text[locale]; s != "" {
		return s
	}
	if s := q.Text[fallback]; s != "" {
		return s
	}
	keys := make([]string, 0, len(q.Text))
	for k := range q.Text {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := q.Text[k]; s != "" {
			return s
		}
	}
	return ""
}

// Present builds the view of the current question. Positions are 1-based.
// It reports false when there is no current question.
func Present(state ProgressState, sections []Section, locale, fallback string) (View, bool) {
	q, ok := CurrentQuestion(state, sections)
	if !ok {
		return View{}, false
	}
	if fallback == "" {
		fallback = DefaultLocale
	}

	overall := state.QuestionIndex + 1
	for i := 0; i < state.SectionIndex; i++ {
		overall += len(sections[i].Questions)
	}
	sec, _ := CurrentSection(state, sections)

	v := View{
		QuestionID:      q.ID,
		Prompt:          q.PromptText(locale, fallback),
		Type:            q.Type,
		Options:         append([]string(nil), q.Options...),
		SectionName:     sec.Name,
		SectionNumber:   state.SectionIndex + 1,
		SectionCount:    len(sections),
		SectionPosition: state.QuestionIndex + 1,
		SectionTotal:    len(sec.Questions),
		OverallPosition: overall,
		OverallTotal:    TotalQuestionCount(sections),
		Answered:        state.AnsweredCount(),
	}
	if prev, ok := state.Answer(q.ID); ok {
		v.Previous = &prev
	}
	return v, true
}
