package survey

import (
	"fmt"
	"strings"
)

// QuestionType selects how a question is answered and which default options apply.
type QuestionType string

const (
	TypeLikert    QuestionType = "likert"
	TypeText      QuestionType = "text"
	TypeMulti     QuestionType = "multi"
	TypeYesNo     QuestionType = "yesno"
	TypeFrequency QuestionType = "frequency"
)

// ParseQuestionType maps a stored type name to a QuestionType. Empty or unknown names are likert.
func ParseQuestionType(raw string) QuestionType {
	switch QuestionType(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeText:
		return TypeText
	case TypeMulti:
		return TypeMulti
	case TypeYesNo:
		return TypeYesNo
	case TypeFrequency:
		return TypeFrequency
	default:
		return TypeLikert
	}
}

var defaultOptions = map[QuestionType][]string{
	TypeLikert:    {"Strongly Agree", "Agree", "Neutral", "Disagree", "Strongly Disagree"},
	TypeYesNo:     {"Yes", "No"},
	TypeFrequency: {"Always", "Often", "Sometimes", "Rarely", "Never"},
}

// DefaultOptions returns a copy of the fallback option set for a type, or nil if it has none.
func DefaultOptions(t QuestionType) []string {
	opts, ok := defaultOptions[t]
	if !ok {
		return nil
	}
	return append([]string(nil), opts...)
}

// Question is an immutable, normalized question record.
type Question struct {
	ID       string            `json:"id"`
	Category string            `json:"category"`
	Type     QuestionType      `json:"type"`
	Text     map[string]string `json:"text"`
	Options  []string          `json:"options"`
}

// NormalizeOptions converts the loosely typed options field of a stored question into a list.
// Arrays are taken element-wise, strings are split on "|" when present and on "," otherwise.
// Anything else is malformed and yields an empty list.
func NormalizeOptions(raw any) []string {
	opts, _ := normalizeOptions(raw)
	return opts
}

// normalizeOptions also reports whether raw had a recognized shape.
func normalizeOptions(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, true
	case []string:
		return trimAll(v), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch item.(type) {
			case string, float64, float32, int, int64, bool:
				out = append(out, fmt.Sprint(item))
			}
		}
		return trimAll(out), true
	case string:
		sep := ","
		if strings.Contains(v, "|") {
			sep = "|"
		}
		return trimAll(strings.Split(v, sep)), true
	default:
		return nil, false
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ResolveOptions applies type rules to normalized options: text questions never carry options,
// and other types fall back to their default set when the record has none.
func ResolveOptions(t QuestionType, opts []string) []string {
	if t == TypeText {
		return []string{}
	}
	if len(opts) > 0 {
		return opts
	}
	if def := DefaultOptions(t); def != nil {
		return def
	}
	return []string{}
}

// NewQuestion builds a normalized Question from raw repository fields.
// Malformed option data leaves the question without options instead of applying defaults.
func NewQuestion(id, category, typ string, text map[string]string, rawOptions any) Question {
	t := ParseQuestionType(typ)
	txt := make(map[string]string, len(text))
	for k, v := range text {
		txt[k] = v
	}
	opts, ok := normalizeOptions(rawOptions)
	if ok {
		opts = ResolveOptions(t, opts)
	} else {
		opts = []string{}
	}
	return Question{
		ID:       strings.TrimSpace(id),
		Category: strings.TrimSpace(category),
		Type:     t,
		Text:     txt,
		Options:  opts,
	}
}

// Accepts reports whether value is a valid answer for the question.
func (q Question) Accepts(value string) bool {
	if q.Type == TypeText {
		return strings.TrimSpace(value) != ""
	}
	for _, opt := range q.Options {
		if opt == value {
			return true
		}
	}
	return false
}
