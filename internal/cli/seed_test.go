package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"survey-game-service/internal/domain"
)

func TestReadQuestionFile(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.yaml")
	doc := filepath.Join(dir, "doc.yaml")
	empty := filepath.Join(dir, "empty.yaml")

	writeFile(t, list, `
- id: Q1
  category: Faculty
  type: likert
  text:
    en: Clear lectures?
    uz: Ma'ruzalar tushunarlimi?
- id: Q2
  category: Facilities
  type: multi
  options: [Gym, Library, Cafeteria]
`)
	writeFile(t, doc, `
questions:
  - id: Q3
    category: Faculty
    type: yesno
    options: "Yes|No"
`)
	writeFile(t, empty, "questions: []\n")

	records, err := readQuestionFile(list)
	if err != nil {
		t.Fatalf("read list: %v", err)
	}
	if len(records) != 2 || records[0].Text["uz"] == "" {
		t.Fatalf("unexpected records %+v", records)
	}
	if opts := records[1].Normalize().Options; len(opts) != 3 || opts[1] != "Library" {
		t.Fatalf("expected list options to normalize, got %v", opts)
	}

	records, err = readQuestionFile(doc)
	if err != nil {
		t.Fatalf("read doc: %v", err)
	}
	if len(records) != 1 || records[0].Normalize().Options[0] != "Yes" {
		t.Fatalf("unexpected records %+v", records)
	}

	if _, err := readQuestionFile(empty); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestSampleQuestionsFitDefaultOrder(t *testing.T) {
	for _, rec := range sampleQuestions() {
		q := rec.Normalize()
		if q.Type != "text" && len(q.Options) == 0 {
			t.Fatalf("sample %s has no options", q.ID)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
