package quiz

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseRecordSplitsAndTrims(t *testing.T) {
	question := ParseRecord(Record{
		QuestionText: "  Which visual shows a trend?  ",
		Category:     " Visualization ",
		Choices:      "Line chart, Pie chart ,, Card",
		Answers:      "Line chart",
		Images:       "",
	}, ",")

	if question.Text != "Which visual shows a trend?" {
		t.Fatalf("text not trimmed, got %q", question.Text)
	}
	if question.Category != "Visualization" {
		t.Fatalf("category not trimmed, got %q", question.Category)
	}
	if len(question.Choices) != 3 || question.Choices[1] != "Pie chart" {
		t.Fatalf("unexpected choices: %#v", question.Choices)
	}
	if question.Kind() != KindSingle {
		t.Fatalf("expected single kind, got %s", question.Kind())
	}
	if question.ImageURLs != nil {
		t.Fatalf("expected no images, got %#v", question.ImageURLs)
	}

	repeated := ParseRecord(Record{
		QuestionText: "Pick one",
		Choices:      "A,B,C,B",
		Answers:      "B, B",
	}, ",")
	if len(repeated.CorrectAnswers) != 1 || repeated.Kind() != KindSingle {
		t.Fatalf("repeated answers should collapse to a single answer, got %#v (%s)", repeated.CorrectAnswers, repeated.Kind())
	}
	if strings.Join(repeated.Choices, "|") != "A|B|C" {
		t.Fatalf("repeated choices should collapse in first-seen order, got %#v", repeated.Choices)
	}
}

func TestParseRecordCustomSeparator(t *testing.T) {
	question := ParseRecord(Record{
		QuestionText: "Pick two",
		Choices:      "A, with comma;B;C",
		Answers:      "A, with comma;C",
	}, ";")

	if len(question.Choices) != 3 || question.Choices[0] != "A, with comma" {
		t.Fatalf("unexpected choices: %#v", question.Choices)
	}
	if question.Kind() != KindMulti {
		t.Fatalf("expected multi kind, got %s", question.Kind())
	}
}

func TestValidateQuestion(t *testing.T) {
	cases := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{name: "valid", q: Question{Text: "q", Choices: []string{"a", "b"}, CorrectAnswers: []string{"a"}}},
		{name: "empty text", q: Question{Choices: []string{"a"}, CorrectAnswers: []string{"a"}}, wantErr: true},
		{name: "no choices", q: Question{Text: "q", CorrectAnswers: []string{"a"}}, wantErr: true},
		{name: "no answers", q: Question{Text: "q", Choices: []string{"a"}}, wantErr: true},
		{name: "answer outside choices", q: Question{Text: "q", Choices: []string{"a"}, CorrectAnswers: []string{"b"}}, wantErr: true},
	}

	for _, tc := range cases {
		err := ValidateQuestion(tc.q)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: expected error=%v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestPreparePoolDropsInvalidAndDuplicates(t *testing.T) {
	records := []Record{
		{QuestionText: "Q1", Category: "Model the data", Choices: "a,b", Answers: "a"},
		{QuestionText: "Q1", Category: "Visualization", Choices: "c,d", Answers: "d"},
		{QuestionText: "Q2", Category: "Model the data", Choices: "a,b", Answers: "z"},
		{QuestionText: "", Category: "Model the data", Choices: "a,b", Answers: "a"},
	}

	pool, rejected := PreparePool(records, ",")
	if len(pool) != 1 {
		t.Fatalf("expected 1 question in pool, got %d", len(pool))
	}
	if pool[0].Category != "Model the data" {
		t.Fatalf("expected first occurrence to win, got %q", pool[0].Category)
	}
	if len(rejected) != 3 {
		t.Fatalf("expected 3 rejections, got %d", len(rejected))
	}
}

func TestRecordFromDocumentFallsBackToCaseInsensitiveKeys(t *testing.T) {
	doc := map[string]any{
		"question_text": "What is DAX?",
		"category":      "Model the data",
		"choices":       []any{"A language", "A visual"},
		"answer_text":   "A language",
	}

	record := RecordFromDocument(doc, DefaultFieldNames())
	if record.Category != "Model the data" {
		t.Fatalf("expected lowercase category key to match, got %q", record.Category)
	}
	if record.Choices != "A language,A visual" {
		t.Fatalf("expected array choices joined, got %q", record.Choices)
	}
	if record.Answers != "A language" {
		t.Fatalf("unexpected answers %q", record.Answers)
	}
}

func TestLoadQuestionFileAndMemoryStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	content := `[
		{"question_text": "Q1", "Category": "PBI Service", "Choices": "a,b", "answer_text": "a"},
		{"question_text": "Q2", "Category": "Visualization", "Choices": "a,b", "answer_text": "a,b"},
		{"question_text": "Q3", "Category": "PBI Service", "Choices": "a,b", "answer_text": "b"}
	]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	records, err := LoadQuestionFile(path, DefaultFieldNames())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	store := NewMemoryStore(records)
	service, err := store.FetchQuestions(context.Background(), "PBI Service", 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(service) != 2 {
		t.Fatalf("expected 2 PBI Service records, got %d", len(service))
	}

	limited, err := store.FetchQuestions(context.Background(), "", 1)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestLoadQuestionFileRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte(`{"not": "an array"`), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadQuestionFile(path, DefaultFieldNames()); err == nil {
		t.Fatalf("expected decode error")
	}
}
