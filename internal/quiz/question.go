package quiz

import (
	"errors"
	"fmt"
	"strings"
)

const DefaultSeparator = ","

type Kind string

const (
	KindSingle  Kind = "single"
	KindMulti   Kind = "multi"
	KindInvalid Kind = "invalid"
)

type Question struct {
	Text           string   `json:"question_text"`
	Category       string   `json:"category"`
	Choices        []string `json:"choices"`
	CorrectAnswers []string `json:"correct_answers"`
	ImageURLs      []string `json:"image_urls,omitempty"`
}

// Kind reports which input a question is collected with, decided by how many
// correct answers it declares.
func (q Question) Kind() Kind {
	switch {
	case len(q.CorrectAnswers) == 1:
		return KindSingle
	case len(q.CorrectAnswers) > 1:
		return KindMulti
	default:
		return KindInvalid
	}
}

func (q Question) hasChoice(option string) bool {
	for _, choice := range q.Choices {
		if choice == option {
			return true
		}
	}
	return false
}

// Record is a question as the store hands it over, with list fields still
// joined by the separator.
type Record struct {
	QuestionText string `json:"question_text"`
	Category     string `json:"category"`
	Choices      string `json:"choices"`
	Answers      string `json:"answers"`
	Images       string `json:"images,omitempty"`
}

// FieldNames maps record fields to document keys.
type FieldNames struct {
	QuestionText string `mapstructure:"question_text"`
	Category     string `mapstructure:"category"`
	Choices      string `mapstructure:"choices"`
	Answers      string `mapstructure:"answers"`
	Images       string `mapstructure:"images"`
}

func DefaultFieldNames() FieldNames {
	return FieldNames{
		QuestionText: "question_text",
		Category:     "Category",
		Choices:      "Choices",
		Answers:      "answer_text",
		Images:       "image",
	}
}

// RecordFromDocument extracts a record from a decoded document. Keys are matched
// exactly first and then case-insensitively.
func RecordFromDocument(doc map[string]any, fields FieldNames) Record {
	return Record{
		QuestionText: documentString(doc, fields.QuestionText),
		Category:     documentString(doc, fields.Category),
		Choices:      documentString(doc, fields.Choices),
		Answers:      documentString(doc, fields.Answers),
		Images:       documentString(doc, fields.Images),
	}
}

func documentString(doc map[string]any, key string) string {
	if key == "" {
		return ""
	}
	value, ok := doc[key]
	if !ok {
		for candidate, v := range doc {
			if strings.EqualFold(candidate, key) {
				value, ok = v, true
				break
			}
		}
	}
	if !ok || value == nil {
		return ""
	}

	switch typed := value.(type) {
	case string:
		return typed
	case []string:
		return strings.Join(typed, DefaultSeparator)
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, DefaultSeparator)
	default:
		return fmt.Sprint(typed)
	}
}

func ParseRecord(record Record, separator string) Question {
	if separator == "" {
		separator = DefaultSeparator
	}
	return Question{
		Text:           strings.TrimSpace(record.QuestionText),
		Category:       strings.TrimSpace(record.Category),
		Choices:        splitField(record.Choices, separator),
		CorrectAnswers: splitField(record.Answers, separator),
		ImageURLs:      splitField(record.Images, separator),
	}
}

func splitField(value, separator string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, separator)
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// first occurrence wins; answers and choices are sets
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

var (
	errEmptyText        = errors.New("question text is empty")
	errNoChoices        = errors.New("question has no choices")
	errNoCorrectAnswers = errors.New("question has no correct answers")
)

func ValidateQuestion(q Question) error {
	if q.Text == "" {
		return errEmptyText
	}
	if len(q.Choices) == 0 {
		return errNoChoices
	}
	if len(q.CorrectAnswers) == 0 {
		return errNoCorrectAnswers
	}
	for _, answer := range q.CorrectAnswers {
		if !q.hasChoice(answer) {
			return fmt.Errorf("correct answer %q is not one of the choices", answer)
		}
	}
	return nil
}

type Rejection struct {
	Text   string
	Reason string
}

// PreparePool parses and validates raw records. Invalid records and repeated
// question texts are dropped; the first occurrence of a text wins because
// answers are keyed by text.
func PreparePool(records []Record, separator string) ([]Question, []Rejection) {
	pool := make([]Question, 0, len(records))
	var rejected []Rejection
	seen := make(map[string]struct{}, len(records))

	for _, record := range records {
		question := ParseRecord(record, separator)
		if err := ValidateQuestion(question); err != nil {
			rejected = append(rejected, Rejection{Text: question.Text, Reason: err.Error()})
			continue
		}
		if _, dup := seen[question.Text]; dup {
			rejected = append(rejected, Rejection{Text: question.Text, Reason: "duplicate question text"})
			continue
		}
		seen[question.Text] = struct{}{}
		pool = append(pool, question)
	}
	return pool, rejected
}
