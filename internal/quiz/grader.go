package quiz

import "strings"

type Outcome struct {
	Question Question `json:"question"`
	Selected []string `json:"selected"`
	Correct  bool     `json:"correct"`
}

type Grading struct {
	Correct     int            `json:"correct"`
	Total       int            `json:"total"`
	PerCategory map[string]int `json:"per_category"`
	Outcomes    []Outcome      `json:"outcomes"`
}

// Grade compares every recorded selection with the question's correct answers.
// A question scores only on exact set equality; there is no partial credit and
// an empty selection never scores. Inputs are not modified.
func Grade(sample []Question, answers map[string][]string) Grading {
	grading := Grading{
		Total:       len(sample),
		PerCategory: make(map[string]int),
		Outcomes:    make([]Outcome, 0, len(sample)),
	}

	for _, question := range sample {
		selected := append([]string{}, answers[question.Text]...)
		correct := sameAnswerSet(selected, question.CorrectAnswers)
		if correct {
			grading.Correct++
			grading.PerCategory[question.Category]++
		}
		grading.Outcomes = append(grading.Outcomes, Outcome{
			Question: question,
			Selected: selected,
			Correct:  correct,
		})
	}
	return grading
}

func sameAnswerSet(selected, correct []string) bool {
	want := answerSet(correct)
	got := answerSet(selected)
	if len(got) == 0 || len(got) != len(want) {
		return false
	}
	for answer := range want {
		if _, ok := got[answer]; !ok {
			return false
		}
	}
	return true
}

func answerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value != "" {
			set[value] = struct{}{}
		}
	}
	return set
}
