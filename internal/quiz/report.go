package quiz

import "fmt"

const DefaultPassThreshold = 70.0

type GaugeStep struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Color string  `json:"color"`
}

type Gauge struct {
	Title string      `json:"title"`
	Value float64     `json:"value"`
	Min   float64     `json:"min"`
	Max   float64     `json:"max"`
	Steps []GaugeStep `json:"steps"`
}

type CategoryBar struct {
	Category string `json:"category"`
	Correct  int    `json:"correct"`
	Drawn    int    `json:"drawn"`
	Quota    int    `json:"quota"`
	Line     string `json:"line"`
}

type Report struct {
	Correct    int           `json:"correct"`
	Total      int           `json:"total"`
	Percentage float64       `json:"percentage"`
	Threshold  float64       `json:"threshold"`
	Passed     bool          `json:"passed"`
	Forced     bool          `json:"forced"`
	Summary    string        `json:"summary"`
	Verdict    string        `json:"verdict"`
	Gauge      Gauge         `json:"gauge"`
	Categories []CategoryBar `json:"categories"`
	Outcomes   []Outcome     `json:"outcomes"`
}

// BuildReport turns a grading into the numbers the result page draws.
func BuildReport(grading Grading, quotas []CategoryQuota, threshold float64) Report {
	percentage := 0.0
	if grading.Total > 0 {
		percentage = float64(grading.Correct) / float64(grading.Total) * 100
	}
	passed := percentage >= threshold

	verdict := fmt.Sprintf("Below the %.0f%% pass mark. Keep practicing.", threshold)
	if passed {
		verdict = fmt.Sprintf("Passed: at or above the %.0f%% pass mark.", threshold)
	}

	drawn := make(map[string]int, len(quotas))
	for _, outcome := range grading.Outcomes {
		drawn[outcome.Question.Category]++
	}

	categories := make([]CategoryBar, 0, len(quotas))
	for _, quota := range quotas {
		correct := grading.PerCategory[quota.Name]
		categories = append(categories, CategoryBar{
			Category: quota.Name,
			Correct:  correct,
			Drawn:    drawn[quota.Name],
			Quota:    quota.Quota,
			Line: fmt.Sprintf("In the '%s' category, you got %d questions correct out of %d.",
				quota.Name, correct, drawn[quota.Name]),
		})
	}

	return Report{
		Correct:    grading.Correct,
		Total:      grading.Total,
		Percentage: percentage,
		Threshold:  threshold,
		Passed:     passed,
		Summary: fmt.Sprintf("You got %d out of %d questions correct (%.2f%%)!",
			grading.Correct, grading.Total, percentage),
		Verdict: verdict,
		Gauge: Gauge{
			Title: "Correct Answers Percentage",
			Value: percentage,
			Min:   0,
			Max:   100,
			Steps: []GaugeStep{
				{From: 0, To: threshold - 1, Color: "red"},
				{From: threshold, To: 100, Color: "lightgreen"},
			},
		},
		Categories: categories,
		Outcomes:   grading.Outcomes,
	}
}
