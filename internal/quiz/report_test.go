package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildReportPassMark(t *testing.T) {
	quotas := []CategoryQuota{{Name: "Model the data", Quota: 10}}

	passed := BuildReport(Grading{Correct: 7, Total: 10, PerCategory: map[string]int{"Model the data": 7}}, quotas, 70)
	assert.True(t, passed.Passed)
	assert.InDelta(t, 70.0, passed.Percentage, 0.0001)
	assert.Equal(t, "You got 7 out of 10 questions correct (70.00%)!", passed.Summary)

	failed := BuildReport(Grading{Correct: 6, Total: 10, PerCategory: map[string]int{}}, quotas, 70)
	assert.False(t, failed.Passed)
}

func TestBuildReportEmptyGrading(t *testing.T) {
	report := BuildReport(Grading{PerCategory: map[string]int{}}, DefaultQuotas(), DefaultPassThreshold)

	assert.Zero(t, report.Percentage)
	assert.False(t, report.Passed)
	assert.Len(t, report.Categories, 4)
}

func TestBuildReportCategoryLines(t *testing.T) {
	grading := Grade([]Question{
		{Text: "q1", Category: "Visualization", Choices: []string{"a"}, CorrectAnswers: []string{"a"}},
		{Text: "q2", Category: "Visualization", Choices: []string{"a", "b"}, CorrectAnswers: []string{"b"}},
	}, map[string][]string{"q1": {"a"}, "q2": {"a"}})

	report := BuildReport(grading, []CategoryQuota{{Name: "Visualization", Quota: 6}}, 70)

	assert.Equal(t, CategoryBar{
		Category: "Visualization",
		Correct:  1,
		Drawn:    2,
		Quota:    6,
		Line:     "In the 'Visualization' category, you got 1 questions correct out of 2.",
	}, report.Categories[0])
	assert.Equal(t, 69.0, report.Gauge.Steps[0].To)
	assert.Equal(t, 70.0, report.Gauge.Steps[1].From)
}
