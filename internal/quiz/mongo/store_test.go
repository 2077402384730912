package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"

	"cert-quiz/internal/quiz"
)

func TestPlainDocumentUnwrapsArrays(t *testing.T) {
	doc := bson.M{
		"question_text": "Which visuals show KPIs?",
		"category":      "Visualization",
		"Choices":       bson.A{"Card", "KPI", "Map"},
		"answer_text":   bson.A{"Card", "KPI"},
		"_id":           bson.NewObjectID(),
	}

	record := quiz.RecordFromDocument(plainDocument(doc), quiz.DefaultFieldNames())

	assert.Equal(t, quiz.Record{
		QuestionText: "Which visuals show KPIs?",
		Category:     "Visualization",
		Choices:      "Card,KPI,Map",
		Answers:      "Card,KPI",
	}, record)
}

func TestDocumentFromRecordUsesConfiguredKeys(t *testing.T) {
	fields := quiz.DefaultFieldNames()
	fields.Category = "category"

	doc := documentFromRecord(quiz.Record{
		QuestionText: "q",
		Category:     "PBI Service",
		Choices:      "a,b",
		Answers:      "a",
	}, fields)

	assert.Equal(t, "PBI Service", doc["category"])
	assert.NotContains(t, doc, "Category")
	assert.NotContains(t, doc, "image")
}
