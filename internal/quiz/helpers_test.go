package quiz

import (
	"fmt"
	"math/rand"
)

// poolRecords builds count valid single-answer records per category.
func poolRecords(counts map[string]int) []Record {
	var records []Record
	for _, quota := range DefaultQuotas() {
		for i := 0; i < counts[quota.Name]; i++ {
			records = append(records, Record{
				QuestionText: fmt.Sprintf("%s question %d", quota.Name, i),
				Category:     quota.Name,
				Choices:      "right,wrong,other",
				Answers:      "right",
			})
		}
	}
	return records
}

func fullPool() []Question {
	pool, _ := PreparePool(poolRecords(map[string]int{
		"Prepare the data": 20,
		"Model the data":   15,
		"PBI Service":      20,
		"Visualization":    10,
	}), DefaultSeparator)
	return pool
}

func seededRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}
