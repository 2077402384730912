package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// MemoryStore is an in-process question pool, used offline and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	err     error
}

func NewMemoryStore(records []Record) *MemoryStore {
	return &MemoryStore{records: append([]Record(nil), records...)}
}

// LoadQuestionFile reads a JSON array of question documents. Keys are resolved
// through fields, so files exported from the document database load as-is.
func LoadQuestionFile(path string, fields FieldNames) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}

	var docs []map[string]any
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode question file %s: %w", path, err)
	}

	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, RecordFromDocument(doc, fields))
	}
	return records, nil
}

func (m *MemoryStore) FetchQuestions(_ context.Context, category string, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return nil, m.err
	}

	out := make([]Record, 0, len(m.records))
	for _, record := range m.records {
		if category != "" && record.Category != category {
			continue
		}
		out = append(out, record)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Replace(records []Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]Record(nil), records...)
}

// SetError makes every fetch fail with err until cleared with nil.
func (m *MemoryStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
