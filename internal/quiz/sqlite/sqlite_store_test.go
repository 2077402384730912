package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cert-quiz/internal/quiz"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
		_ = os.Remove(path)
		_ = os.Remove(path + "-journal")
	})
	return store
}

func sampleRecords() []quiz.Record {
	return []quiz.Record{
		{QuestionText: "Which view edits relationships?", Category: "Model the data", Choices: "Model view,Report view", Answers: "Model view"},
		{QuestionText: "Which visuals show KPIs?", Category: "Visualization", Choices: "Card,KPI,Map", Answers: "Card,KPI"},
		{QuestionText: "Where are dashboards shared?", Category: "PBI Service", Choices: "Workspace,Desktop", Answers: "Workspace", Images: "https://example.com/a.png"},
	}
}

func TestSQLiteStoreSeedAndFetchQuestions(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	written, err := store.SeedQuestions(ctx, append(sampleRecords(), quiz.Record{QuestionText: "  "}))
	if err != nil {
		t.Fatalf("SeedQuestions failed: %v", err)
	}
	if written != 3 {
		t.Fatalf("expected 3 written, got %d", written)
	}

	all, err := store.FetchQuestions(ctx, "", 0)
	if err != nil {
		t.Fatalf("FetchQuestions failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	visuals, err := store.FetchQuestions(ctx, "Visualization", 0)
	if err != nil {
		t.Fatalf("FetchQuestions failed: %v", err)
	}
	if len(visuals) != 1 || visuals[0].Answers != "Card,KPI" {
		t.Fatalf("unexpected category fetch: %#v", visuals)
	}

	limited, err := store.FetchQuestions(ctx, "", 2)
	if err != nil {
		t.Fatalf("FetchQuestions failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(limited))
	}
}

func TestSQLiteStoreSeedOverwritesByText(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	if _, err := store.SeedQuestions(ctx, sampleRecords()); err != nil {
		t.Fatalf("SeedQuestions failed: %v", err)
	}
	updated := sampleRecords()[:1]
	updated[0].Answers = "Report view"
	if _, err := store.SeedQuestions(ctx, updated); err != nil {
		t.Fatalf("SeedQuestions failed: %v", err)
	}

	records, err := store.FetchQuestions(ctx, "Model the data", 0)
	if err != nil {
		t.Fatalf("FetchQuestions failed: %v", err)
	}
	if len(records) != 1 || records[0].Answers != "Report view" {
		t.Fatalf("expected overwritten answers, got %#v", records)
	}
}

func TestSQLiteStoreSaveResultIsIdempotent(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first := quiz.ResultRecord{
		AttemptID:   "a1",
		Username:    "ana",
		Correct:     30,
		Total:       40,
		Percentage:  75,
		Passed:      true,
		PerCategory: map[string]int{"Model the data": 8},
		SubmittedAt: at,
	}
	if err := store.SaveResult(ctx, first); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	again := first
	again.Correct = 0
	if err := store.SaveResult(ctx, again); err != nil {
		t.Fatalf("duplicate SaveResult failed: %v", err)
	}

	results, err := store.ListResults(ctx)
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one row, got %d", len(results))
	}
	got := results[0]
	if got.Correct != 30 || !got.Passed || got.Forced {
		t.Fatalf("original row was not kept: %#v", got)
	}
	if got.PerCategory["Model the data"] != 8 {
		t.Fatalf("per-category counts lost: %#v", got.PerCategory)
	}
	if !got.SubmittedAt.Equal(at) {
		t.Fatalf("submitted at mismatch: %v", got.SubmittedAt)
	}
}

func TestSQLiteStoreListUserResultsNewestFirst(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for idx, id := range []string{"a1", "a2", "a3"} {
		if err := store.SaveResult(ctx, quiz.ResultRecord{
			AttemptID:   id,
			Username:    "ana",
			Total:       40,
			SubmittedAt: at.Add(time.Duration(idx) * time.Minute),
		}); err != nil {
			t.Fatalf("SaveResult failed: %v", err)
		}
	}
	if err := store.SaveResult(ctx, quiz.ResultRecord{AttemptID: "b1", Username: "bo", Total: 40, SubmittedAt: at}); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	history, err := store.ListUserResults(ctx, "ana", 2)
	if err != nil {
		t.Fatalf("ListUserResults failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 results, got %d", len(history))
	}
	if history[0].AttemptID != "a3" || history[1].AttemptID != "a2" {
		t.Fatalf("unexpected order: %s, %s", history[0].AttemptID, history[1].AttemptID)
	}
}

func TestSQLiteStoreSaveResultRequiresAttemptID(t *testing.T) {
	store := newTestSQLiteStore(t)

	if err := store.SaveResult(context.Background(), quiz.ResultRecord{}); err == nil {
		t.Fatalf("expected error for missing attempt id")
	}
}

var (
	_ quiz.QuestionStore    = (*SQLiteStore)(nil)
	_ quiz.ResultRepository = (*SQLiteStore)(nil)
)
