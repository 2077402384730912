package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cert-quiz/internal/config"
	"cert-quiz/internal/quiz"
	"cert-quiz/internal/quiz/sqlite"
	"cert-quiz/internal/session"
)

const questionFile = `[
  {"question_text": "Which view edits relationships?", "Category": "Model the data", "Choices": "Model view,Report view", "answer_text": "Model view"},
  {"question_text": "Which visuals show a single KPI?", "Category": "Visualization", "Choices": "Card,KPI,Map", "answer_text": "Card,KPI"}
]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(questionFile), 0o600))

	cfg := &config.Config{}
	cfg.Fields = quiz.DefaultFieldNames()
	cfg.Store.Backend = "memory"
	cfg.Store.File = path
	cfg.SQLite.Path = filepath.Join(dir, "results.db")
	cfg.Session.Backend = "memory"
	cfg.Session.IdleMinutes = 30
	return cfg
}

func TestOpenMemoryBackendWithSQLiteResults(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	res, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close(ctx) })

	assert.IsType(t, &quiz.MemoryStore{}, res.Questions)
	assert.IsType(t, &session.MemoryStore{}, res.Sessions)
	assert.IsType(t, &sqlite.SQLiteStore{}, res.Results)
	require.NoError(t, res.Ready(ctx))

	records, err := res.Questions.FetchQuestions(ctx, "Visualization", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Card,KPI", records[0].Answers)
}

func TestOpenSQLiteBackendSharesResultsStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "sqlite"
	ctx := context.Background()

	res, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close(ctx) })

	assert.Same(t, res.Results.(*sqlite.SQLiteStore), res.Questions.(*sqlite.SQLiteStore))
}

func TestOpenSQLiteBackendRequiresPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "sqlite"
	cfg.SQLite.Path = ""

	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestOpenFailsOnMissingQuestionFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.File = filepath.Join(t.TempDir(), "missing.json")

	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestCloseRunsInReverseOrder(t *testing.T) {
	var order []int
	res := &Resources{}
	res.addCloser(func(context.Context) error { order = append(order, 1); return nil })
	res.addCloser(func(context.Context) error { order = append(order, 2); return nil })

	require.NoError(t, res.Close(context.Background()))
	assert.Equal(t, []int{2, 1}, order)
	require.NoError(t, res.Close(context.Background()))
	assert.Equal(t, []int{2, 1}, order)
}
