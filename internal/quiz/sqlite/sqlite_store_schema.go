package sqlite

import (
	"context"
)

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	// List fields stay joined by the separator, the same shape the document
	// database hands over.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS questions (
			question_text TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			choices TEXT NOT NULL,
			answers TEXT NOT NULL,
			images TEXT NOT NULL DEFAULT '',
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS results (
			attempt_id TEXT PRIMARY KEY,
			username_norm TEXT NOT NULL,
			correct INTEGER NOT NULL,
			total INTEGER NOT NULL,
			percentage REAL NOT NULL,
			passed INTEGER NOT NULL,
			forced INTEGER NOT NULL,
			per_category_json TEXT NOT NULL,
			submitted_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category);`,
		`CREATE INDEX IF NOT EXISTS idx_results_user_submitted_at ON results(username_norm, submitted_at_unix DESC);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
