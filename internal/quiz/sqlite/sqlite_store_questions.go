package sqlite

import (
	"context"
	"strings"
	"time"

	"cert-quiz/internal/quiz"
)

// SeedQuestions upserts records keyed by question text in one transaction.
// Records without text are skipped; validation happens when the pool is
// prepared, not here.
func (s *SQLiteStore) SeedQuestions(ctx context.Context, records []quiz.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().UTC().UnixNano()
	written := 0
	for _, record := range records {
		text := strings.TrimSpace(record.QuestionText)
		if text == "" {
			continue
		}

		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO questions (question_text, category, choices, answers, images, created_at_unix)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(question_text) DO UPDATE SET
				category = excluded.category,
				choices = excluded.choices,
				answers = excluded.answers,
				images = excluded.images`,
			text,
			strings.TrimSpace(record.Category),
			record.Choices,
			record.Answers,
			record.Images,
			now,
		)
		if err != nil {
			return 0, err
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}

func (s *SQLiteStore) FetchQuestions(ctx context.Context, category string, limit int) ([]quiz.Record, error) {
	query := `SELECT question_text, category, choices, answers, images FROM questions`
	args := make([]any, 0, 2)
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at_unix ASC, question_text ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]quiz.Record, 0)
	for rows.Next() {
		var record quiz.Record
		if err := rows.Scan(&record.QuestionText, &record.Category, &record.Choices, &record.Answers, &record.Images); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
