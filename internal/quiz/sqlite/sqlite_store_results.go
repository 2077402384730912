package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"cert-quiz/internal/quiz"
)

// SaveResult records a graded attempt. A second save for the same attempt id
// keeps the original row.
func (s *SQLiteStore) SaveResult(ctx context.Context, result quiz.ResultRecord) error {
	if result.AttemptID == "" {
		return errors.New("attempt id is required")
	}
	if result.SubmittedAt.IsZero() {
		result.SubmittedAt = time.Now().UTC()
	}

	perCategory := result.PerCategory
	if perCategory == nil {
		perCategory = map[string]int{}
	}
	perCategoryJSON, err := json.Marshal(perCategory)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO results
			(attempt_id, username_norm, correct, total, percentage, passed, forced, per_category_json, submitted_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.AttemptID,
		result.Username,
		result.Correct,
		result.Total,
		result.Percentage,
		result.Passed,
		result.Forced,
		string(perCategoryJSON),
		result.SubmittedAt.UTC().UnixNano(),
	)
	return err
}

// ListResults returns every result oldest first, the order the leaderboard
// cache is built in.
func (s *SQLiteStore) ListResults(ctx context.Context) ([]quiz.ResultRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT attempt_id, username_norm, correct, total, percentage, passed, forced, per_category_json, submitted_at_unix
		 FROM results
		 ORDER BY submitted_at_unix ASC, attempt_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanResults(rows)
}

func (s *SQLiteStore) ListUserResults(ctx context.Context, username string, limit int) ([]quiz.ResultRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT attempt_id, username_norm, correct, total, percentage, passed, forced, per_category_json, submitted_at_unix
		 FROM results
		 WHERE username_norm = ?
		 ORDER BY submitted_at_unix DESC
		 LIMIT ?`,
		username,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]quiz.ResultRecord, error) {
	results := make([]quiz.ResultRecord, 0)
	for rows.Next() {
		var (
			result          quiz.ResultRecord
			perCategoryJSON string
			submittedAtNs   int64
		)
		if err := rows.Scan(
			&result.AttemptID,
			&result.Username,
			&result.Correct,
			&result.Total,
			&result.Percentage,
			&result.Passed,
			&result.Forced,
			&perCategoryJSON,
			&submittedAtNs,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(perCategoryJSON), &result.PerCategory); err != nil {
			return nil, err
		}
		result.SubmittedAt = time.Unix(0, submittedAtNs).UTC()
		results = append(results, result)
	}
	return results, rows.Err()
}
