package quiz

import (
	"context"
	"errors"
	"time"
)

var (
	ErrStoreUnavailable  = errors.New("question store unavailable")
	ErrCategoryUnderflow = errors.New("not enough questions in category")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidSession    = errors.New("invalid session id")
	ErrAttemptSubmitted  = errors.New("attempt already submitted")
	ErrAttemptRunning    = errors.New("attempt not submitted yet")
	ErrUnknownQuestion   = errors.New("unknown question")
	ErrUnknownChoice     = errors.New("option is not one of the choices")
	ErrWrongInputKind    = errors.New("input does not match question kind")
	ErrUnknownMessage    = errors.New("unknown message")
)

// QuestionStore is the hosted question database. An empty category returns the
// whole pool and limit <= 0 means no limit.
type QuestionStore interface {
	FetchQuestions(ctx context.Context, category string, limit int) ([]Record, error)
}

// SessionStore keeps one attempt per opaque session id.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*Attempt, error)
	Save(ctx context.Context, sessionID string, attempt *Attempt) error
	Delete(ctx context.Context, sessionID string) error
}

type ResultRecord struct {
	AttemptID   string         `json:"attempt_id"`
	Username    string         `json:"username"`
	Correct     int            `json:"correct"`
	Total       int            `json:"total"`
	Percentage  float64        `json:"percentage"`
	Passed      bool           `json:"passed"`
	Forced      bool           `json:"forced"`
	PerCategory map[string]int `json:"per_category"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

type LeaderboardEntry struct {
	Username    string    `json:"username"`
	Percentage  float64   `json:"percentage"`
	Attempts    int       `json:"attempts"`
	BestAt      time.Time `json:"best_at"`
	LastAttempt time.Time `json:"last_attempt"`
}

type ResultRepository interface {
	SaveResult(ctx context.Context, result ResultRecord) error
	ListResults(ctx context.Context) ([]ResultRecord, error)
	ListUserResults(ctx context.Context, username string, limit int) ([]ResultRecord, error)
}
