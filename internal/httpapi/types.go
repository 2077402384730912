package httpapi

import (
	"time"

	"cert-quiz/internal/quiz"
)

type selectRequest struct {
	Index  *int   `json:"index" binding:"required"`
	Option string `json:"option" binding:"required"`
}

type toggleRequest struct {
	Index  *int   `json:"index" binding:"required"`
	Option string `json:"option" binding:"required"`
	On     bool   `json:"on"`
}

type usernameRequest struct {
	Username string `json:"username" binding:"required"`
}

// inputResponse never carries the correct answers; those only appear in the
// report once the attempt is graded.
type inputResponse struct {
	Index     int       `json:"index"`
	Key       string    `json:"key"`
	Kind      quiz.Kind `json:"kind"`
	Text      string    `json:"question_text"`
	Category  string    `json:"category"`
	Choices   []string  `json:"choices"`
	ImageURLs []string  `json:"image_urls,omitempty"`
	Selected  []string  `json:"selected"`
}

type attemptResponse struct {
	SessionID        string          `json:"session_id"`
	AttemptID        string          `json:"attempt_id"`
	Version          string          `json:"version"`
	Username         string          `json:"username,omitempty"`
	Timer            quiz.TimerState `json:"timer"`
	RemainingSeconds int             `json:"remaining_seconds"`
	DurationSeconds  int             `json:"duration_seconds"`
	Submitted        bool            `json:"submitted"`
	Forced           bool            `json:"forced"`
	Questions        []inputResponse `json:"questions"`
	Report           *quiz.Report    `json:"report,omitempty"`
}

type leaderboardResponse struct {
	Leaderboard []quiz.LeaderboardEntry `json:"leaderboard"`
}

type historyEntryResponse struct {
	AttemptID   string         `json:"attempt_id"`
	Correct     int            `json:"correct"`
	Total       int            `json:"total"`
	Percentage  float64        `json:"percentage"`
	Passed      bool           `json:"passed"`
	Forced      bool           `json:"forced"`
	PerCategory map[string]int `json:"per_category"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

type historyResponse struct {
	Username string                 `json:"username"`
	Attempts []historyEntryResponse `json:"attempts"`
}

type errorResponse struct {
	Error string `json:"error"`
}
