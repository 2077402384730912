package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cert-quiz/internal/quiz"
)

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quiz.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "question store unavailable, try again"})
	case errors.Is(err, quiz.ErrCategoryUnderflow):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, quiz.ErrAttemptSubmitted):
		c.JSON(http.StatusConflict, errorResponse{Error: "attempt already submitted"})
	case errors.Is(err, quiz.ErrAttemptRunning):
		c.JSON(http.StatusConflict, errorResponse{Error: "attempt not submitted yet"})
	case errors.Is(err, quiz.ErrUnknownQuestion),
		errors.Is(err, quiz.ErrUnknownChoice),
		errors.Is(err, quiz.ErrWrongInputKind),
		errors.Is(err, quiz.ErrInvalidSession):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "request failed"})
	}
}

func toAttemptResponse(view quiz.View) attemptResponse {
	questions := make([]inputResponse, 0, len(view.Inputs))
	for _, input := range view.Inputs {
		questions = append(questions, inputResponse{
			Index:     input.Index,
			Key:       input.Key,
			Kind:      input.Kind,
			Text:      input.Question.Text,
			Category:  input.Question.Category,
			Choices:   input.Question.Choices,
			ImageURLs: input.Question.ImageURLs,
			Selected:  input.Selected,
		})
	}

	return attemptResponse{
		SessionID:        view.SessionID,
		AttemptID:        view.AttemptID,
		Version:          view.Version,
		Username:         view.Username,
		Timer:            view.Timer,
		RemainingSeconds: int(view.Remaining / time.Second),
		DurationSeconds:  int(view.Duration / time.Second),
		Submitted:        view.Submitted,
		Forced:           view.Forced,
		Questions:        questions,
		Report:           view.Report,
	}
}

func toHistoryResponse(username string, results []quiz.ResultRecord) historyResponse {
	attempts := make([]historyEntryResponse, 0, len(results))
	for _, result := range results {
		attempts = append(attempts, historyEntryResponse{
			AttemptID:   result.AttemptID,
			Correct:     result.Correct,
			Total:       result.Total,
			Percentage:  result.Percentage,
			Passed:      result.Passed,
			Forced:      result.Forced,
			PerCategory: result.PerCategory,
			SubmittedAt: result.SubmittedAt,
		})
	}
	return historyResponse{Username: username, Attempts: attempts}
}

// parseLimit treats <=0 as "everything".
func parseLimit(c *gin.Context, defaultValue int) (int, error) {
	value := strings.TrimSpace(c.Query("limit"))
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	return parsed, nil
}
