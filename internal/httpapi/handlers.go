package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cert-quiz/internal/quiz"
)

const defaultListLimit = 10

func (a *API) HandleAttempt(c *gin.Context) {
	view, err := a.service.Current(c.Request.Context(), sessionID(c))
	if err != nil {
		a.logFailure(c, err)
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAttemptResponse(view))
}

func (a *API) HandleSelect(c *gin.Context) {
	var request selectRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "index and option are required"})
		return
	}
	a.dispatch(c, quiz.SelectOption{Index: *request.Index, Option: request.Option})
}

func (a *API) HandleToggle(c *gin.Context) {
	var request toggleRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "index and option are required"})
		return
	}
	a.dispatch(c, quiz.ToggleOption{Index: *request.Index, Option: request.Option, On: request.On})
}

func (a *API) HandleUsername(c *gin.Context) {
	var request usernameRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Username) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "username is required"})
		return
	}
	a.dispatch(c, quiz.SetUsername{Username: request.Username})
}

func (a *API) HandleSubmit(c *gin.Context) {
	a.dispatch(c, quiz.SubmitAttempt{})
}

func (a *API) HandleRestart(c *gin.Context) {
	a.dispatch(c, quiz.RestartAttempt{})
}

func (a *API) HandleResult(c *gin.Context) {
	report, err := a.service.Result(c.Request.Context(), sessionID(c))
	if err != nil {
		a.logFailure(c, err)
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *API) HandleLeaderboard(c *gin.Context) {
	limit, err := parseLimit(c, defaultListLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	entries, err := a.service.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		a.logFailure(c, err)
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, leaderboardResponse{Leaderboard: entries})
}

func (a *API) HandleHistory(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "username is required"})
		return
	}
	limit, err := parseLimit(c, defaultListLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	results, err := a.service.History(c.Request.Context(), username, limit)
	if err != nil {
		a.logFailure(c, err)
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toHistoryResponse(strings.ToLower(username), results))
}

func (a *API) dispatch(c *gin.Context, msg quiz.Message) {
	view, err := a.service.Dispatch(c.Request.Context(), sessionID(c), msg)
	if err != nil {
		a.logFailure(c, err)
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAttemptResponse(view))
}

func (a *API) logFailure(c *gin.Context, err error) {
	a.logger.Debug("request failed",
		zap.String("path", c.FullPath()),
		zap.String("session", sessionID(c)),
		zap.Error(err),
	)
}
