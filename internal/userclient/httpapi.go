package userclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"cert-quiz/internal/quiz"
)

const sessionHeader = "X-Session-ID"

var ErrServiceUnavailable = errors.New("quiz service unavailable")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// HTTPClient talks to the quiz service on behalf of one session. The session
// id is taken from the first response unless one was supplied up front.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.Mutex
	sessionID string
}

type questionItem struct {
	Index     int       `json:"index"`
	Key       string    `json:"key"`
	Kind      quiz.Kind `json:"kind"`
	Text      string    `json:"question_text"`
	Category  string    `json:"category"`
	Choices   []string  `json:"choices"`
	ImageURLs []string  `json:"image_urls"`
	Selected  []string  `json:"selected"`
}

type attemptResponse struct {
	SessionID        string          `json:"session_id"`
	AttemptID        string          `json:"attempt_id"`
	Username         string          `json:"username"`
	Timer            quiz.TimerState `json:"timer"`
	RemainingSeconds int             `json:"remaining_seconds"`
	DurationSeconds  int             `json:"duration_seconds"`
	Submitted        bool            `json:"submitted"`
	Forced           bool            `json:"forced"`
	Questions        []questionItem  `json:"questions"`
	Report           *quiz.Report    `json:"report"`
}

type leaderboardResponse struct {
	Leaderboard []quiz.LeaderboardEntry `json:"leaderboard"`
}

type historyEntry struct {
	AttemptID   string         `json:"attempt_id"`
	Correct     int            `json:"correct"`
	Total       int            `json:"total"`
	Percentage  float64        `json:"percentage"`
	Passed      bool           `json:"passed"`
	Forced      bool           `json:"forced"`
	PerCategory map[string]int `json:"per_category"`
	SubmittedAt string         `json:"submitted_at"`
}

type historyResponse struct {
	Username string         `json:"username"`
	Attempts []historyEntry `json:"attempts"`
}

type selectRequest struct {
	Index  int    `json:"index"`
	Option string `json:"option"`
}

type toggleRequest struct {
	Index  int    `json:"index"`
	Option string `json:"option"`
	On     bool   `json:"on"`
}

type usernameRequest struct {
	Username string `json:"username"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultServer
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (c *HTTPClient) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *HTTPClient) UseSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = strings.TrimSpace(id)
}

func (c *HTTPClient) Attempt(ctx context.Context) (attemptResponse, error) {
	var payload attemptResponse
	err := c.doJSON(ctx, http.MethodGet, "/attempt", nil, &payload)
	return payload, err
}

func (c *HTTPClient) Select(ctx context.Context, index int, option string) (attemptResponse, error) {
	var payload attemptResponse
	err := c.doJSON(ctx, http.MethodPost, "/attempt/select", selectRequest{Index: index, Option: option}, &payload)
	return payload, err
}

func (c *HTTPClient) Toggle(ctx context.Context, index int, option string, on bool) (attemptResponse, error) {
	var payload attemptResponse
	err := c.doJSON(ctx, http.MethodPost, "/attempt/toggle", toggleRequest{Index: index, Option: option, On: on}, &payload)
	return payload, err
}

func (c *HTTPClient) SetUsername(ctx context.Context, username string) (attemptResponse, error) {
	if strings.TrimSpace(username) == "" {
		return attemptResponse{}, errors.New("username is required")
	}
	var payload attemptResponse
	err := c.doJSON(ctx, http.MethodPost, "/attempt/username", usernameRequest{Username: username}, &payload)
	return payload, err
}

func (c *HTTPClient) Submit(ctx context.Context) (attemptResponse, error) {
	var payload attemptResponse
	err := c.doJSON(ctx, http.MethodPost, "/attempt/submit", nil, &payload)
	return payload, err
}

func (c *HTTPClient) Restart(ctx context.Context) (attemptResponse, error) {
	var payload attemptResponse
	err := c.doJSON(ctx, http.MethodPost, "/attempt/restart", nil, &payload)
	return payload, err
}

func (c *HTTPClient) Result(ctx context.Context) (quiz.Report, error) {
	var report quiz.Report
	err := c.doJSON(ctx, http.MethodGet, "/attempt/result", nil, &report)
	return report, err
}

func (c *HTTPClient) Leaderboard(ctx context.Context, limit int) ([]quiz.LeaderboardEntry, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var payload leaderboardResponse
	if err := c.doJSON(ctx, http.MethodGet, "/leaderboard?"+query.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Leaderboard, nil
}

func (c *HTTPClient) History(ctx context.Context, username string, limit int) (historyResponse, error) {
	if strings.TrimSpace(username) == "" {
		return historyResponse{}, errors.New("username is required")
	}

	query := url.Values{}
	query.Set("username", strings.TrimSpace(username))
	query.Set("limit", strconv.Itoa(limit))

	var payload historyResponse
	err := c.doJSON(ctx, http.MethodGet, "/history?"+query.Encode(), nil, &payload)
	return payload, err
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	fullURL := c.baseURL + path

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if id := c.SessionID(); id != "" {
		request.Header.Set(sessionHeader, id)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if id := strings.TrimSpace(response.Header.Get(sessionHeader)); id != "" && c.SessionID() == "" {
		c.UseSession(id)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Error) != "" {
			apiErr.Message = payload.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return &apiErr
	}

	if responseBody == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}
