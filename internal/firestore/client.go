package firestore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cert-quiz/internal/quiz"
)

const (
	defaultBaseURL  = "https://firestore.googleapis.com/v1"
	defaultPageSize = 300
)

type Config struct {
	BaseURL    string
	ProjectID  string
	Collection string
	APIKey     string
	Fields     quiz.FieldNames
}

// Client lists question documents through the Firestore REST API.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

func NewClient(httpClient *http.Client, cfg Config) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Fields == (quiz.FieldNames{}) {
		cfg.Fields = quiz.DefaultFieldNames()
	}
	return &Client{httpClient: httpClient, cfg: cfg}
}

type value struct {
	StringValue  *string     `json:"stringValue,omitempty"`
	IntegerValue *string     `json:"integerValue,omitempty"`
	ArrayValue   *arrayValue `json:"arrayValue,omitempty"`
}

type arrayValue struct {
	Values []value `json:"values"`
}

type document struct {
	Name   string           `json:"name"`
	Fields map[string]value `json:"fields"`
}

type listResponse struct {
	Documents     []document `json:"documents"`
	NextPageToken string     `json:"nextPageToken"`
}

// FetchQuestions pages through the collection. The list endpoint cannot
// filter, so category and limit are applied while paging.
func (c *Client) FetchQuestions(ctx context.Context, category string, limit int) ([]quiz.Record, error) {
	records := make([]quiz.Record, 0)
	pageToken := ""
	seenTokens := make(map[string]struct{})

	for {
		page, err := c.listPage(ctx, pageToken)
		if err != nil {
			return nil, err
		}

		for _, doc := range page.Documents {
			record := quiz.RecordFromDocument(doc.plain(), c.cfg.Fields)
			if category != "" && record.Category != category {
				continue
			}
			records = append(records, record)
			if limit > 0 && len(records) == limit {
				return records, nil
			}
		}

		if page.NextPageToken == "" {
			return records, nil
		}
		if _, repeated := seenTokens[page.NextPageToken]; repeated {
			return nil, fmt.Errorf("firestore returned page token %q twice", page.NextPageToken)
		}
		seenTokens[page.NextPageToken] = struct{}{}
		pageToken = page.NextPageToken
	}
}

func (c *Client) listPage(ctx context.Context, pageToken string) (listResponse, error) {
	query := url.Values{}
	query.Set("pageSize", strconv.Itoa(defaultPageSize))
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}
	if c.cfg.APIKey != "" {
		query.Set("key", c.cfg.APIKey)
	}

	reqURL := fmt.Sprintf("%s/projects/%s/databases/(default)/documents/%s?%s",
		c.cfg.BaseURL,
		url.PathEscape(c.cfg.ProjectID),
		url.PathEscape(c.cfg.Collection),
		query.Encode(),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return listResponse{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return listResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return listResponse{}, fmt.Errorf("firestore returned status %d", resp.StatusCode)
	}

	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return listResponse{}, err
	}
	return payload, nil
}

func (d document) plain() map[string]any {
	out := make(map[string]any, len(d.Fields))
	for key, field := range d.Fields {
		out[key] = field.plain()
	}
	return out
}

func (v value) plain() any {
	switch {
	case v.StringValue != nil:
		return *v.StringValue
	case v.IntegerValue != nil:
		return *v.IntegerValue
	case v.ArrayValue != nil:
		items := make([]any, 0, len(v.ArrayValue.Values))
		for _, item := range v.ArrayValue.Values {
			items = append(items, item.plain())
		}
		return items
	default:
		return nil
	}
}
