package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://graphql.contentful.com"
	defaultEnvironment = "master"
	defaultLimit       = 10
	maxLimit           = 100
)

// Config locates a content space and the tokens used to read it.
type Config struct {
	BaseURL      string
	SpaceID      string
	Environment  string
	AccessToken  string
	PreviewToken string
	Timeout      time.Duration
}

// Client reads plants, categories and authors from the content source's
// GraphQL delivery API. It is safe for concurrent use.
type Client struct {
	endpoint     string
	accessToken  string
	previewToken string
	httpClient   *http.Client
}

// NewClient validates cfg and builds a Client. A nil httpClient gets a default
// one bounded by cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.SpaceID == "" {
		return nil, errors.New("content: missing space id")
	}
	if cfg.AccessToken == "" {
		return nil, errors.New("content: missing access token")
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	env := cfg.Environment
	if env == "" {
		env = defaultEnvironment
	}

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:     fmt.Sprintf("%s/content/v1/spaces/%s/environments/%s", base, cfg.SpaceID, env),
		accessToken:  cfg.AccessToken,
		previewToken: cfg.PreviewToken,
		httpClient:   httpClient,
	}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// do runs one query and decodes its data into out. Every failure is a
// *FetchError; absence is decided by the callers from the decoded data.
func (c *Client) do(ctx context.Context, op, query string, vars map[string]any, preview bool, out any) error {
	buf, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	token := c.accessToken
	if preview && c.previewToken != "" {
		token = c.previewToken
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &FetchError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("body %s", truncate(string(body), 512))}
	}

	var gr graphQLResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return &FetchError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(gr.Errors) > 0 {
		msgs := make([]string, 0, len(gr.Errors))
		for _, e := range gr.Errors {
			msgs = append(msgs, e.Message)
		}
		return &FetchError{Op: op, Status: resp.StatusCode, Err: errors.New(strings.Join(msgs, "; "))}
	}
	if len(gr.Data) == 0 || string(gr.Data) == "null" {
		return &FetchError{Op: op, Status: resp.StatusCode, Err: errors.New("response missing data")}
	}

	if err := json.Unmarshal(gr.Data, out); err != nil {
		return &FetchError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func variables(limit int, locale string) map[string]any {
	vars := map[string]any{"limit": clampLimit(limit)}
	if locale != "" {
		vars["locale"] = locale
	}
	return vars
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
