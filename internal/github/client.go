// Package github is the boundary to the GitHub REST and GraphQL APIs.
//
// The client never retries: a failed call fails the run and the next
// scheduled run re-collects the same window.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	gogithub "github.com/google/go-github/v62/github"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/festy23/dora_collector/internal/apperr"
	"github.com/festy23/dora_collector/internal/config"
)

const (
	apiVersion      = "2022-11-28"
	userAgent       = "dora-collector/1.0"
	maxErrorExcerpt = 512
)

// Client issues rate-limited calls against the GitHub API. REST endpoints go
// through go-github; GraphQL documents are posted directly.
type Client struct {
	baseURL    string
	httpClient *http.Client
	rest       *gogithub.Client
	logger     *zap.SugaredLogger
}

// limitedTransport waits on the shared limiter before every outbound request.
type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return t.base.RoundTrip(req)
}

// NewClient creates a Client from source configuration.
func NewClient(cfg config.GitHubConfig, logger *zap.SugaredLogger) *Client {
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &limitedTransport{
			base:    http.DefaultTransport,
			limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		},
	}

	baseURL := strings.TrimSuffix(cfg.APIURL, "/")
	rest := gogithub.NewClient(httpClient)
	rest.UserAgent = userAgent
	if parsed, err := url.Parse(baseURL + "/"); err == nil {
		rest.BaseURL = parsed
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		rest:       rest,
		logger:     logger,
	}
}

// restClient returns a go-github client sending token as bearer credentials.
func (c *Client) restClient(token string) *gogithub.Client {
	return c.rest.WithAuthToken(token)
}

// HTTPError is a non-success API response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("github api returned %d: %s", e.StatusCode, excerpt(e.Body))
}

// excerpt cuts body to maxErrorExcerpt bytes without splitting a rune.
func excerpt(body string) string {
	if len(body) <= maxErrorExcerpt {
		return body
	}
	cut := maxErrorExcerpt
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "..."
}

type response struct {
	StatusCode int
	Body       []byte
}

// do performs a single request. Transport failures are returned as-is; the
// caller decides which status codes are failures.
func (c *Client) do(ctx context.Context, method, path, token string, body any) (*response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	c.logger.Debugw("github request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	return &response{StatusCode: resp.StatusCode, Body: data}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// Query posts a GraphQL document and decodes the data member into out.
// Every failure is an apperr.ErrTransport.
func (c *Client) Query(ctx context.Context, token, query string, variables map[string]any, out any) error {
	const op = "graphql query"

	resp, err := c.do(ctx, http.MethodPost, "/graphql", token, graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return apperr.Wrap(apperr.ErrTransport, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.Wrap(apperr.ErrTransport, op, &HTTPError{StatusCode: resp.StatusCode, Body: string(resp.Body)})
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return apperr.Errorf(apperr.ErrTransport, op, "malformed page: %v", err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return apperr.Errorf(apperr.ErrTransport, op, "graphql errors: %s", strings.Join(messages, "; "))
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return apperr.Errorf(apperr.ErrTransport, op, "malformed page: missing data")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return apperr.Errorf(apperr.ErrTransport, op, "malformed page: %v", err)
	}
	return nil
}
