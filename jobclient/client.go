// Package jobclient talks to the external scrape-job backend: the
// submit-and-return-results endpoint used by the builder, and the queued job
// API (token auth, enqueue, status) used by the batch submitter.
package jobclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/scrapeform/models"
)

// Backend paths.
const (
	SubmitPath = "/api/submit-scrape-job"
	AuthPath   = "/api/auth/token"
	JobPath    = "/api/job/"
)

const (
	defaultUserAgent  = "scrapeform/0.1"
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second

	// maxBody caps how much of a backend response is read.
	maxBody = 10 << 20
)

// Client is a small net/http client for the scrape-job backend.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	maxRetries int
	retryDelay time.Duration

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. The caller's client is
// used as is; WithTimeout does not modify it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets a per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRetries sets the enqueue attempt count and the delay between attempts.
func WithRetries(maxRetries int, delay time.Duration) Option {
	return func(c *Client) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Submit posts a builder request and decodes the backend's result set.
func (c *Client) Submit(ctx context.Context, req *models.JobRequest) (*models.ResultSet, error) {
	body, err := c.postJSON(ctx, SubmitPath, req)
	if err != nil {
		return nil, err
	}

	var rs *models.ResultSet
	if err := json.Unmarshal(body, &rs); err != nil {
		return nil, models.NewJobError(models.ErrCodeBadResponse, "response is not a result set", err)
	}
	if rs == nil {
		return nil, models.NewJobError(models.ErrCodeBadResponse, "response is null", nil)
	}
	return rs, nil
}

// Authenticate exchanges credentials for an access token and keeps it for
// subsequent requests.
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+AuthPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("jobclient: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(httpReq)
	if err != nil {
		return "", models.NewJobError(models.ErrCodeAuthFailed, "authentication request failed", err)
	}

	var tok models.TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", models.NewJobError(models.ErrCodeAuthFailed, "token response is not JSON", err)
	}
	if tok.AccessToken == "" {
		return "", models.NewJobError(models.ErrCodeAuthFailed, "no access token in response", nil)
	}

	c.SetToken(tok.AccessToken)
	return tok.AccessToken, nil
}

// Status fetches a queued job. The backend answers either with the job
// object or with a list whose first entry is the job.
func (c *Client) Status(ctx context.Context, id string) (*models.Job, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+JobPath+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("jobclient: create request: %w", err)
	}

	body, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	return decodeJob(body)
}

func decodeJob(body []byte) (*models.Job, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, models.NewJobError(models.ErrCodeBadResponse, "empty job response", nil)
	}

	switch trimmed[0] {
	case '[':
		var jobs []json.RawMessage
		if err := json.Unmarshal(trimmed, &jobs); err != nil {
			return nil, models.NewJobError(models.ErrCodeBadResponse, "malformed job list", err)
		}
		if len(jobs) == 0 {
			return nil, models.NewJobError(models.ErrCodeBadResponse, "empty job list", nil)
		}
		return decodeJob(jobs[0])
	case '{':
		var job models.Job
		if err := json.Unmarshal(trimmed, &job); err != nil {
			return nil, models.NewJobError(models.ErrCodeBadResponse, "malformed job", err)
		}
		return &job, nil
	default:
		return nil, models.NewJobError(models.ErrCodeBadResponse, "unexpected job response", nil)
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobclient: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("jobclient: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq)
}

// do sends req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewJobError(models.ErrCodeSubmitFailed, "backend request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, models.NewJobError(models.ErrCodeSubmitFailed, "failed to read backend response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewJobError(models.ErrCodeUpstreamStatus,
			fmt.Sprintf("backend returned status %d", resp.StatusCode), nil)
	}
	return body, nil
}
