// Package browserbase is a client for the Browserbase remote browser API.
// Sessions are created and released over REST; the browser itself is driven
// over the Chrome DevTools Protocol at the URL returned by ConnectURL.
package browserbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/integrations-worker/internal/observability"
)

const (
	apiKeyHeader = "X-BB-API-Key"
	userAgent    = "integrations-worker/1.0"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 * 1024
)

// Session statuses reported by the provider.
const (
	StatusRunning        = "RUNNING"
	StatusCompleted      = "COMPLETED"
	StatusError          = "ERROR"
	StatusTimedOut       = "TIMED_OUT"
	statusRequestRelease = "REQUEST_RELEASE"
)

// Config configures the provider client.
type Config struct {
	// APIKey authenticates every request.
	APIKey string
	// ProjectID is the project sessions are created in.
	ProjectID string
	// BaseURL is the REST API base URL.
	BaseURL string
	// ConnectURL is the CDP websocket endpoint.
	ConnectURL string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// RateLimit is the sustained requests per second.
	RateLimit float64
	// BurstSize is the maximum request burst.
	BurstSize int
	// MaxRetries is the number of retries on 429 and 5xx.
	MaxRetries int
	// RetryDelay is the delay between retries without Retry-After.
	RetryDelay time.Duration
	// ViewportWidth and ViewportHeight size the remote browser window.
	ViewportWidth  int
	ViewportHeight int
}

// DefaultConfig returns a Config with the provider's public endpoints.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.browserbase.com/v1",
		ConnectURL:     "wss://connect.browserbase.com",
		Timeout:        30 * time.Second,
		RateLimit:      5,
		BurstSize:      5,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		ViewportWidth:  1024,
		ViewportHeight: 768,
	}
}

// Session is a remote browser session as returned by the API.
type Session struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	Status     string    `json:"status"`
	ConnectURL string    `json:"connectUrl,omitempty"`
	Region     string    `json:"region,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// IsRunning reports whether the session still accepts connections.
func (s *Session) IsRunning() bool {
	return s.Status == StatusRunning
}

// PageInfo describes an open tab in a session.
type PageInfo struct {
	// ID is the CDP target ID of the tab.
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

type debugResponse struct {
	WSURL string     `json:"wsUrl"`
	Pages []PageInfo `json:"pages"`
}

// CreateParams customizes session creation.
type CreateParams struct {
	// KeepAlive keeps the session open after the last client disconnects, so
	// later activities can reattach by ID.
	KeepAlive bool
	// Timeout is the session lifetime. Zero uses the provider default.
	Timeout time.Duration
}

// Client talks to the provider REST API. It is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *httpClient
	metrics *observability.Metrics
}

// NewClient creates a provider client, filling unset fields from DefaultConfig.
func NewClient(cfg Config, metrics *observability.Metrics) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.ProjectID == "" {
		return nil, ErrMissingProjectID
	}

	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.ConnectURL == "" {
		cfg.ConnectURL = def.ConnectURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = def.BurstSize
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.ViewportWidth == 0 || cfg.ViewportHeight == 0 {
		cfg.ViewportWidth, cfg.ViewportHeight = def.ViewportWidth, def.ViewportHeight
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	hc := newHTTPClient(cfg)
	hc.onRetry = func(statusCode int) {
		if statusCode == http.StatusTooManyRequests {
			metrics.RecordProviderRateLimited()
		}
	}

	return &Client{cfg: cfg, http: hc, metrics: metrics}, nil
}

type viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type browserSettings struct {
	Viewport viewport `json:"viewport"`
}

type createSessionRequest struct {
	ProjectID       string          `json:"projectId"`
	KeepAlive       bool            `json:"keepAlive,omitempty"`
	Timeout         int             `json:"timeout,omitempty"`
	BrowserSettings browserSettings `json:"browserSettings"`
}

type updateSessionRequest struct {
	ProjectID string `json:"projectId"`
	Status    string `json:"status"`
}

// CreateSession starts a new remote browser session.
func (c *Client) CreateSession(ctx context.Context, params CreateParams) (*Session, error) {
	body := createSessionRequest{
		ProjectID: c.cfg.ProjectID,
		KeepAlive: params.KeepAlive,
		Timeout:   int(params.Timeout / time.Second),
		BrowserSettings: browserSettings{
			Viewport: viewport{Width: c.cfg.ViewportWidth, Height: c.cfg.ViewportHeight},
		},
	}

	var session Session
	if err := c.call(ctx, http.MethodPost, "/sessions", "create_session", body, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if session.ID == "" {
		return nil, errors.New("create session: response missing session id")
	}
	return &session, nil
}

// GetSession fetches a session by ID.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	if err := c.call(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id), "get_session", nil, &session); err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return &session, nil
}

// ConnectURL returns the CDP websocket URL of a running session.
func (c *Client) ConnectURL(ctx context.Context, id string) (string, error) {
	session, err := c.GetSession(ctx, id)
	if err != nil {
		return "", err
	}
	if !session.IsRunning() {
		return "", fmt.Errorf("session %s has status %s: %w", id, session.Status, ErrSessionNotRunning)
	}
	if session.ConnectURL != "" {
		return session.ConnectURL, nil
	}
	return c.buildConnectURL(id)
}

// Pages lists the open tabs of a running session in creation order.
func (c *Client) Pages(ctx context.Context, id string) ([]PageInfo, error) {
	var debug debugResponse
	if err := c.call(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id)+"/debug", "session_debug", nil, &debug); err != nil {
		return nil, fmt.Errorf("list pages of session %s: %w", id, err)
	}
	return debug.Pages, nil
}

func (c *Client) buildConnectURL(id string) (string, error) {
	u, err := url.Parse(c.cfg.ConnectURL)
	if err != nil {
		return "", fmt.Errorf("parse connect url: %w", err)
	}
	q := u.Query()
	q.Set("apiKey", c.cfg.APIKey)
	q.Set("sessionId", id)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ReleaseSession asks the provider to end a session. Releasing a session
// that is already finished or unknown is not an error.
func (c *Client) ReleaseSession(ctx context.Context, id string) error {
	body := updateSessionRequest{ProjectID: c.cfg.ProjectID, Status: statusRequestRelease}

	err := c.call(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id), "release_session", body, nil)
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.IsNotFound() {
		return nil
	}
	return fmt.Errorf("release session %s: %w", id, err)
}

// call performs one JSON request. in may be nil for bodiless requests and
// out may be nil to discard the response.
func (c *Client) call(ctx context.Context, method, path, endpoint string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.do(req)
	if err != nil {
		c.metrics.RecordProviderRequestFailed(endpoint, "network")
		return &APIError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	c.metrics.RecordProviderRequest(endpoint, time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeError(resp)
		c.metrics.RecordProviderRequestFailed(endpoint, errorType(apiErr.StatusCode))
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := http.StatusText(resp.StatusCode)
	if json.Unmarshal(raw, &parsed) == nil {
		switch {
		case parsed.Message != "":
			msg = parsed.Message
		case parsed.Error != "":
			msg = parsed.Error
		}
	} else if s := strings.TrimSpace(string(raw)); s != "" {
		msg = s
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func errorType(statusCode int) string {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode == http.StatusNotFound:
		return "not_found"
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return "auth"
	case statusCode >= 500:
		return "server_error"
	default:
		return "client_error"
	}
}
