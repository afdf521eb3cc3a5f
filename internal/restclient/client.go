// Package restclient is the console's HTTP client for the cinema backend.
// It owns bearer-token injection, response envelope decoding, and the
// shared 401 handler: when any authenticated request comes back
// unauthorized, a single logout/redirect cycle runs no matter how many
// requests fail at once.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/cinedesk/cinedesk/internal/metrics"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the backend root, including the API version prefix,
	// e.g. "https://api.example.com/api/v1".
	BaseURL string
	// Timeout is the per-request timeout. Zero means 10 seconds.
	Timeout time.Duration
}

// Client talks to the cinema backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu             sync.RWMutex
	tokenFn        func() string
	onUnauthorized func()

	// handling401 suppresses duplicate logout cycles when several
	// in-flight requests fail with 401 at the same time.
	handling401 atomic.Bool
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (used in tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics attaches request instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a backend client.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c
}

// SetTokenProvider registers the bearer token source. An empty token
// leaves the Authorization header unset.
func (c *Client) SetTokenProvider(fn func() string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenFn = fn
}

// SetUnauthorizedHandler registers the handler invoked when an
// authenticated request returns 401. The handler runs at most once
// concurrently; overlapping 401s are dropped while one cycle is in
// progress.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// do performs an HTTP request. On 2xx the raw response body is unmarshaled
// into result when non-nil. Non-2xx responses become *APIError; a 401 on a
// non-auth path additionally triggers the unauthorized handler.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(method, "transport_error", time.Since(start).Seconds())
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		c.metrics.ObserveRequest(method, "transport_error", elapsed)
		return fmt.Errorf("read response body: %w", err)
	}
	c.metrics.ObserveRequest(method, statusClass(httpResp.StatusCode), elapsed)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		apiErr := &APIError{
			Status:  httpResp.StatusCode,
			Message: envelopeMessage(respBody),
			Path:    path,
		}
		if httpResp.StatusCode == http.StatusUnauthorized && !isAuthPath(path) {
			c.dispatchUnauthorized()
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokenFn == nil {
		return ""
	}
	return c.tokenFn()
}

// dispatchUnauthorized runs the registered 401 handler, guaranteeing a
// single cycle even when many requests fail within the same instant.
func (c *Client) dispatchUnauthorized() {
	if !c.handling401.CompareAndSwap(false, true) {
		return
	}
	defer c.handling401.Store(false)

	c.mu.RLock()
	handler := c.onUnauthorized
	c.mu.RUnlock()
	if handler == nil {
		return
	}

	c.logger.Warn("unauthorized response, starting logout cycle")
	c.metrics.IncUnauthorizedCycle()
	handler()
}

// isAuthPath reports whether 401s from a path are the caller's concern
// rather than a sign of an expired session. Failed logins and logouts
// must not recursively trigger the logout cycle.
func isAuthPath(path string) bool {
	return strings.Contains(path, "/auth/login") ||
		strings.Contains(path, "/auth/admin-login") ||
		strings.Contains(path, "/auth/logout")
}

// envelopeMessage extracts the backend message from an error body, if
// the body follows the standard envelope.
func envelopeMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Message
}

func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "other"
	}
}
