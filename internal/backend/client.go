/*
This file contains the REST client for the remote money circle API.

Only the endpoints the contract-signing flow depends on are covered: taken ranks of a pool,
contract creation and credit pool creation. Authentication is owned by the remote API; the
caller's session cookies are forwarded as they are.
*/

package backend

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

	"github.com/rs/zerolog"

	"github.com/moneycircle/circle/internal/logger"
	"github.com/moneycircle/circle/internal/metrics"
)

var ErrAPIConfiguration = errors.New("API configuration error")

const (
	MAX_RETRIES     = 3
	DEFAULT_TIMEOUT = 30 * time.Second
	MAX_BODY_BYTES  = 1 << 20
)

// APIError is returned for every non-2xx answer of the remote API.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: %d - %s", e.Operation, e.StatusCode, e.Body)
}

// Client talks to the remote API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Collector
	retryDelay time.Duration
	log        zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records request counts and latencies on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRetryDelay sets the base delay between retries. The n-th retry waits n times the delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// NewClient returns a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q is not absolute", ErrAPIConfiguration, baseURL)
	}
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retryDelay: time.Second,
		log:        logger.GetForComponent("backend_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type cookiesKey struct{}

// WithSessionCookies attaches the caller's cookies to ctx; every request made with ctx carries them.
func WithSessionCookies(ctx context.Context, cookies []*http.Cookie) context.Context {
	return context.WithValue(ctx, cookiesKey{}, cookies)
}

func sessionCookies(ctx context.Context) []*http.Cookie {
	cookies, _ := ctx.Value(cookiesKey{}).([]*http.Cookie)
	return cookies
}

// request describes one call to the remote API.
type request struct {
	operation   string
	method      string
	path        string
	contentType string
	body        []byte
	retry       bool
}

// do sends req and returns the response body of a 2xx answer. Requests marked retry are
// attempted MAX_RETRIES times on transport errors and 5xx answers.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	attempts := 1
	if req.retry {
		attempts = MAX_RETRIES
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		body, retryable, err := c.send(ctx, req)
		elapsed := time.Since(start)

		if err == nil {
			c.metrics.RecordBackendRequest(req.operation, metrics.OutcomeOK, elapsed)
			c.log.Debug().
				Str("operation", req.operation).
				Int("attempt", attempt).
				Dur("duration", elapsed).
				Msg("Remote API request successful")
			return body, nil
		}

		c.metrics.RecordBackendRequest(req.operation, metrics.OutcomeError, elapsed)
		lastErr = err
		if !retryable || attempt == attempts {
			break
		}

		c.log.Warn().
			Err(err).
			Str("operation", req.operation).
			Int("attempt", attempt).
			Int("maxRetries", attempts).
			Msg("Remote API request failed, will retry")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * c.retryDelay):
		}
	}

	c.log.Error().
		Err(lastErr).
		Str("operation", req.operation).
		Msg("Remote API request failed")
	return nil, lastErr
}

// send performs a single attempt. retryable reports whether another attempt may succeed.
func (c *Client) send(ctx context.Context, req request) ([]byte, bool, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return nil, false, fmt.Errorf("%s: failed to build request: %w", req.operation, err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	for _, cookie := range sessionCookies(ctx) {
		httpReq.AddCookie(cookie)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("%s: HTTP request failed: %w", req.operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MAX_BODY_BYTES))
	if err != nil {
		return nil, true, fmt.Errorf("%s: failed to read response body: %w", req.operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Operation:  req.operation,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
		return nil, resp.StatusCode >= 500, apiErr
	}

	return respBody, false, nil
}

func decodeJSON(operation string, body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: failed to parse JSON response: %w", operation, err)
	}
	return nil
}
