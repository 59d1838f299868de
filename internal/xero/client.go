// Package xero wraps outbound calls to the Xero accounting and payroll
// REST APIs with token injection, rate limiting, bounded 429 retry, and
// structured error parsing. Responses are returned as parsed JSON
// without reshaping; that is a caller concern.
package xero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alexjbarnes/xero-mcp/internal/auth"
	xerrors "github.com/alexjbarnes/xero-mcp/internal/errors"
)

// Xero API base URLs.
const (
	AccountingBaseURL = "https://api.xero.com/api.xro/2.0"
	PayrollAUBaseURL  = "https://api.xero.com/payroll.xro/1.0"
)

const (
	// minRequestInterval is the minimum gap between outbound requests
	// from one client instance, to avoid bursts.
	minRequestInterval = 1200 * time.Millisecond

	// rateLimitRequests caps requests per sliding window. Conservative:
	// Xero allows 60 per minute.
	rateLimitRequests = 50

	// rateLimitWindow is the trailing window for the request-count cap.
	rateLimitWindow = 60 * time.Second

	// maxAttempts is the total number of tries for one request; only
	// 429 responses consume extra attempts.
	maxAttempts = 3

	// defaultRetryAfter is used when a 429 lacks a usable Retry-After.
	defaultRetryAfter = 60 * time.Second

	// httpClientTimeout bounds each outbound API call.
	httpClientTimeout = 30 * time.Second

	// maxAPIResponseBytes caps response body reads.
	maxAPIResponseBytes = 4 * 1024 * 1024
)

// TokenSource supplies a valid token set, or nil when unauthenticated.
// *auth.Session satisfies it.
type TokenSource interface {
	GetValidTokens(ctx context.Context) *auth.TokenSet
}

// ClientConfig assembles a Client.
type ClientConfig struct {
	Tokens TokenSource

	// HTTPClient overrides the default 30s-timeout client.
	HTTPClient *http.Client

	// AccountingBaseURL and PayrollBaseURL override the Xero endpoints
	// in tests.
	AccountingBaseURL string
	PayrollBaseURL    string

	// MinInterval overrides minRequestInterval; zero keeps the default,
	// negative disables the interval throttle (tests).
	MinInterval time.Duration

	// WindowLimit overrides rateLimitRequests; zero keeps the default.
	WindowLimit int

	Logger *slog.Logger
}

// Client is the rate-limited Xero API client for one profile. The
// throttle state is scoped to this instance: two clients give no
// cross-instance ordering.
type Client struct {
	tokens     TokenSource
	httpClient *http.Client

	accountingBase string
	payrollBase    string

	// interval enforces the minimum gap between outbound requests.
	interval *rate.Limiter

	// mu serializes the sliding-window check-and-record step. The
	// network call itself proceeds outside the lock.
	mu          sync.Mutex
	window      []time.Time
	windowLimit int

	logger *slog.Logger

	// now and sleep are swappable in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client over the given token source.
func NewClient(cfg ClientConfig) *Client {
	interval := cfg.MinInterval
	if interval == 0 {
		interval = minRequestInterval
	}

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	if interval < 0 {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	windowLimit := cfg.WindowLimit
	if windowLimit == 0 {
		windowLimit = rateLimitRequests
	}

	c := &Client{
		tokens:         cfg.Tokens,
		httpClient:     cfg.HTTPClient,
		accountingBase: cfg.AccountingBaseURL,
		payrollBase:    cfg.PayrollBaseURL,
		interval:       limiter,
		windowLimit:    windowLimit,
		logger:         cfg.Logger,
		now:            time.Now,
		sleep:          sleepContext,
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: httpClientTimeout}
	}

	if c.accountingBase == "" {
		c.accountingBase = AccountingBaseURL
	}

	if c.payrollBase == "" {
		c.payrollBase = PayrollAUBaseURL
	}

	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	return c
}

// Request issues an authenticated call against the accounting API and
// returns the parsed JSON body.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any, query url.Values) (map[string]any, error) {
	return c.do(ctx, method, c.accountingBase+"/"+endpoint, body, query)
}

// PayrollRequest issues an authenticated call against the Payroll AU
// API and returns the parsed JSON body.
func (c *Client) PayrollRequest(ctx context.Context, method, endpoint string, body any, query url.Values) (map[string]any, error) {
	return c.do(ctx, method, c.payrollBase+"/"+endpoint, body, query)
}

func (c *Client) do(ctx context.Context, method, fullURL string, body any, query url.Values) (map[string]any, error) {
	tokens := c.tokens.GetValidTokens(ctx)
	if tokens == nil {
		return nil, &APIError{
			StatusCode: http.StatusUnauthorized,
			Message:    "not authenticated with xero",
			Err:        xerrors.ErrUnauthenticated,
		}
	}

	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	var payload []byte

	if body != nil {
		var err error

		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request body: %w", err)
		}
	}

	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, retryAfter, err := c.send(ctx, method, fullURL, payload, tokens)
		if err != nil {
			return nil, err
		}

		if retryAfter == 0 {
			return result, nil
		}

		c.logger.Warn("rate limited by xero",
			slog.Duration("retry_after", retryAfter),
			slog.Int("attempt", attempt+1),
		)

		if err := c.sleep(ctx, retryAfter); err != nil {
			return nil, err
		}
	}

	return nil, &APIError{
		StatusCode: http.StatusTooManyRequests,
		Message:    "max retries exceeded",
		Err:        xerrors.ErrRateLimited,
	}
}

// send performs one attempt. A non-zero retryAfter with nil error means
// the server answered 429 and the caller should back off and retry.
func (c *Client) send(ctx context.Context, method, fullURL string, payload []byte, tokens *auth.TokenSet) (map[string]any, time.Duration, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	req.Header.Set("xero-tenant-id", tokens.TenantID)
	req.Header.Set("Accept", "application/json")

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &TransientError{Err: fmt.Errorf("sending request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, retryAfterDuration(resp.Header.Get("Retry-After")), nil
	}

	if resp.StatusCode >= 400 {
		return nil, 0, &APIError{
			StatusCode: resp.StatusCode,
			Message:    parseErrorMessage(respBody),
			Body:       string(respBody),
		}
	}

	if len(respBody) == 0 {
		return map[string]any{}, 0, nil
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, 0, fmt.Errorf("decoding response: %w", err)
	}

	return result, 0, nil
}

// throttle enforces the minimum inter-request interval and the sliding
// window cap, sleeping as needed before recording this request.
func (c *Client) throttle(ctx context.Context) error {
	if err := c.interval.Wait(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		now := c.now()
		c.pruneWindowLocked(now)

		if len(c.window) < c.windowLimit {
			c.window = append(c.window, now)
			return nil
		}

		wait := rateLimitWindow - now.Sub(c.window[0])
		if wait <= 0 {
			continue
		}

		c.logger.Info("rate limit window full, waiting",
			slog.Duration("wait", wait),
		)

		c.mu.Unlock()
		err := c.sleep(ctx, wait)
		c.mu.Lock()

		if err != nil {
			return err
		}
	}
}

// pruneWindowLocked drops request timestamps older than the window.
// Caller holds mu.
func (c *Client) pruneWindowLocked(now time.Time) {
	keep := c.window[:0]

	for _, t := range c.window {
		if now.Sub(t) < rateLimitWindow {
			keep = append(keep, t)
		}
	}

	c.window = keep
}

// retryAfterDuration parses a Retry-After header value in seconds,
// defaulting when absent or invalid.
func retryAfterDuration(header string) time.Duration {
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return defaultRetryAfter
	}

	return time.Duration(secs) * time.Second
}

// sleepContext sleeps cooperatively, waking early on cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
