// Package notion is the HTTP client for the hosted workspace data source.
// It follows pagination cursors, bounds every call with a timeout, and never
// retries: failures surface as *apperr.UpstreamError for the caller to judge.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/apperr"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2022-06-28"
	DefaultTimeout = 15 * time.Second
	// MaxPageSize is the largest page the source serves per request.
	MaxPageSize = 100

	maxErrorBody = 4 << 10
)

// RequestObserver receives one callback per upstream call. status is 0 when
// the call failed before a response arrived.
type RequestObserver interface {
	ObserveRequest(op string, status int, elapsed time.Duration)
}

// BreakerSettings configures the optional circuit breaker.
type BreakerSettings struct {
	// MinRequests is how many calls the breaker sees before judging failure rate.
	MinRequests uint32
	// FailureRatio trips the breaker once reached.
	FailureRatio float64
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// Interval clears counts while closed; zero keeps them until a state change.
	Interval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root (tests use httptest servers).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithVersion sets the protocol version header.
func WithVersion(v string) Option {
	return func(c *Client) { c.version = v }
}

// WithTimeout bounds each individual call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithObserver installs a per-call metrics observer.
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the logger used for breaker transitions and call failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBreaker wraps every call in a circuit breaker.
func WithBreaker(s BreakerSettings) Option {
	return func(c *Client) { c.breakerSettings = &s }
}

// Client talks to the workspace API.
type Client struct {
	token           string
	version         string
	baseURL         string
	timeout         time.Duration
	http            *http.Client
	observer        RequestObserver
	logger          *slog.Logger
	breakerSettings *BreakerSettings
	breaker         *gobreaker.CircuitBreaker
}

// New creates a client authenticated with a bearer token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		version: DefaultVersion,
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breakerSettings != nil {
		c.breaker = newBreaker(*c.breakerSettings, c.logger)
	}
	return c
}

func newBreaker(s BreakerSettings, logger *slog.Logger) *gobreaker.CircuitBreaker {
	if s.MinRequests == 0 {
		s.MinRequests = 5
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.6
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "notion",
		Interval: s.Interval,
		Timeout:  s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
		// Caller mistakes and cancellations say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || !apperr.IsRetryable(err)
		},
	})
}

// do performs one bounded call. body may be nil; out may be nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	if c.breaker == nil {
		return c.roundTrip(ctx, op, method, path, body, out)
	}
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, op, method, path, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &apperr.UpstreamError{Op: op, Status: http.StatusServiceUnavailable, Body: err.Error(), Err: err}
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(op, 0, start)
		if errors.Is(ctx.Err(), context.Canceled) {
			// The caller gave up; the upstream was never judged.
			c.logger.Debug("upstream call cancelled", slog.String("op", op))
			return fmt.Errorf("%s: %w", op, context.Canceled)
		}
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
		c.logger.Warn("upstream call failed",
			slog.String("op", op),
			slog.Bool("timeout", timedOut),
			slog.String("error", err.Error()))
		return &apperr.UpstreamError{Op: op, Timeout: timedOut, Err: err}
	}
	defer resp.Body.Close()
	c.observe(op, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &apperr.UpstreamError{
			Op:     op,
			Status: resp.StatusCode,
			Body:   upstreamMessage(raw),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &apperr.UpstreamError{Op: op, Timeout: true, Err: err}
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) observe(op string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(op, status, time.Since(start))
	}
}

// upstreamMessage extracts the "message" field of an API error body, falling
// back to the raw text.
func upstreamMessage(raw []byte) string {
	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		if apiErr.Code != "" {
			return apiErr.Code + ": " + apiErr.Message
		}
		return apiErr.Message
	}
	return strings.TrimSpace(string(raw))
}
