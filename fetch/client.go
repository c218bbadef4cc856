// Package fetch talks to the two upstream petition platforms: the paginated
// HTML site (President) and the full-snapshot JSON API (Cabinet).
//
// Requests are strictly sequential; the client retries rate-limit responses
// with a bounded, linearly growing backoff before surfacing ErrRateLimited.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config configures the shared HTTP client.
type Config struct {
	Timeout     time.Duration `yaml:"timeout"`      // per-request timeout. Default: 15s.
	MaxBytes    int64         `yaml:"max_bytes"`    // max response body size. Default: 10MB.
	UserAgent   string        `yaml:"user_agent"`   // sent with every request.
	MaxAttempts int           `yaml:"max_attempts"` // attempts per request on 429/503. Default: 3.
	Backoff     time.Duration `yaml:"backoff"`      // backoff base; wait is Backoff×attempt. Default: 30s.
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 30 * time.Second
	}
}

// Client wraps an http.Client with the retry policy shared by both sources.
type Client struct {
	client *http.Client
	config Config
	wait   func(ctx context.Context, d time.Duration) error // swapped out in tests
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		wait:   waitBackoff,
	}
}

// waitBackoff sleeps for d unless the context ends first.
func waitBackoff(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// get fetches url and returns the response body on HTTP 200.
// 404 maps to ErrNotFound; 429/503 are retried with increasing backoff and map
// to ErrRateLimited once attempts run out; everything else maps to ErrTransient.
func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		body, status, err := c.do(ctx, url, accept)
		if err != nil {
			// Cancellation is the caller's decision, not an upstream fault.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrTransient, url, err)
		}
		switch {
		case status == http.StatusOK:
			return body, nil
		case status == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
			if attempt >= c.config.MaxAttempts {
				return nil, fmt.Errorf("%w: http %d after %d attempts: %s", ErrRateLimited, status, attempt, url)
			}
			if err := c.wait(ctx, c.config.Backoff*time.Duration(attempt)); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: http %d: %s", ErrTransient, status, url)
		}
	}
}

func (c *Client) do(ctx context.Context, url, accept string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBytes))
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
