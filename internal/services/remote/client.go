// Package remote talks to the comment feed and the URL shortener.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/j-veylop/comment-archive/internal/logger"
)

// Format selects how a comment feed is parsed.
type Format string

const (
	// FormatJSON is a paginated JSON feed.
	FormatJSON Format = "json"
	// FormatHTML is an HTML page with one element per comment.
	FormatHTML Format = "html"
)

const (
	userAgent      = "comment-archive/1.0"
	defaultTimeout = 30 * time.Second
	defaultBackoff = 500 * time.Millisecond
	maxBodySize    = 16 << 20
	maxPages       = 1000
)

// ErrNoSource is returned when no feed URL is configured.
var ErrNoSource = errors.New("no comment source configured")

// ErrShortenerDisabled is returned by ShortenURL when no shortener is configured.
var ErrShortenerDisabled = errors.New("url shortener not configured")

// Config holds configuration for the remote client.
type Config struct {
	Format         Format
	ShortenerURL   string
	ShortenerToken string
	SourceURLs     []string
	Timeout        time.Duration
	Backoff        time.Duration
	Retries        int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Format:  FormatJSON,
		Timeout: defaultTimeout,
		Backoff: defaultBackoff,
		Retries: 3,
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL  string
	Body string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed (status %d): %s", e.URL, e.Code, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client fetches comments and shortens URLs.
type Client struct {
	http   *http.Client
	config Config
}

// New creates a remote client. A nil httpClient gets one with the configured timeout.
func New(httpClient *http.Client, config Config) *Client {
	defaults := DefaultConfig()
	if config.Format == "" {
		config.Format = defaults.Format
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Backoff <= 0 {
		config.Backoff = defaults.Backoff
	}
	if config.Retries <= 0 {
		config.Retries = 1
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &Client{http: httpClient, config: config}
}

// ShorteningEnabled reports whether a shortener endpoint is configured.
func (c *Client) ShorteningEnabled() bool {
	return c.config.ShortenerURL != ""
}

// do runs the request built by newReq, retrying transport errors, 429 and
// 5xx responses with exponential backoff. newReq is called once per attempt
// so request bodies can be replayed.
func (c *Client) do(ctx context.Context, newReq func() (*http.Request, error)) ([]byte, error) {
	backoff := c.config.Backoff
	var lastErr error

	for attempt := 1; attempt <= c.config.Retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := newReq()
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		body, err := c.roundTrip(req)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		logger.Debug("request failed, retrying",
			"url", req.URL.String(),
			"attempt", attempt,
			"error", err,
		)
	}

	return nil, lastErr
}

func (c *Client) roundTrip(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", req.URL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			URL:  req.URL.String(),
			Code: resp.StatusCode,
			Body: strings.TrimSpace(truncate(string(body), 200)),
		}
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
