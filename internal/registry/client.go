// Package registry implements the HTTP client that talks to the package
// registry: metadata lookups and raw archive downloads, with retry and
// backoff (§4.2). It is grounded on turborepo's client.APIClient, which
// wraps hashicorp/go-retryablehttp with an hclog.Logger the same way.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultTimeout is the per-request timeout applied when Opts.Timeout is
// zero (§4.2 "Timeouts").
const DefaultTimeout = 60 * time.Second

// MaxAttempts bounds the number of attempts (initial try + retries) made
// per call (§4.2 "Retry policy").
const MaxAttempts = 3

// Opts configures a Client.
type Opts struct {
	// BaseURL is the registry's base URL; a trailing slash is normalized
	// away (§4.2).
	BaseURL string
	// UserAgent is attached to every request (§4.2 "Headers/identity").
	UserAgent string
	// Timeout is the per-request timeout; defaults to DefaultTimeout.
	Timeout time.Duration
}

// Client is the registry HTTP client.
type Client struct {
	baseURL   string
	userAgent string
	http      *retryablehttp.Client
	logger    hclog.Logger
}

// New constructs a Client.
func New(opts Opts, logger hclog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		logger:    logger.Named("registry"),
	}
	c.http = &retryablehttp.Client{
		HTTPClient: &http.Client{Timeout: timeout},
		// MaxAttempts includes the initial try, RetryMax counts only the
		// retries that follow it.
		RetryMax:     MaxAttempts - 1,
		RetryWaitMin: time.Second,
		RetryWaitMax: 4 * time.Second,
		Backoff:      exponentialBackoff,
		Logger:       retryableLogAdapter{c.logger},
		CheckRetry:   c.checkRetry,
	}
	return c
}

// exponentialBackoff implements the spec's 2^(attempt-1) seconds schedule
// (§4.2), ignoring retryablehttp's min/max clamps so the doubling is exact.
// retryablehttp passes the zero-based index of the attempt that just
// failed, so the wait after attempt 1 is 2^0 = 1s and after attempt 2 is 2s.
func exponentialBackoff(_, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
	if attemptNum < 0 {
		attemptNum = 0
	}
	return time.Duration(1<<uint(attemptNum)) * time.Second
}

// checkRetry retries on network errors and server errors, but not on a
// 404 (registry not-found is a deterministic, non-retriable failure kind
// per §7's error taxonomy) or other 4xx responses, except 429 Too Many
// Requests, which is retried.
func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}
	return false, nil
}

// FetchMetadata retrieves the per-name metadata document (§3 "Registry
// metadata", §6 "GET <registry>/<name>").
func (c *Client) FetchMetadata(ctx context.Context, name string) (*Metadata, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, name)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, &FetchError{Name: name, Attempts: MaxAttempts, Cause: err}
	}

	var md Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		// Parse failures are not retried (§4.2): the attempt already
		// succeeded at the transport level.
		return nil, fmt.Errorf("parse metadata for %s: %w", name, err)
	}
	return &md, nil
}

// FetchArchive downloads the raw archive bytes at tarballURL (§4.2).
func (c *Client) FetchArchive(ctx context.Context, name, tarballURL string) ([]byte, error) {
	body, err := c.get(ctx, tarballURL)
	if err != nil {
		return nil, &FetchError{Name: name, Attempts: MaxAttempts, Cause: err}
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// FetchError is returned after the final retry attempt fails, carrying the
// attempt count, the package name, and the underlying cause (§4.2).
type FetchError struct {
	Name     string
	Attempts int
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.Name, e.Attempts, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// retryableLogAdapter bridges hclog.Logger to retryablehttp.LeveledLogger.
type retryableLogAdapter struct {
	logger hclog.Logger
}

func (a retryableLogAdapter) Error(msg string, kv ...interface{}) { a.logger.Error(msg, kv...) }
func (a retryableLogAdapter) Info(msg string, kv ...interface{})  { a.logger.Info(msg, kv...) }
func (a retryableLogAdapter) Debug(msg string, kv ...interface{}) { a.logger.Debug(msg, kv...) }
func (a retryableLogAdapter) Warn(msg string, kv ...interface{})  { a.logger.Warn(msg, kv...) }
