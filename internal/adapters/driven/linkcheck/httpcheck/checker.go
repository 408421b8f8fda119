// Package httpcheck probes external URLs over HTTP.
package httpcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driven"
	"github.com/custodia-labs/linkcheck/internal/logger"
)

const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// maxDrain bounds how much of a response body is read before closing.
	maxDrain = 64 << 10
)

// Ensure Checker implements the interface.
var _ driven.LinkChecker = (*Checker)(nil)

// Config controls how URLs are probed.
type Config struct {
	// Timeout bounds each request. Zero uses DefaultTimeout.
	Timeout time.Duration

	// RateLimit caps requests per second across all goroutines.
	// Zero or less disables throttling.
	RateLimit float64

	// FollowRedirects lets the transport follow redirects. When false
	// the 3xx response itself is the result, which is never 200.
	FollowRedirects bool
}

// DefaultConfig returns the transport defaults: redirects followed,
// no throttling.
func DefaultConfig() Config {
	return Config{
		Timeout:         DefaultTimeout,
		FollowRedirects: true,
	}
}

// Checker issues a single GET per URL with no custom headers.
type Checker struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewChecker creates a checker from cfg.
func NewChecker(cfg Config) *Checker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := &http.Client{Timeout: timeout}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	c := &Checker{client: client}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// Check probes url once. Failures are reported in the result.
func (c *Checker) Check(ctx context.Context, url string) domain.LinkCheckResult {
	start := time.Now()
	result := domain.LinkCheckResult{URL: url, CheckedAt: start}

	code, reason, err := c.get(ctx, url)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		logger.Debug("GET %s failed after %s: %v", url, result.Duration, err)
		return result
	}

	result.StatusCode = code
	result.Status = reason
	logger.Debug("GET %s -> %d in %s", url, code, result.Duration)
	return result
}

func (c *Checker) get(ctx context.Context, url string) (int, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, "", fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		var urlErr interface{ Timeout() bool }
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return 0, "", fmt.Errorf("request timed out: %w", err)
		}
		return 0, "", err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	return resp.StatusCode, reasonPhrase(resp.Status, resp.StatusCode), nil
}

// reasonPhrase returns the reason phrase the server sent with its status
// line, e.g. "Not Found" from "404 Not Found". It may be empty.
func reasonPhrase(status string, code int) string {
	return strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
}
