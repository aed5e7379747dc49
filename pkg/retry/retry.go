package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"storepulse/pkg/logger"
)

// HTTPError carries the status code of a failed HTTP request so the retry
// loop can decide whether another attempt can possibly succeed.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Status)
}

// NewHTTPError builds an HTTPError from a response status and optional body excerpt.
func NewHTTPError(statusCode int, status, body string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Status: status, Body: body}
}

// Config controls the retry loop.
type Config struct {
	MaxAttempts   int           // total attempts including the first one
	BaseDelay     time.Duration // delay before the second attempt
	BackoffFactor float64       // multiplier applied per subsequent attempt
}

// DefaultConfig mirrors the collector defaults: 3 attempts, 5s base, doubling.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		BaseDelay:     5 * time.Second,
		BackoffFactor: 2.0,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = d.BackoffFactor
	}
	return c
}

// nonRetryableStatus reports whether the HTTP status indicates a request that
// will fail identically on every attempt.
func nonRetryableStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// Retryable reports whether err is worth another attempt. HTTP errors with
// client-fault statuses are permanent; everything else (network errors,
// 5xx, 429) is transient.
func Retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return !nonRetryableStatus(httpErr.StatusCode)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Delay computes the backoff before attempt n (1-based, so attempt 1 has no
// delay). A random 0-10% jitter is added to spread concurrent callers.
func (c Config) Delay(attempt int) time.Duration {
	cfg := c.normalized()
	base := float64(cfg.BaseDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	jitter := base * 0.1 * rand.Float64()
	return time.Duration(base + jitter)
}

// Do runs fn until it succeeds, the error becomes non-retryable, or attempts
// are exhausted. The last error is returned. ctx cancellation aborts the wait
// between attempts.
func Do(ctx context.Context, cfg Config, op string, fn func(ctx context.Context) error) error {
	cfg = cfg.normalized()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !Retryable(lastErr) {
			logger.Warnf("%s failed with non-retryable error: %v", op, lastErr)
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.Delay(attempt)
		logger.Warnf("%s attempt %d/%d failed: %v, retrying in %s", op, attempt, cfg.MaxAttempts, lastErr, delay.Round(time.Millisecond))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, cfg.MaxAttempts, lastErr)
}
