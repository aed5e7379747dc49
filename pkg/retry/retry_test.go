package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), "fetch", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond, BackoffFactor: 2.0}

	calls := 0
	err := Do(context.Background(), cfg, "fetch", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewHTTPError(http.StatusInternalServerError, "500 Internal Server Error", "")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond, BackoffFactor: 2.0}

	calls := 0
	err := Do(context.Background(), cfg, "fetch", func(ctx context.Context) error {
		calls++
		return errors.New("connection reset")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestDo_NonRetryableStatusStopsImmediately(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantCalls  int
	}{
		{name: "bad request", statusCode: http.StatusBadRequest, wantCalls: 1},
		{name: "unauthorized", statusCode: http.StatusUnauthorized, wantCalls: 1},
		{name: "forbidden", statusCode: http.StatusForbidden, wantCalls: 1},
		{name: "not found", statusCode: http.StatusNotFound, wantCalls: 1},
		{name: "too many requests", statusCode: http.StatusTooManyRequests, wantCalls: 3},
		{name: "server error", statusCode: http.StatusInternalServerError, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond, BackoffFactor: 2.0}

			calls := 0
			err := Do(context.Background(), cfg, "fetch", func(ctx context.Context) error {
				calls++
				return NewHTTPError(tt.statusCode, http.StatusText(tt.statusCode), "")
			})

			require.Error(t, err)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestDo_WrappedHTTPErrorIsRecognized(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond, BackoffFactor: 2.0}

	calls := 0
	err := Do(context.Background(), cfg, "fetch", func(ctx context.Context) error {
		calls++
		return errors.Join(errors.New("report request"), NewHTTPError(http.StatusUnauthorized, "401 Unauthorized", ""))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "wrapped 401 should not be retried")
}

func TestDo_ContextCancelStopsWait(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Hour, BackoffFactor: 2.0}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	calls := 0
	err := Do(ctx, cfg, "fetch", func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDelay_ExponentialWithBoundedJitter(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, BackoffFactor: 2.0}

	tests := []struct {
		attempt int
		base    time.Duration
	}{
		{attempt: 1, base: 100 * time.Millisecond},
		{attempt: 2, base: 200 * time.Millisecond},
		{attempt: 3, base: 400 * time.Millisecond},
	}

	for _, tt := range tests {
		for i := 0; i < 50; i++ {
			d := cfg.Delay(tt.attempt)
			assert.GreaterOrEqual(t, d, tt.base)
			assert.LessOrEqual(t, d, tt.base+tt.base/10)
		}
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(errors.New("dial tcp: timeout")))
	assert.True(t, Retryable(NewHTTPError(http.StatusBadGateway, "502 Bad Gateway", "")))
	assert.False(t, Retryable(NewHTTPError(http.StatusForbidden, "403 Forbidden", "")))
	assert.False(t, Retryable(context.DeadlineExceeded))
}
