// Package retry wraps a whole request-plus-decode operation in an
// idempotent retry loop with capped exponential backoff and full jitter.
//
// Each attempt starts the request from scratch with a fresh connection,
// stream, and target array. Partially streamed state is never resumed.
package retry

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/argilla-geo/strata/stream"
)

// Defaults. The nominal worst case across all retries is about 60 seconds
// of backoff before giving up.
const (
	// DefaultMaxRetries is the retry cap; total attempts = retries + 1.
	DefaultMaxRetries = 8
	// DefaultBaseDelay is the first backoff delay.
	DefaultBaseDelay = 500 * time.Millisecond
	// DefaultMultiplier is the exponential growth factor.
	DefaultMultiplier = 2.0
	// DefaultJitter scales the delay by a uniform value in [1-J, 1]
	// ("full jitter", see the AWS architecture blog).
	DefaultJitter = 1.0
	// DefaultMaxDelay caps a single backoff delay.
	DefaultMaxDelay = 30 * time.Second
)

// RetryCountHeader carries the current attempt number to the server as an
// observability aid.
const RetryCountHeader = "x-retry-count"

// Config tunes the retry policy. The zero value uses the defaults above.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
	Jitter     float64
	MaxDelay   time.Duration

	// sleep overrides the backoff sleep in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func (c Config) withDefaults() Config {
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.Multiplier == 0 {
		c.Multiplier = DefaultMultiplier
	}
	if c.Jitter == 0 {
		c.Jitter = DefaultJitter
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.sleep == nil {
		c.sleep = sleepCtx
	}
	return c
}

// Operation performs one full HTTP request and streaming decode. The
// headers passed in already carry the retry count and must be attached to
// the outgoing request.
type Operation[T any] func(ctx context.Context, headers http.Header) (T, error)

// Do invokes op until it succeeds, the error is non-retryable, or the retry
// budget is exhausted. After exhaustion the final attempt's error is
// returned unchanged, without wrapping, so callers see the original kind.
//
// Retryable failures are the transient bucket: transport truncation,
// metadata corruption, server-reported errors, and raw network-level
// failures. Server-reported errors are retried deliberately; do not change
// that without product-owner review. Everything else, client errors in
// particular, propagates immediately.
func Do[T any](ctx context.Context, cfg Config, headers http.Header, op Operation[T]) (T, error) {
	cfg = cfg.withDefaults()
	if headers == nil {
		headers = http.Header{}
	}

	retryCount := 0
	for {
		headers.Set(RetryCountHeader, strconv.Itoa(retryCount))

		result, err := op(ctx, headers)
		if err == nil {
			return result, nil
		}
		if !Retryable(err) || retryCount == cfg.MaxRetries {
			var zero T
			return zero, err
		}

		// No delay before the first re-attempt; subsequent retries back
		// off exponentially with full jitter.
		if retryCount > 0 {
			delay := cfg.BaseDelay * time.Duration(pow(cfg.Multiplier, retryCount-1))
			if delay > cfg.MaxDelay || delay <= 0 {
				delay = cfg.MaxDelay
			}
			delay = time.Duration(float64(delay) * uniform(1.0-cfg.Jitter, 1.0))
			if err := cfg.sleep(ctx, delay); err != nil {
				var zero T
				return zero, err
			}
		}
		retryCount++
	}
}

// Retryable classifies an error as transient. Dispatch is structural,
// on error kinds and types, never message matching.
func Retryable(err error) bool {
	var se *stream.Error
	if errors.As(err, &se) {
		return se.Retryable()
	}

	// Raw transport failures that escaped classification: connection
	// churn mid-body, timeouts, protocol violations.
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return false
}

func pow(base float64, exp int) float64 {
	v := 1.0
	for i := 0; i < exp; i++ {
		v *= base
	}
	return v
}

func uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rand.Float64()*(hi-lo)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
