package retry

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBaseWait   = time.Second
	defaultMaxWait    = 30 * time.Second
)

// Option configures a retry loop.
type Option func(*config)

type config struct {
	maxRetries int
	baseWait   time.Duration
	maxWait    time.Duration
	jitter     bool
}

// WithMaxRetries sets how many times the function is retried after the
// first attempt. Zero means a single attempt.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBaseWait sets the wait before the first retry. Subsequent waits
// double per attempt.
func WithBaseWait(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.baseWait = d
		}
	}
}

// WithMaxWait caps the backoff wait.
func WithMaxWait(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.maxWait = d
		}
	}
}

// WithJitter randomizes each wait in [wait/2, wait]. The cap set by
// WithMaxWait still holds.
func WithJitter() Option {
	return func(c *config) {
		c.jitter = true
	}
}

// Do calls fn until it succeeds, up to 1+maxRetries attempts, waiting with
// exponential backoff between attempts. Errors that are not recoverable
// (per IsRecoverable) stop the loop immediately. The last error is returned
// when attempts are exhausted.
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	c := &config{
		maxRetries: defaultMaxRetries,
		baseWait:   defaultBaseWait,
		maxWait:    defaultMaxWait,
	}
	for _, opt := range opts {
		opt(c)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRecoverable(lastErr) {
			return lastErr
		}
		if attempt == c.maxRetries {
			break
		}
		if err := Wait(ctx, WaitDuration(attempt, c.baseWait, c.maxWait, c.jitter)); err != nil {
			return err
		}
	}
	return lastErr
}

// WaitDuration returns the backoff wait before the attempt that follows
// attempt i: min(base * 2^i, max), optionally jittered downward.
func WaitDuration(attempt int, base, max time.Duration, jitter bool) time.Duration {
	wait := base
	for i := 0; i < attempt; i++ {
		wait *= 2
		if wait >= max {
			wait = max
			break
		}
	}
	if wait > max {
		wait = max
	}
	if jitter && wait > 0 {
		wait = wait/2 + time.Duration(rand.Int63n(int64(wait/2)+1))
	}
	return wait
}

// Wait blocks for the given duration or until the context is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
