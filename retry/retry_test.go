package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverableError(t *testing.T) {
	err := NewRecoverableError(errors.New("test error"))
	assert.True(t, IsRecoverable(err))
	assert.False(t, IsRecoverable(errors.New("test error")))
	assert.False(t, IsRecoverable(nil))
}

func TestRecoverableHeuristics(t *testing.T) {
	assert.True(t, IsRecoverable(context.DeadlineExceeded))
	assert.False(t, IsRecoverable(context.Canceled))
	assert.True(t, IsRecoverable(errors.New("503 service unavailable")))
	assert.True(t, IsRecoverable(errors.New("connection refused")))
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	count := 0
	err := Do(ctx, func() error {
		count++
		return NewRecoverableError(errors.New("test error"))
	}, WithMaxRetries(3), WithBaseWait(time.Millisecond*20))
	assert.Error(t, err)
	assert.Equal(t, "test error", err.Error())
	assert.Equal(t, 4, count)
}

func TestRetryZeroMaxRetries(t *testing.T) {
	ctx := context.Background()
	count := 0
	err := Do(ctx, func() error {
		count++
		return NewRecoverableError(errors.New("test error"))
	}, WithMaxRetries(0), WithBaseWait(time.Millisecond*20))
	assert.Error(t, err)
	assert.Equal(t, "test error", err.Error())
	assert.Equal(t, 1, count) // Should still try once even with 0 retries
}

func TestRetryStopsOnNonRecoverable(t *testing.T) {
	ctx := context.Background()
	count := 0
	err := Do(ctx, func() error {
		count++
		return NewNonRecoverableError(errors.New("fatal"))
	}, WithMaxRetries(5), WithBaseWait(time.Millisecond))
	require.Error(t, err)
	assert.Equal(t, 1, count)
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	ctx := context.Background()
	count := 0
	err := Do(ctx, func() error {
		count++
		if count < 3 {
			return NewRecoverableError(errors.New("transient"))
		}
		return nil
	}, WithMaxRetries(5), WithBaseWait(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestWaitDuration(t *testing.T) {
	base := 10 * time.Millisecond
	max := 80 * time.Millisecond
	assert.Equal(t, 10*time.Millisecond, WaitDuration(0, base, max, false))
	assert.Equal(t, 20*time.Millisecond, WaitDuration(1, base, max, false))
	assert.Equal(t, 40*time.Millisecond, WaitDuration(2, base, max, false))
	assert.Equal(t, 80*time.Millisecond, WaitDuration(3, base, max, false))
	assert.Equal(t, 80*time.Millisecond, WaitDuration(10, base, max, false))
}

func TestWaitDurationJitterNeverExceedsCap(t *testing.T) {
	base := 10 * time.Millisecond
	max := 40 * time.Millisecond
	for i := 0; i < 100; i++ {
		wait := WaitDuration(5, base, max, true)
		assert.LessOrEqual(t, wait, max)
		assert.GreaterOrEqual(t, wait, max/2)
	}
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := Do(ctx, func() error {
		count++
		return NewRecoverableError(errors.New("transient"))
	}, WithMaxRetries(100), WithBaseWait(50*time.Millisecond))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, count)
}
