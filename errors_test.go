package dagflow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkflowError(t *testing.T) {
	err := NewWorkflowError(ErrorTypeActivityFailed, "request rejected")
	require.Equal(t, "activity_failed: request rejected", err.Error())

	wrapped := &WorkflowError{
		Type:    ErrorTypeTimeout,
		Cause:   "deadline exceeded",
		Wrapped: context.DeadlineExceeded,
	}
	require.True(t, errors.Is(wrapped, context.DeadlineExceeded))
}

func TestClassifyError(t *testing.T) {
	t.Run("existing workflow error passes through", func(t *testing.T) {
		original := NewWorkflowError(ErrorTypeFatal, "broken")
		classified := ClassifyError(fmt.Errorf("wrapped: %w", original))
		require.Equal(t, ErrorTypeFatal, classified.Type)
	})

	t.Run("context cancellation", func(t *testing.T) {
		classified := ClassifyError(context.Canceled)
		require.Equal(t, ErrorTypeCancelled, classified.Type)

		classified = ClassifyError(ErrExecutionCancelled)
		require.Equal(t, ErrorTypeCancelled, classified.Type)
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		classified := ClassifyError(context.DeadlineExceeded)
		require.Equal(t, ErrorTypeTimeout, classified.Type)
	})

	t.Run("timeout message", func(t *testing.T) {
		classified := ClassifyError(errors.New("connection timeout after 30s"))
		require.Equal(t, ErrorTypeTimeout, classified.Type)
	})

	t.Run("unknown errors default to activity failed", func(t *testing.T) {
		classified := ClassifyError(errors.New("something unexpected"))
		require.Equal(t, ErrorTypeActivityFailed, classified.Type)
	})
}

func TestMatchesErrorType(t *testing.T) {
	generic := errors.New("boom")
	timeout := context.DeadlineExceeded
	fatal := NewWorkflowError(ErrorTypeFatal, "bad config")
	custom := NewWorkflowError("network-error", "connection refused")

	require.True(t, MatchesErrorType(generic, ErrorTypeAll))
	require.True(t, MatchesErrorType(generic, ErrorTypeActivityFailed))
	require.False(t, MatchesErrorType(generic, ErrorTypeTimeout))

	require.True(t, MatchesErrorType(timeout, ErrorTypeAll))
	require.True(t, MatchesErrorType(timeout, ErrorTypeTimeout))
	require.False(t, MatchesErrorType(timeout, ErrorTypeActivityFailed))

	// Fatal errors only match the fatal pattern, never the wildcard.
	require.True(t, MatchesErrorType(fatal, ErrorTypeFatal))
	require.False(t, MatchesErrorType(fatal, ErrorTypeAll))
	require.False(t, MatchesErrorType(fatal, ErrorTypeActivityFailed))

	require.True(t, MatchesErrorType(custom, "network-error"))
	require.True(t, MatchesErrorType(custom, ErrorTypeAll))
	require.False(t, MatchesErrorType(custom, "disk-error"))
}

func TestIsValidationError(t *testing.T) {
	require.True(t, IsValidationError(&WorkflowError{Type: ErrorTypeCycleDetected}))
	require.True(t, IsValidationError(&WorkflowError{Type: ErrorTypeDanglingDependency}))
	require.True(t, IsValidationError(
		fmt.Errorf("workflow validation failed: %w", &WorkflowError{Type: ErrorTypeCycleDetected})))
	require.False(t, IsValidationError(&WorkflowError{Type: ErrorTypeActivityFailed}))
	require.False(t, IsValidationError(errors.New("plain error")))
}
