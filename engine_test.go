package dagflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T, activities ...Activity) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineOptions{Activities: activities})
	require.NoError(t, err)
	return engine
}

func TestEngineSubmitAndAwait(t *testing.T) {
	engine := testEngine(t,
		NewActivityFunction("echo", func(ctx context.Context, params map[string]any) (any, error) {
			return params["value"], nil
		}),
	)

	wf, err := New(Options{
		Name: "echo-workflow",
		Steps: []*Step{
			{Name: "say", Activity: "echo", Parameters: map[string]any{"value": "hi"}},
		},
	})
	require.NoError(t, err)

	executionID, err := engine.Submit(context.Background(), wf, nil)
	require.NoError(t, err)
	require.NotEmpty(t, executionID)

	result, err := engine.AwaitResult(context.Background(), executionID)
	require.NoError(t, err)
	require.Equal(t, executionID, result.ExecutionID)
	require.Equal(t, WorkflowStatusCompleted, result.Status)
	require.Equal(t, "hi", result.Outputs["say"])
}

func TestEngineSubmitValidationErrors(t *testing.T) {
	engine := testEngine(t,
		NewActivityFunction("noop", func(ctx context.Context, params map[string]any) (any, error) {
			return nil, nil
		}),
	)

	t.Run("unknown activity rejected synchronously", func(t *testing.T) {
		wf, err := New(Options{
			Name:  "bad",
			Steps: []*Step{{Name: "s", Activity: "missing"}},
		})
		require.NoError(t, err)

		_, err = engine.Submit(context.Background(), wf, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "unknown activity")
	})

	t.Run("missing required input rejected synchronously", func(t *testing.T) {
		wf, err := New(Options{
			Name:   "needs-input",
			Inputs: []*Input{{Name: "token", Type: "string"}},
			Steps:  []*Step{{Name: "s", Activity: "noop"}},
		})
		require.NoError(t, err)

		_, err = engine.Submit(context.Background(), wf, nil)
		require.Error(t, err)
	})
}

func TestEngineUnknownExecution(t *testing.T) {
	engine := testEngine(t,
		NewActivityFunction("noop", func(ctx context.Context, params map[string]any) (any, error) {
			return nil, nil
		}),
	)

	_, err := engine.AwaitResult(context.Background(), "exec_missing")
	require.ErrorIs(t, err, ErrExecutionNotFound)

	_, err = engine.GetStatus("exec_missing")
	require.ErrorIs(t, err, ErrExecutionNotFound)

	require.False(t, engine.Cancel("exec_missing"))
}

func TestEngineGetStatusWhileRunning(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	engine := testEngine(t,
		NewActivityFunction("gate", func(ctx context.Context, params map[string]any) (any, error) {
			close(started)
			select {
			case <-release:
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}),
	)

	wf, err := New(Options{
		Name:  "gated",
		Steps: []*Step{{Name: "hold", Activity: "gate"}},
	})
	require.NoError(t, err)

	executionID, err := engine.Submit(context.Background(), wf, nil)
	require.NoError(t, err)

	<-started
	status, err := engine.GetStatus(executionID)
	require.NoError(t, err)
	require.Equal(t, WorkflowStatusRunning, status.Status)

	close(release)
	result, err := engine.AwaitResult(context.Background(), executionID)
	require.NoError(t, err)
	require.Equal(t, WorkflowStatusCompleted, result.Status)

	status, err = engine.GetStatus(executionID)
	require.NoError(t, err)
	require.Equal(t, WorkflowStatusCompleted, status.Status)
}

func TestEngineCancel(t *testing.T) {
	started := make(chan struct{})

	engine := testEngine(t,
		NewActivityFunction("wait", func(ctx context.Context, params map[string]any) (any, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	)

	wf, err := New(Options{
		Name:  "cancellable",
		Steps: []*Step{{Name: "long", Activity: "wait"}},
	})
	require.NoError(t, err)

	executionID, err := engine.Submit(context.Background(), wf, nil)
	require.NoError(t, err)

	<-started
	require.True(t, engine.Cancel(executionID))

	result, err := engine.AwaitResult(context.Background(), executionID)
	require.NoError(t, err)
	require.Equal(t, WorkflowStatusCancelled, result.Status)

	// Cancelling a terminal execution reports false.
	require.False(t, engine.Cancel(executionID))
}

func TestEngineAwaitResultContextDeadline(t *testing.T) {
	engine := testEngine(t,
		NewActivityFunction("wait", func(ctx context.Context, params map[string]any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	)

	wf, err := New(Options{
		Name:  "slow",
		Steps: []*Step{{Name: "long", Activity: "wait"}},
	})
	require.NoError(t, err)

	executionID, err := engine.Submit(context.Background(), wf, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = engine.AwaitResult(ctx, executionID)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))

	require.True(t, engine.Cancel(executionID))
	result, err := engine.AwaitResult(context.Background(), executionID)
	require.NoError(t, err)
	require.Equal(t, WorkflowStatusCancelled, result.Status)
}

func TestNewEngineRequiresActivities(t *testing.T) {
	_, err := NewEngine(EngineOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "activities are required")
}
