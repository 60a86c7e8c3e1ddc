package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/deepnoodle-ai/dagflow"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres launches a throwaway database for the test. Requires a
// working Docker environment; skipped in short mode.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("dagflow"),
		tcpostgres.WithUsername("dagflow"),
		tcpostgres.WithPassword("dagflow"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestCheckpointerRoundTrip(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	checkpointer, err := New(ctx, dsn)
	require.NoError(t, err)
	defer checkpointer.Close()

	start := time.Now().UTC().Truncate(time.Millisecond)
	checkpoint := &dagflow.Checkpoint{
		ID:           "1",
		ExecutionID:  "exec_roundtrip",
		WorkflowName: "pipeline",
		Status:       string(dagflow.WorkflowStatusRunning),
		Inputs:       map[string]any{"env": "staging"},
		ContextValues: map[string]any{
			"fetch": "payload",
		},
		CompletedSteps: map[string]*dagflow.StepResult{
			"fetch": {
				StepName: "fetch",
				State:    dagflow.StepStateCompleted,
				Output:   "payload",
				Attempts: 1,
			},
		},
		FailedSteps:  map[string]*dagflow.StepResult{},
		SkippedSteps: []string{},
		StartTime:    start,
		CheckpointAt: start,
	}
	require.NoError(t, checkpointer.SaveCheckpoint(ctx, checkpoint))

	loaded, err := checkpointer.LoadCheckpoint(ctx, "exec_roundtrip")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "pipeline", loaded.WorkflowName)
	require.Equal(t, "staging", loaded.Inputs["env"])
	require.Contains(t, loaded.CompletedSteps, "fetch")
	require.Equal(t, 1, loaded.CompletedSteps["fetch"].Attempts)
}

func TestCheckpointerUpsert(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	checkpointer, err := New(ctx, dsn)
	require.NoError(t, err)
	defer checkpointer.Close()

	checkpoint := &dagflow.Checkpoint{
		ExecutionID:  "exec_upsert",
		WorkflowName: "pipeline",
		Status:       string(dagflow.WorkflowStatusRunning),
	}
	require.NoError(t, checkpointer.SaveCheckpoint(ctx, checkpoint))

	checkpoint.Status = string(dagflow.WorkflowStatusCompleted)
	require.NoError(t, checkpointer.SaveCheckpoint(ctx, checkpoint))

	loaded, err := checkpointer.LoadCheckpoint(ctx, "exec_upsert")
	require.NoError(t, err)
	require.Equal(t, string(dagflow.WorkflowStatusCompleted), loaded.Status)

	summaries, err := checkpointer.ListExecutions(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "exec_upsert", summaries[0].ExecutionID)
}

func TestCheckpointerMissingAndDelete(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	checkpointer, err := New(ctx, dsn)
	require.NoError(t, err)
	defer checkpointer.Close()

	loaded, err := checkpointer.LoadCheckpoint(ctx, "exec_missing")
	require.NoError(t, err)
	require.Nil(t, loaded)

	checkpoint := &dagflow.Checkpoint{
		ExecutionID:  "exec_delete",
		WorkflowName: "pipeline",
		Status:       string(dagflow.WorkflowStatusCompleted),
	}
	require.NoError(t, checkpointer.SaveCheckpoint(ctx, checkpoint))
	require.NoError(t, checkpointer.DeleteCheckpoint(ctx, "exec_delete"))

	loaded, err = checkpointer.LoadCheckpoint(ctx, "exec_delete")
	require.NoError(t, err)
	require.Nil(t, loaded)
}

// The checkpointer plugs into a real execution and allows resuming it.
func TestCheckpointerWithExecution(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	checkpointer, err := New(ctx, dsn)
	require.NoError(t, err)
	defer checkpointer.Close()

	wf, err := dagflow.New(dagflow.Options{
		Name: "persisted",
		Steps: []*dagflow.Step{
			{Name: "only", Activity: "echo", Parameters: map[string]any{"value": "ok"}},
		},
	})
	require.NoError(t, err)

	execution, err := dagflow.NewExecution(dagflow.ExecutionOptions{
		Workflow:     wf,
		Checkpointer: checkpointer,
		Activities: []dagflow.Activity{
			dagflow.NewActivityFunction("echo", func(ctx context.Context, params map[string]any) (any, error) {
				return params["value"], nil
			}),
		},
	})
	require.NoError(t, err)

	result, err := execution.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, dagflow.WorkflowStatusCompleted, result.Status)

	loaded, err := checkpointer.LoadCheckpoint(ctx, execution.ID())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, string(dagflow.WorkflowStatusCompleted), loaded.Status)
	require.Equal(t, "ok", loaded.ContextValues["only"])
}
