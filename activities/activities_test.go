package activities

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deepnoodle-ai/dagflow"
	"github.com/deepnoodle-ai/dagflow/retry"
	"github.com/stretchr/testify/require"
)

func TestAllActivitiesHaveUniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, activity := range All() {
		require.False(t, seen[activity.Name()], "duplicate activity name %q", activity.Name())
		seen[activity.Name()] = true
	}
	require.True(t, seen["print"])
	require.True(t, seen["script"])
}

func TestWaitActivity(t *testing.T) {
	activity := NewWaitActivity()

	t.Run("string duration", func(t *testing.T) {
		start := time.Now()
		result, err := activity.Execute(context.Background(), map[string]any{
			"duration": "20ms",
		})
		require.NoError(t, err)
		require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

		waited, ok := result.(WaitResult)
		require.True(t, ok)
		require.Equal(t, 20*time.Millisecond, waited.Duration)
	})

	t.Run("numeric duration in seconds", func(t *testing.T) {
		result, err := activity.Execute(context.Background(), map[string]any{
			"duration": 0.01,
		})
		require.NoError(t, err)
		require.Equal(t, 10*time.Millisecond, result.(WaitResult).Duration)
	})

	t.Run("missing duration errors", func(t *testing.T) {
		_, err := activity.Execute(context.Background(), map[string]any{})
		require.Error(t, err)
	})

	t.Run("cancellation interrupts wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		start := time.Now()
		_, err := activity.Execute(ctx, map[string]any{"duration": "5s"})
		require.Error(t, err)
		require.Less(t, time.Since(start), time.Second)
	})
}

func TestFailActivity(t *testing.T) {
	activity := NewFailActivity()

	_, err := activity.Execute(context.Background(), map[string]any{
		"message": "broken pipeline",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken pipeline")
	var marker retry.RecoverableError
	require.False(t, errors.As(err, &marker))

	_, err = activity.Execute(context.Background(), map[string]any{
		"message":   "no retry",
		"permanent": true,
	})
	require.Error(t, err)
	require.True(t, errors.As(err, &marker))
	require.False(t, marker.IsRecoverable())
}

func TestTimeActivity(t *testing.T) {
	activity := NewTimeActivity()

	result, err := activity.Execute(context.Background(), map[string]any{"utc": true})
	require.NoError(t, err)
	now, ok := result.(time.Time)
	require.True(t, ok)
	require.Equal(t, time.UTC, now.Location())

	result, err = activity.Execute(context.Background(), map[string]any{
		"format": time.RFC3339,
	})
	require.NoError(t, err)
	formatted, ok := result.(string)
	require.True(t, ok)
	_, err = time.Parse(time.RFC3339, formatted)
	require.NoError(t, err)
}

func TestRandomActivity(t *testing.T) {
	activity := NewRandomActivity()

	t.Run("seeded numbers are reproducible", func(t *testing.T) {
		params := map[string]any{"type": "number", "min": 1, "max": 100, "seed": 7}
		first, err := activity.Execute(context.Background(), params)
		require.NoError(t, err)
		second, err := activity.Execute(context.Background(), params)
		require.NoError(t, err)
		require.Equal(t, first, second)
	})

	t.Run("uuid shape", func(t *testing.T) {
		result, err := activity.Execute(context.Background(), map[string]any{"type": "uuid"})
		require.NoError(t, err)
		require.Len(t, result.(string), 36)
	})

	t.Run("choice respects options", func(t *testing.T) {
		result, err := activity.Execute(context.Background(), map[string]any{
			"type":    "choice",
			"choices": []string{"red", "green", "blue"},
		})
		require.NoError(t, err)
		require.Contains(t, []string{"red", "green", "blue"}, result)
	})

	t.Run("count returns a list", func(t *testing.T) {
		result, err := activity.Execute(context.Background(), map[string]any{
			"type": "hex", "count": 3, "length": 4,
		})
		require.NoError(t, err)
		require.Len(t, result.([]any), 3)
	})

	t.Run("unsupported type errors", func(t *testing.T) {
		_, err := activity.Execute(context.Background(), map[string]any{"type": "color"})
		require.Error(t, err)
	})
}

func TestHTTPActivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"method":"` + r.Method + `"}`))
	}))
	defer server.Close()

	activity := NewHTTPActivity()

	result, err := activity.Execute(context.Background(), map[string]any{
		"url":    server.URL,
		"method": "post",
		"json_payload": map[string]any{
			"hello": "world",
		},
	})
	require.NoError(t, err)

	output, ok := result.(HTTPOutput)
	require.True(t, ok)
	require.True(t, output.Success)
	require.Equal(t, http.StatusOK, output.StatusCode)
	require.Equal(t, "POST", output.JSONResponse["method"])

	_, err = activity.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
}

func TestHTTPActivityRetries(t *testing.T) {
	activity := NewHTTPActivity()

	t.Run("transient transport errors are retried", func(t *testing.T) {
		// Take the URL of a server that has already shut down so every
		// attempt fails with connection refused, which the retry
		// heuristics classify as recoverable.
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		start := time.Now()
		_, err := activity.Execute(context.Background(), map[string]any{
			"url":     url,
			"retries": 2,
		})
		elapsed := time.Since(start)
		require.Error(t, err)
		require.Contains(t, err.Error(), "connection refused")
		// Two jittered backoff waits of at least 100ms and 200ms must
		// have elapsed between the three attempts.
		require.GreaterOrEqual(t, elapsed, 250*time.Millisecond)
	})

	t.Run("request construction errors are not retried", func(t *testing.T) {
		_, err := activity.Execute(context.Background(), map[string]any{
			"url":     "http://localhost:1",
			"method":  "BAD METHOD",
			"retries": 5,
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create request")
	})
}

func TestScriptActivity(t *testing.T) {
	activity := NewScriptActivity()

	t.Run("evaluates an expression", func(t *testing.T) {
		result, err := activity.Execute(context.Background(), map[string]any{
			"code": "1 + 2",
		})
		require.NoError(t, err)
		require.Equal(t, int64(3), result)
	})

	t.Run("reads upstream state", func(t *testing.T) {
		state := dagflow.NewExecutionContext(map[string]any{"greeting": "hello"})
		ctx := dagflow.WithExecutionState(context.Background(), state)

		result, err := activity.Execute(ctx, map[string]any{
			"code": `state["greeting"] + " world"`,
		})
		require.NoError(t, err)
		require.Equal(t, "hello world", result)
	})

	t.Run("extra globals are exposed", func(t *testing.T) {
		result, err := activity.Execute(context.Background(), map[string]any{
			"code": "factor * 2",
			"globals": map[string]any{
				"factor": 21,
			},
		})
		require.NoError(t, err)
		require.Equal(t, int64(42), result)
	})

	t.Run("missing code errors", func(t *testing.T) {
		_, err := activity.Execute(context.Background(), map[string]any{})
		require.Error(t, err)
	})

	t.Run("syntax error surfaces", func(t *testing.T) {
		_, err := activity.Execute(context.Background(), map[string]any{
			"code": "1 +",
		})
		require.Error(t, err)
	})
}

func TestActivitiesInsideWorkflow(t *testing.T) {
	wf, err := dagflow.New(dagflow.Options{
		Name: "builtin-pipeline",
		Steps: []*dagflow.Step{
			{
				Name:       "pick",
				Activity:   "random",
				Parameters: map[string]any{"type": "number", "min": 1, "max": 10, "seed": 3},
			},
			{
				Name:         "double",
				Activity:     "script",
				Dependencies: []string{"pick"},
				Parameters:   map[string]any{"code": `state["pick"] * 2`},
			},
		},
	})
	require.NoError(t, err)

	execution, err := dagflow.NewExecution(dagflow.ExecutionOptions{
		Workflow:   wf,
		Activities: All(),
	})
	require.NoError(t, err)

	result, err := execution.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, dagflow.WorkflowStatusCompleted, result.Status)

	picked, ok := result.Outputs["pick"].(int)
	require.True(t, ok)
	doubled, ok := result.Outputs["double"].(int64)
	require.True(t, ok)
	require.Equal(t, int64(picked*2), doubled)
}
