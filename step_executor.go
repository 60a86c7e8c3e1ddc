package dagflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// executeAttempt performs a single attempt of a step's activity, racing it
// against the step's per-attempt timeout when one is set. Panics escaping
// the activity are caught and converted into attempt errors; nothing from a
// step activity may terminate the coordinator.
func (e *Execution) executeAttempt(ctx context.Context, step *Step, activity Activity, attempt int) (any, error) {
	attemptCtx := ctx
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}
	attemptCtx = WithLogger(attemptCtx, e.logger)
	attemptCtx = WithExecutionState(attemptCtx, e.execContext)

	startTime := time.Now()
	attemptEvent := &AttemptExecutionEvent{
		ExecutionID:  e.state.ID(),
		WorkflowName: e.workflow.Name(),
		StepName:     step.Name,
		ActivityName: activity.Name(),
		Attempt:      attempt,
		Parameters:   copyMap(step.Parameters),
		StartTime:    startTime,
	}
	e.callbacks.BeforeAttemptExecution(attemptCtx, attemptEvent)

	output, err := invokeActivity(attemptCtx, activity, step.Parameters)

	// Distinguish a per-attempt timeout from a workflow-level cancellation.
	if err != nil && attemptCtx.Err() != nil && ctx.Err() == nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			err = &WorkflowError{
				Type:    ErrorTypeTimeout,
				Cause:   fmt.Sprintf("step %q attempt %d exceeded timeout %s", step.Name, attempt+1, step.Timeout),
				Wrapped: err,
			}
		}
	}

	endTime := time.Now()
	attemptEvent.Result = output
	attemptEvent.EndTime = endTime
	attemptEvent.Duration = endTime.Sub(startTime)
	attemptEvent.Error = err
	e.callbacks.AfterAttemptExecution(attemptCtx, attemptEvent)

	logEntry := &StepLogEntry{
		ExecutionID: e.state.ID(),
		StepName:    step.Name,
		Activity:    activity.Name(),
		Attempt:     attempt,
		Parameters:  step.Parameters,
		Result:      output,
		StartTime:   startTime,
		Duration:    endTime.Sub(startTime).Seconds(),
	}
	if err != nil {
		logEntry.Error = err.Error()
	}
	if logErr := e.stepLogger.LogStep(attemptCtx, logEntry); logErr != nil {
		e.logger.Error("failed to log step attempt", "step", step.Name, "error", logErr)
	}

	return output, err
}

// invokeActivity calls the activity with panic recovery at the invocation
// boundary.
func invokeActivity(ctx context.Context, activity Activity, params map[string]any) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = fmt.Errorf("activity %q panicked: %v", activity.Name(), r)
		}
	}()
	return activity.Execute(ctx, params)
}
