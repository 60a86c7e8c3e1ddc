package dagflow

import (
	"context"
	"errors"
	"time"

	"github.com/deepnoodle-ai/dagflow/retry"
)

// runStep executes one step to its terminal outcome: a bounded attempt loop
// with exponential backoff between failed attempts. Cancellation is checked
// before every attempt and before every wait; once observed, no further
// attempts are made.
func (e *Execution) runStep(ctx context.Context, step *Step) *StepResult {
	activity := e.activities[step.Activity]
	startedAt := time.Now()

	var lastErr error
	for attempt := 0; attempt <= step.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return cancelledStepResult(step, attempt, startedAt)
		}

		output, err := e.executeAttempt(ctx, step, activity, attempt)
		if err == nil {
			return &StepResult{
				StepName:  step.Name,
				State:     StepStateCompleted,
				Output:    output,
				Attempts:  attempt + 1,
				StartedAt: startedAt,
				EndedAt:   time.Now(),
			}
		}
		lastErr = err

		if isTerminalAttemptError(err) {
			e.logger.Warn("step failed with terminal error",
				"step", step.Name, "attempt", attempt+1, "error", err)
			return failedStepResult(step, err, attempt+1, startedAt)
		}
		if attempt == step.MaxRetries {
			break
		}

		delay := retry.WaitDuration(attempt, step.retryBaseDelay(), step.retryMaxDelay(), false)
		e.logger.Debug("step attempt failed, backing off",
			"step", step.Name, "attempt", attempt+1, "delay", delay, "error", err)
		if waitErr := retry.Wait(ctx, delay); waitErr != nil {
			return cancelledStepResult(step, attempt+1, startedAt)
		}
	}

	e.logger.Warn("step exhausted retries",
		"step", step.Name, "attempts", step.MaxRetries+1, "error", lastErr)
	return failedStepResult(step, lastErr, step.MaxRetries+1, startedAt)
}

// isTerminalAttemptError decides whether an attempt error ends the step
// immediately instead of being retried. Unknown errors are retryable by
// default; only explicit non-recoverable markers, fatal classification,
// and cancellation are terminal.
func isTerminalAttemptError(err error) bool {
	var recoverable retry.RecoverableError
	if errors.As(err, &recoverable) {
		return !recoverable.IsRecoverable()
	}
	switch ClassifyError(err).Type {
	case ErrorTypeFatal, ErrorTypeCancelled:
		return true
	}
	return false
}

func failedStepResult(step *Step, err error, attempts int, startedAt time.Time) *StepResult {
	return &StepResult{
		StepName:  step.Name,
		State:     StepStateFailed,
		Error:     err.Error(),
		Attempts:  attempts,
		StartedAt: startedAt,
		EndedAt:   time.Now(),
	}
}

// cancelledStepResult records a step stopped by workflow-level cancellation.
// Attempts holds the number of attempts actually made; zero means the step
// never ran and is treated as skipped by the coordinator.
func cancelledStepResult(step *Step, attempts int, startedAt time.Time) *StepResult {
	return &StepResult{
		StepName:  step.Name,
		State:     StepStateFailed,
		Error:     ErrExecutionCancelled.Error(),
		Attempts:  attempts,
		StartedAt: startedAt,
		EndedAt:   time.Now(),
	}
}
