package dagflow

import (
	"sort"
	"time"
)

// StepState is the terminal state of one step.
type StepState string

const (
	StepStateCompleted StepState = "completed"
	StepStateFailed    StepState = "failed"
)

// StepResult records the final outcome of one step, created once the step's
// last attempt is known. It is immutable after creation.
type StepResult struct {
	StepName  string    `json:"step_name"`
	State     StepState `json:"state"`
	Output    any       `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	Attempts  int       `json:"attempts"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// WorkflowStatus represents the overall state of one workflow execution.
type WorkflowStatus string

const (
	WorkflowStatusPending        WorkflowStatus = "pending"
	WorkflowStatusRunning        WorkflowStatus = "running"
	WorkflowStatusCompleted      WorkflowStatus = "completed"
	WorkflowStatusFailed         WorkflowStatus = "failed"
	WorkflowStatusPartialFailure WorkflowStatus = "partial_failure"
	WorkflowStatusDeadlocked     WorkflowStatus = "deadlocked"
	WorkflowStatusCancelled      WorkflowStatus = "cancelled"
)

// IsTerminal reports whether the status is a final one.
func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusPartialFailure,
		WorkflowStatusDeadlocked, WorkflowStatusCancelled:
		return true
	}
	return false
}

// WorkflowResult aggregates per-step results into the final outcome of one
// workflow execution. It is created at workflow start, updated only by the
// coordinator, and frozen once the workflow reaches a terminal state.
type WorkflowResult struct {
	ExecutionID    string                 `json:"execution_id"`
	WorkflowName   string                 `json:"workflow_name"`
	Status         WorkflowStatus         `json:"status"`
	CompletedSteps map[string]*StepResult `json:"completed_steps"`
	FailedSteps    map[string]*StepResult `json:"failed_steps"`
	SkippedSteps   []string               `json:"skipped_steps"`
	Outputs        map[string]any         `json:"outputs,omitempty"`
	Error          string                 `json:"error,omitempty"`
	StartedAt      time.Time              `json:"started_at,omitzero"`
	EndedAt        time.Time              `json:"ended_at,omitzero"`
}

// Duration returns the wall time of the execution.
func (r *WorkflowResult) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// FailedStepNames returns the names of failed steps in sorted order.
func (r *WorkflowResult) FailedStepNames() []string {
	names := make([]string, 0, len(r.FailedSteps))
	for name := range r.FailedSteps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
