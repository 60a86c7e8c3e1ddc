package dagflow

import "time"

// Checkpoint contains a complete snapshot of execution state
type Checkpoint struct {
	ID             string                 `json:"id"`
	ExecutionID    string                 `json:"execution_id"`
	WorkflowName   string                 `json:"workflow_name"`
	Status         string                 `json:"status"`
	Inputs         map[string]any         `json:"inputs"`
	ContextValues  map[string]any         `json:"context_values"`
	CompletedSteps map[string]*StepResult `json:"completed_steps"`
	FailedSteps    map[string]*StepResult `json:"failed_steps"`
	SkippedSteps   []string               `json:"skipped_steps"`
	Error          string                 `json:"error,omitempty"`
	StartTime      time.Time              `json:"start_time,omitzero"`
	EndTime        time.Time              `json:"end_time,omitzero"`
	CheckpointAt   time.Time              `json:"checkpoint_at"`
}
