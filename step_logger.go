package dagflow

import (
	"context"
	"time"
)

// StepLogEntry records a single step attempt
type StepLogEntry struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	StepName    string         `json:"step_name"`
	Activity    string         `json:"activity"`
	Attempt     int            `json:"attempt"`
	Parameters  map[string]any `json:"parameters"`
	Result      any            `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartTime   time.Time      `json:"start_time"`
	Duration    float64        `json:"duration"`
}

// StepLogger defines simple step attempt logging interface
type StepLogger interface {
	// LogStep logs a completed step attempt
	LogStep(ctx context.Context, entry *StepLogEntry) error

	// GetStepHistory retrieves the step attempt log for an execution
	GetStepHistory(ctx context.Context, executionID string) ([]*StepLogEntry, error)
}
