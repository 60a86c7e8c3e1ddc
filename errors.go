package dagflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error type constants for classification and matching
const (
	// ErrorTypeAll acts as a wildcard that matches any error except fatal errors
	ErrorTypeAll = "all"

	// ErrorTypeActivityFailed matches any error except timeouts and fatal errors
	ErrorTypeActivityFailed = "activity_failed"

	// ErrorTypeTimeout matches a per-attempt timeout
	ErrorTypeTimeout = "timeout"

	// ErrorTypeCancelled indicates a workflow-level cancellation was observed
	ErrorTypeCancelled = "cancelled"

	// ErrorTypeCycleDetected indicates the workflow definition contains a
	// dependency cycle. Raised at validation time, before any execution.
	ErrorTypeCycleDetected = "cycle_detected"

	// ErrorTypeDanglingDependency indicates a step depends on a step that is
	// not present in the workflow. Raised at validation time.
	ErrorTypeDanglingDependency = "dangling_dependency"

	// ErrorTypeFatal indicates an attempt failed with an error that should
	// not be retried. The approach we're taking is that by default, unknown
	// errors are classified as activity failed errors, because we want to
	// allow retries on unknown errors by default. If we know a specific
	// error should NOT be retried, it should have type=ErrorTypeFatal set.
	ErrorTypeFatal = "fatal_error"
)

// ErrExecutionNotFound is returned by engine queries for unknown execution IDs.
var ErrExecutionNotFound = errors.New("execution not found")

// ErrExecutionCancelled is the terminal error recorded on steps that were
// never attempted again because cancellation was observed.
var ErrExecutionCancelled = errors.New("execution cancelled")

// WorkflowError represents a structured error with classification.
// It supports Go's error wrapping patterns with Unwrap() method.
type WorkflowError struct {
	Type    string `json:"type"`
	Cause   string `json:"cause"`
	Details any    `json:"details,omitempty"`
	Wrapped error  `json:"-"` // Original error being wrapped
}

// Error implements the error interface
func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Cause)
}

// Unwrap implements the error unwrapping interface for Go's errors.Is and errors.As
func (e *WorkflowError) Unwrap() error {
	return e.Wrapped
}

// NewWorkflowError creates a new WorkflowError with the specified type and
// cause. The type can be any user-defined string e.g. "network-error".
func NewWorkflowError(errorType, cause string) *WorkflowError {
	return &WorkflowError{
		Type:  errorType,
		Cause: cause,
	}
}

// IsValidationError reports whether the error was raised while validating a
// workflow definition, before any execution started.
func IsValidationError(err error) bool {
	var workflowError *WorkflowError
	if !errors.As(err, &workflowError) {
		return false
	}
	return workflowError.Type == ErrorTypeCycleDetected ||
		workflowError.Type == ErrorTypeDanglingDependency
}

// ClassifyError attempts to classify a regular error into a WorkflowError
func ClassifyError(err error) *WorkflowError {
	// If the error is already a WorkflowError, return it
	var workflowError *WorkflowError
	if errors.As(err, &workflowError) {
		return workflowError
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrExecutionCancelled) {
		return &WorkflowError{
			Type:    ErrorTypeCancelled,
			Cause:   err.Error(),
			Wrapped: err,
		}
	}
	// Check for timeout patterns
	if errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return &WorkflowError{
			Type:    ErrorTypeTimeout,
			Cause:   err.Error(),
			Wrapped: err,
		}
	}
	// Default to an activity failed error
	return &WorkflowError{
		Type:    ErrorTypeActivityFailed,
		Cause:   err.Error(),
		Wrapped: err,
	}
}

// MatchesErrorType checks if an error matches a specified error type pattern
func MatchesErrorType(err error, errorType string) bool {
	wErr := ClassifyError(err)
	// Fatal errors are only matched by the ErrorTypeFatal pattern
	if wErr.Type == ErrorTypeFatal {
		return errorType == ErrorTypeFatal
	}
	switch errorType {
	case ErrorTypeAll:
		return true
	case ErrorTypeActivityFailed:
		return wErr.Type != ErrorTypeTimeout && wErr.Type != ErrorTypeCancelled
	default:
		// Arbitrary error type strings are supported here, not just the
		// fixed set of constants above.
		return wErr.Type == errorType
	}
}
