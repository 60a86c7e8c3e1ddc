package dagflow

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ExecutionState consolidates all runtime state of one execution. The
// coordinator is the single writer; the mutex exists so that status queries
// from other goroutines (engine, callbacks) see a consistent view. All data
// here is serializable for checkpointing.
type ExecutionState struct {
	executionID  string
	workflowName string
	status       WorkflowStatus
	startTime    time.Time
	endTime      time.Time
	err          string
	inputs       map[string]any
	completed    map[string]*StepResult
	failed       map[string]*StepResult
	skipped      map[string]bool
	inFlight     map[string]bool
	mutex        sync.RWMutex
}

// newExecutionState creates the state for a fresh execution.
func newExecutionState(executionID, workflowName string, inputs map[string]any) *ExecutionState {
	return &ExecutionState{
		executionID:  executionID,
		workflowName: workflowName,
		status:       WorkflowStatusPending,
		inputs:       copyMap(inputs),
		completed:    map[string]*StepResult{},
		failed:       map[string]*StepResult{},
		skipped:      map[string]bool{},
		inFlight:     map[string]bool{},
	}
}

// ID returns the execution ID
func (s *ExecutionState) ID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.executionID
}

// SetID sets the execution ID (used when restoring from a checkpoint)
func (s *ExecutionState) SetID(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.executionID = id
}

// GetStatus returns the current execution status
func (s *ExecutionState) GetStatus() WorkflowStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.status
}

// SetStatus updates the execution status
func (s *ExecutionState) SetStatus(status WorkflowStatus) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.status = status
}

// GetError returns the recorded execution error
func (s *ExecutionState) GetError() error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.err == "" {
		return nil
	}
	return errors.New(s.err)
}

// SetTiming updates the execution timing
func (s *ExecutionState) SetTiming(startTime, endTime time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.startTime = startTime
	s.endTime = endTime
}

// GetStartTime returns the execution start time
func (s *ExecutionState) GetStartTime() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.startTime
}

// SetFinished records the terminal status, end time and error in one step.
func (s *ExecutionState) SetFinished(status WorkflowStatus, endTime time.Time, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.status = status
	s.endTime = endTime
	if err != nil {
		s.err = err.Error()
	} else {
		s.err = ""
	}
}

// MarkInFlight records that a step has been dispatched.
func (s *ExecutionState) MarkInFlight(stepName string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.inFlight[stepName] = true
}

// MarkCompleted moves a step from in-flight to completed.
func (s *ExecutionState) MarkCompleted(result *StepResult) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.inFlight, result.StepName)
	s.completed[result.StepName] = result
}

// MarkFailed moves a step from in-flight to failed.
func (s *ExecutionState) MarkFailed(result *StepResult) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.inFlight, result.StepName)
	s.failed[result.StepName] = result
}

// MarkSkipped records steps that will never be attempted.
func (s *ExecutionState) MarkSkipped(stepNames ...string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, name := range stepNames {
		delete(s.inFlight, name)
		s.skipped[name] = true
	}
}

// ResetFailed clears failed and skipped steps so they can be retried on a
// resumed execution.
func (s *ExecutionState) ResetFailed() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.failed = map[string]*StepResult{}
	s.skipped = map[string]bool{}
	s.inFlight = map[string]bool{}
	s.err = ""
}

// CompletedSet returns the completed step names as a set.
func (s *ExecutionState) CompletedSet() map[string]bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return nameSet(s.completed)
}

// FailedSet returns the failed step names as a set.
func (s *ExecutionState) FailedSet() map[string]bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return nameSet(s.failed)
}

// InFlightSet returns the in-flight step names as a set.
func (s *ExecutionState) InFlightSet() map[string]bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	set := make(map[string]bool, len(s.inFlight))
	for name := range s.inFlight {
		set[name] = true
	}
	return set
}

// SkippedSteps returns the skipped step names in sorted order.
func (s *ExecutionState) SkippedSteps() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	names := make([]string, 0, len(s.skipped))
	for name := range s.skipped {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AttemptedCount returns how many steps made at least one attempt.
func (s *ExecutionState) AttemptedCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	count := len(s.completed)
	for _, result := range s.failed {
		if result.Attempts > 0 {
			count++
		}
	}
	return count
}

// GetInputs creates a shallow copy of the inputs
func (s *ExecutionState) GetInputs() map[string]any {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return copyMap(s.inputs)
}

// Result builds a WorkflowResult snapshot from the current state.
func (s *ExecutionState) Result(outputs map[string]any) *WorkflowResult {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	skipped := make([]string, 0, len(s.skipped))
	for name := range s.skipped {
		skipped = append(skipped, name)
	}
	sort.Strings(skipped)

	return &WorkflowResult{
		ExecutionID:    s.executionID,
		WorkflowName:   s.workflowName,
		Status:         s.status,
		CompletedSteps: copyStepResults(s.completed),
		FailedSteps:    copyStepResults(s.failed),
		SkippedSteps:   skipped,
		Outputs:        copyMap(outputs),
		Error:          s.err,
		StartedAt:      s.startTime,
		EndedAt:        s.endTime,
	}
}

// ToCheckpoint converts the execution state to a checkpoint
func (s *ExecutionState) ToCheckpoint(contextValues map[string]any) *Checkpoint {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	skipped := make([]string, 0, len(s.skipped))
	for name := range s.skipped {
		skipped = append(skipped, name)
	}
	sort.Strings(skipped)

	return &Checkpoint{
		ID:             s.executionID + "-" + fmt.Sprintf("%d", time.Now().UnixNano()),
		ExecutionID:    s.executionID,
		WorkflowName:   s.workflowName,
		Status:         string(s.status),
		Inputs:         copyMap(s.inputs),
		ContextValues:  copyMap(contextValues),
		CompletedSteps: copyStepResults(s.completed),
		FailedSteps:    copyStepResults(s.failed),
		SkippedSteps:   skipped,
		StartTime:      s.startTime,
		EndTime:        s.endTime,
		CheckpointAt:   time.Now(),
		Error:          s.err,
	}
}

// FromCheckpoint restores execution state from a checkpoint
func (s *ExecutionState) FromCheckpoint(checkpoint *Checkpoint) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.workflowName = checkpoint.WorkflowName
	s.status = WorkflowStatus(checkpoint.Status)
	s.inputs = copyMap(checkpoint.Inputs)
	s.completed = copyStepResults(checkpoint.CompletedSteps)
	s.failed = copyStepResults(checkpoint.FailedSteps)
	s.skipped = map[string]bool{}
	for _, name := range checkpoint.SkippedSteps {
		s.skipped[name] = true
	}
	s.inFlight = map[string]bool{}
	s.startTime = checkpoint.StartTime
	s.endTime = checkpoint.EndTime
	s.err = checkpoint.Error
}

func nameSet(results map[string]*StepResult) map[string]bool {
	set := make(map[string]bool, len(results))
	for name := range results {
		set[name] = true
	}
	return set
}

// copyMap creates a shallow copy of a map
func copyMap(m map[string]any) map[string]any {
	copied := make(map[string]any, len(m))
	for k, v := range m {
		copied[k] = v
	}
	return copied
}

// copyStepResults creates a shallow copy of a step result map
func copyStepResults(m map[string]*StepResult) map[string]*StepResult {
	copied := make(map[string]*StepResult, len(m))
	for k, v := range m {
		copied[k] = v
	}
	return copied
}
