package dagflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	Activities   []Activity
	Logger       *slog.Logger
	StepLogger   StepLogger
	Checkpointer Checkpointer
	Callbacks    ExecutionCallbacks
	Formatter    WorkflowFormatter
}

// Engine runs workflows asynchronously and tracks their executions. The
// activity registry is injected at construction and shared read-only by all
// executions; there is no process-wide registry state.
type Engine struct {
	activities   []Activity
	logger       *slog.Logger
	stepLogger   StepLogger
	checkpointer Checkpointer
	callbacks    ExecutionCallbacks
	formatter    WorkflowFormatter

	mutex      sync.RWMutex
	executions map[string]*executionHandle
}

// executionHandle pairs a running execution with its completion signal.
type executionHandle struct {
	execution *Execution
	done      chan struct{}
	result    *WorkflowResult
}

// NewEngine creates a new Engine with the given options.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if len(opts.Activities) == 0 {
		return nil, fmt.Errorf("activities are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		activities:   opts.Activities,
		logger:       opts.Logger,
		stepLogger:   opts.StepLogger,
		checkpointer: opts.Checkpointer,
		callbacks:    opts.Callbacks,
		formatter:    opts.Formatter,
		executions:   map[string]*executionHandle{},
	}, nil
}

// Submit validates the workflow against this engine's activities and starts
// it asynchronously, returning the new execution ID. Validation errors are
// returned synchronously; step failures during the run are reported through
// the WorkflowResult, never as errors here.
func (e *Engine) Submit(ctx context.Context, workflow *Workflow, inputs map[string]any) (string, error) {
	execution, err := NewExecution(ExecutionOptions{
		Workflow:     workflow,
		Inputs:       inputs,
		Activities:   e.activities,
		Logger:       e.logger,
		StepLogger:   e.stepLogger,
		Checkpointer: e.checkpointer,
		Callbacks:    e.callbacks,
		Formatter:    e.formatter,
	})
	if err != nil {
		return "", err
	}

	handle := &executionHandle{
		execution: execution,
		done:      make(chan struct{}),
	}
	e.mutex.Lock()
	e.executions[execution.ID()] = handle
	e.mutex.Unlock()

	// The run outlives the Submit call; it is stopped via Cancel, not via
	// the submitter's context.
	go func() {
		result, err := execution.Run(context.Background())
		if err != nil {
			e.logger.Error("execution could not run", "execution_id", execution.ID(), "error", err)
			result = execution.Result()
		}
		e.mutex.Lock()
		handle.result = result
		e.mutex.Unlock()
		close(handle.done)
	}()

	return execution.ID(), nil
}

// AwaitResult blocks until the execution reaches a terminal state or the
// context is done, and returns the final workflow result.
func (e *Engine) AwaitResult(ctx context.Context, executionID string) (*WorkflowResult, error) {
	handle, ok := e.getHandle(executionID)
	if !ok {
		return nil, ErrExecutionNotFound
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-handle.done:
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return handle.result, nil
}

// Cancel requests cancellation of a running execution. It returns false if
// the execution is unknown or already reached a terminal state.
func (e *Engine) Cancel(executionID string) bool {
	handle, ok := e.getHandle(executionID)
	if !ok {
		return false
	}
	select {
	case <-handle.done:
		return false
	default:
	}
	if handle.execution.Status().IsTerminal() {
		return false
	}
	handle.execution.RequestCancel()
	return true
}

// GetStatus returns a snapshot of the execution's workflow result. For a
// running execution the snapshot reflects progress so far.
func (e *Engine) GetStatus(executionID string) (*WorkflowResult, error) {
	handle, ok := e.getHandle(executionID)
	if !ok {
		return nil, ErrExecutionNotFound
	}
	select {
	case <-handle.done:
		e.mutex.RLock()
		defer e.mutex.RUnlock()
		return handle.result, nil
	default:
		return handle.execution.Result(), nil
	}
}

func (e *Engine) getHandle(executionID string) (*executionHandle, bool) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	handle, ok := e.executions[executionID]
	return handle, ok
}
