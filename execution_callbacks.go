package dagflow

import (
	"context"
	"time"
)

// ExecutionCallbacks defines the callback interface for workflow execution events
type ExecutionCallbacks interface {
	// Workflow-level callbacks
	BeforeWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent)
	AfterWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent)

	// Step-level callbacks
	BeforeStepExecution(ctx context.Context, event *StepExecutionEvent)
	AfterStepExecution(ctx context.Context, event *StepExecutionEvent)

	// Attempt-level callbacks
	BeforeAttemptExecution(ctx context.Context, event *AttemptExecutionEvent)
	AfterAttemptExecution(ctx context.Context, event *AttemptExecutionEvent)
}

// WorkflowExecutionEvent provides context for workflow-level execution events
type WorkflowExecutionEvent struct {
	ExecutionID  string
	WorkflowName string
	Status       WorkflowStatus
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Inputs       map[string]any
	Outputs      map[string]any
	Error        error
}

// StepExecutionEvent provides context for step-level execution events
type StepExecutionEvent struct {
	ExecutionID  string
	WorkflowName string
	StepName     string
	ActivityName string
	Result       *StepResult
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}

// AttemptExecutionEvent provides context for a single attempt of one step
type AttemptExecutionEvent struct {
	ExecutionID  string
	WorkflowName string
	StepName     string
	ActivityName string
	Attempt      int
	Parameters   map[string]any
	Result       any
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Error        error
}

// BaseExecutionCallbacks provides a default implementation that does nothing
type BaseExecutionCallbacks struct{}

func (n *BaseExecutionCallbacks) BeforeWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) AfterWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) BeforeStepExecution(ctx context.Context, event *StepExecutionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) AfterStepExecution(ctx context.Context, event *StepExecutionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) BeforeAttemptExecution(ctx context.Context, event *AttemptExecutionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) AfterAttemptExecution(ctx context.Context, event *AttemptExecutionEvent) {
	// noop
}

// NewBaseExecutionCallbacks creates a new no-op callbacks implementation.
// Embed this in your own callbacks to get a default implementation that does nothing.
func NewBaseExecutionCallbacks() ExecutionCallbacks {
	return &BaseExecutionCallbacks{}
}

// CallbackChain allows chaining multiple callback implementations
type CallbackChain struct {
	callbacks []ExecutionCallbacks
}

// NewCallbackChain creates a new callback chain
func NewCallbackChain(callbacks ...ExecutionCallbacks) *CallbackChain {
	return &CallbackChain{callbacks: callbacks}
}

// Add adds a callback to the chain
func (c *CallbackChain) Add(callback ExecutionCallbacks) {
	c.callbacks = append(c.callbacks, callback)
}

func (c *CallbackChain) BeforeWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeWorkflowExecution(ctx, event)
	}
}

func (c *CallbackChain) AfterWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.AfterWorkflowExecution(ctx, event)
	}
}

func (c *CallbackChain) BeforeStepExecution(ctx context.Context, event *StepExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeStepExecution(ctx, event)
	}
}

func (c *CallbackChain) AfterStepExecution(ctx context.Context, event *StepExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.AfterStepExecution(ctx, event)
	}
}

func (c *CallbackChain) BeforeAttemptExecution(ctx context.Context, event *AttemptExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeAttemptExecution(ctx, event)
	}
}

func (c *CallbackChain) AfterAttemptExecution(ctx context.Context, event *AttemptExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.AfterAttemptExecution(ctx, event)
	}
}
