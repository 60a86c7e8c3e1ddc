package dagflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.jetify.com/typeid"
)

// NewExecutionID returns a new prefixed unique ID for an execution
func NewExecutionID() string {
	id, err := typeid.WithPrefix("exec")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// ExecutionOptions configures a new execution
type ExecutionOptions struct {
	Workflow     *Workflow
	Inputs       map[string]any
	Activities   []Activity
	Logger       *slog.Logger
	StepLogger   StepLogger
	Checkpointer Checkpointer
	Callbacks    ExecutionCallbacks
	Formatter    WorkflowFormatter
	ExecutionID  string
}

// Execution runs one workflow to completion. The coordinator loop is
// single-threaded: it asks the dependency graph for ready steps, dispatches
// them as goroutines gated by a counting semaphore, and is the only writer
// of graph state and the execution context between channel receives.
type Execution struct {
	workflow    *Workflow
	graph       *Graph
	state       *ExecutionState
	execContext *ExecutionContext

	// Infrastructure dependencies
	activities   ActivityRegistry
	stepLogger   StepLogger
	checkpointer Checkpointer
	callbacks    ExecutionCallbacks

	// Logging and formatting
	logger    *slog.Logger
	formatter WorkflowFormatter

	// Coordination
	results chan *StepResult
	sem     chan struct{}
	doneWg  sync.WaitGroup

	mutex           sync.Mutex
	started         bool
	cancelRequested atomic.Bool
	cancelRun       context.CancelFunc
}

// NewExecution creates a new execution for the given workflow. Validation
// errors (unknown activities, missing inputs) are returned here, before any
// execution starts.
func NewExecution(opts ExecutionOptions) (*Execution, error) {
	if opts.Workflow == nil {
		return nil, fmt.Errorf("workflow is required")
	}
	if len(opts.Activities) == 0 {
		return nil, fmt.Errorf("activities are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.StepLogger == nil {
		opts.StepLogger = NewNullStepLogger()
	}
	if opts.Checkpointer == nil {
		opts.Checkpointer = NewNullCheckpointer()
	}
	if opts.ExecutionID == "" {
		opts.ExecutionID = NewExecutionID()
	}
	if opts.Callbacks == nil {
		opts.Callbacks = &BaseExecutionCallbacks{}
	}

	// Determine input values from inputs map or defaults
	inputs := make(map[string]any, len(opts.Inputs))
	for _, input := range opts.Workflow.Inputs() {
		if v, ok := opts.Inputs[input.Name]; ok {
			inputs[input.Name] = v
		} else {
			if input.Default == nil {
				return nil, fmt.Errorf("input %q is required", input.Name)
			}
			inputs[input.Name] = input.Default
		}
	}
	for k := range opts.Inputs {
		if _, ok := inputs[k]; !ok {
			return nil, fmt.Errorf("unknown input %q", k)
		}
	}

	activities := make(ActivityRegistry, len(opts.Activities))
	for _, activity := range opts.Activities {
		activities[activity.Name()] = activity
	}
	for _, step := range opts.Workflow.Steps() {
		if _, ok := activities[step.Activity]; !ok {
			return nil, fmt.Errorf("step %q references unknown activity %q", step.Name, step.Activity)
		}
	}

	return &Execution{
		workflow:     opts.Workflow,
		graph:        newGraph(opts.Workflow.Steps()),
		state:        newExecutionState(opts.ExecutionID, opts.Workflow.Name(), inputs),
		execContext:  NewExecutionContext(inputs),
		activities:   activities,
		stepLogger:   opts.StepLogger,
		checkpointer: opts.Checkpointer,
		callbacks:    opts.Callbacks,
		logger:       opts.Logger.With("execution_id", opts.ExecutionID),
		formatter:    opts.Formatter,
		results:      make(chan *StepResult, len(opts.Workflow.Steps())),
		sem:          make(chan struct{}, opts.Workflow.MaxParallelSteps()),
	}, nil
}

// ID returns the execution ID
func (e *Execution) ID() string {
	return e.state.ID()
}

// Status returns the current execution status
func (e *Execution) Status() WorkflowStatus {
	return e.state.GetStatus()
}

// Result returns a snapshot of the workflow result. Once the execution has
// reached a terminal status the snapshot is final.
func (e *Execution) Result() *WorkflowResult {
	return e.state.Result(e.execContext.Values())
}

// RequestCancel asks the execution to stop. It is idempotent and safe to
// call from any goroutine. No new attempts or steps are started after
// cancellation is observed; in-flight steps that do complete are still
// recorded, but the workflow result becomes cancelled regardless.
func (e *Execution) RequestCancel() {
	if e.cancelRequested.CompareAndSwap(false, true) {
		e.mutex.Lock()
		cancel := e.cancelRun
		e.mutex.Unlock()
		if cancel != nil {
			cancel()
		}
		e.logger.Info("execution cancellation requested")
	}
}

func (e *Execution) start() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.started {
		return fmt.Errorf("execution already started")
	}
	e.started = true
	return nil
}

// Run the execution to completion and return the final workflow result.
// Step failures are data, not control-flow errors: the returned error is
// non-nil only for lifecycle misuse.
func (e *Execution) Run(ctx context.Context) (*WorkflowResult, error) {
	if err := e.start(); err != nil {
		return nil, err
	}
	return e.run(ctx), nil
}

// Resume a previous execution from its last checkpoint. Completed steps and
// their context values are restored; failed and skipped steps are reset so
// they run again.
func (e *Execution) Resume(ctx context.Context, priorExecutionID string) (*WorkflowResult, error) {
	if err := e.start(); err != nil {
		return nil, err
	}

	checkpoint, err := e.checkpointer.LoadCheckpoint(ctx, priorExecutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if checkpoint == nil {
		return nil, fmt.Errorf("no checkpoint found for execution %q", priorExecutionID)
	}

	thisID := e.state.ID()
	e.state.FromCheckpoint(checkpoint)
	e.state.SetID(thisID)
	e.execContext.LoadFromMap(checkpoint.ContextValues)

	if WorkflowStatus(checkpoint.Status) == WorkflowStatusCompleted {
		e.logger.Info("execution already completed from checkpoint")
		return e.Result(), nil
	}

	e.state.ResetFailed()
	e.logger.Info("resuming execution from checkpoint",
		"prior_execution_id", priorExecutionID,
		"completed_steps", len(checkpoint.CompletedSteps))

	return e.run(ctx), nil
}

// run drives the coordinator loop until the workflow reaches a terminal
// state. It always terminates, even when some steps can never become ready.
func (e *Execution) run(ctx context.Context) *WorkflowResult {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mutex.Lock()
	e.cancelRun = cancel
	e.mutex.Unlock()

	e.state.SetStatus(WorkflowStatusRunning)
	if e.state.GetStartTime().IsZero() {
		e.state.SetTiming(time.Now(), time.Time{})
	}

	e.callbacks.BeforeWorkflowExecution(ctx, &WorkflowExecutionEvent{
		ExecutionID:  e.state.ID(),
		WorkflowName: e.workflow.Name(),
		Status:       e.state.GetStatus(),
		StartTime:    e.state.GetStartTime(),
		Inputs:       e.state.GetInputs(),
	})

	var (
		outstanding int
		aborting    bool
		cancelled   bool
		abortErr    error
	)

	for {
		if !aborting && !cancelled && (e.cancelRequested.Load() || ctx.Err() != nil) {
			cancelled = true
			e.logger.Info("cancellation observed, draining in-flight steps",
				"in_flight", outstanding)
		}

		if !aborting && !cancelled {
			ready := e.graph.ReadySteps(e.state.CompletedSet(), e.state.FailedSet(), e.state.InFlightSet())
			for _, step := range ready {
				e.dispatchStep(ctx, step)
				outstanding++
			}
		}
		if outstanding == 0 {
			break
		}

		result := <-e.results
		outstanding--

		// Re-check cancellation before interpreting the result: a step that
		// failed because it observed ctx.Done() must not trigger an abort.
		if !aborting && !cancelled && (e.cancelRequested.Load() || ctx.Err() != nil) {
			cancelled = true
			e.logger.Info("cancellation observed, draining in-flight steps",
				"in_flight", outstanding)
		}
		e.applyStepResult(ctx, result)

		if result.State == StepStateFailed && result.Attempts > 0 &&
			!e.workflow.ContinueOnError() && !aborting && !cancelled {
			// Abort immediately: stop dispatching and cancel in-flight
			// steps rather than leaving them orphaned.
			aborting = true
			abortErr = fmt.Errorf("step %q failed after %d attempts: %s",
				result.StepName, result.Attempts, result.Error)
			cancel()
		}
	}

	e.doneWg.Wait()
	return e.finalize(ctx, aborting, cancelled, abortErr)
}

// finalize derives the terminal status, records skipped steps, fires the
// completion callback and saves the last checkpoint.
func (e *Execution) finalize(ctx context.Context, aborting, cancelled bool, abortErr error) *WorkflowResult {
	pending := e.graph.PendingSteps(e.state.CompletedSet(), e.state.FailedSet())

	var finalStatus WorkflowStatus
	var finalErr error
	switch {
	case cancelled:
		e.state.MarkSkipped(pending...)
		finalStatus = WorkflowStatusCancelled
		finalErr = ErrExecutionCancelled
		e.logger.Info("execution cancelled", "skipped_steps", len(pending))

	case aborting:
		e.state.MarkSkipped(pending...)
		finalStatus = WorkflowStatusFailed
		finalErr = abortErr
		e.logger.Error("execution aborted", "error", abortErr, "skipped_steps", len(pending))

	case len(pending) > 0:
		// Remaining steps can never become ready: some ancestor failed.
		e.state.MarkSkipped(pending...)
		if e.state.AttemptedCount() == 0 {
			finalStatus = WorkflowStatusDeadlocked
		} else {
			finalStatus = WorkflowStatusPartialFailure
		}
		e.logger.Warn("no runnable steps remain",
			"status", finalStatus, "blocked_steps", pending)

	default:
		finalStatus = terminalStatus(e.state)
		if finalStatus == WorkflowStatusCompleted {
			e.logger.Info("execution completed")
		} else {
			e.logger.Warn("execution finished with failures",
				"status", finalStatus, "failed_steps", len(e.state.FailedSet()))
		}
	}
	e.state.SetFinished(finalStatus, time.Now(), finalErr)

	result := e.Result()
	e.callbacks.AfterWorkflowExecution(ctx, &WorkflowExecutionEvent{
		ExecutionID:  result.ExecutionID,
		WorkflowName: result.WorkflowName,
		Status:       result.Status,
		StartTime:    result.StartedAt,
		EndTime:      result.EndedAt,
		Duration:     result.Duration(),
		Inputs:       e.state.GetInputs(),
		Outputs:      result.Outputs,
		Error:        finalErr,
	})

	if checkpointErr := e.saveCheckpoint(ctx); checkpointErr != nil {
		e.logger.Error("failed to save final checkpoint", "error", checkpointErr)
	}
	return result
}

// dispatchStep launches a goroutine for one ready step. The goroutine
// acquires a semaphore slot before executing, bounding concurrent attempts
// to the workflow's parallelism limit.
func (e *Execution) dispatchStep(ctx context.Context, step *Step) {
	e.state.MarkInFlight(step.Name)
	e.callbacks.BeforeStepExecution(ctx, &StepExecutionEvent{
		ExecutionID:  e.state.ID(),
		WorkflowName: e.workflow.Name(),
		StepName:     step.Name,
		ActivityName: step.Activity,
		StartTime:    time.Now(),
	})
	if e.formatter != nil {
		e.formatter.PrintStepStart(step.Name, step.Activity)
	}

	e.doneWg.Add(1)
	go func(step *Step) {
		defer e.doneWg.Done()
		select {
		case e.sem <- struct{}{}:
		case <-ctx.Done():
			// Never entered execution: the coordinator records it as skipped.
			e.results <- cancelledStepResult(step, 0, time.Now())
			return
		}
		defer func() { <-e.sem }()
		e.results <- e.runStep(ctx, step)
	}(step)
}

// applyStepResult is the single writer of graph state and the execution
// context. It runs on the coordinator goroutine only.
func (e *Execution) applyStepResult(ctx context.Context, result *StepResult) {
	switch {
	case result.State == StepStateCompleted:
		e.state.MarkCompleted(result)
		e.execContext.Set(result.StepName, result.Output)
		if e.formatter != nil {
			e.formatter.PrintStepOutput(result.StepName, result.Output)
		}
		e.logger.Debug("step completed",
			"step", result.StepName, "attempts", result.Attempts)

	case result.Attempts == 0:
		// Dispatched but never attempted: cancellation won the race for the
		// semaphore slot.
		e.state.MarkSkipped(result.StepName)

	default:
		e.state.MarkFailed(result)
		if e.formatter != nil {
			e.formatter.PrintStepError(result.StepName, fmt.Errorf("%s", result.Error))
		}
		e.logger.Warn("step failed",
			"step", result.StepName, "attempts", result.Attempts, "error", result.Error)
	}

	e.callbacks.AfterStepExecution(ctx, &StepExecutionEvent{
		ExecutionID:  e.state.ID(),
		WorkflowName: e.workflow.Name(),
		StepName:     result.StepName,
		Result:       result,
		StartTime:    result.StartedAt,
		EndTime:      result.EndedAt,
		Duration:     result.EndedAt.Sub(result.StartedAt),
	})

	if checkpointErr := e.saveCheckpoint(ctx); checkpointErr != nil {
		e.logger.Error("failed to save checkpoint", "error", checkpointErr)
	}
}

// saveCheckpoint saves the current execution state
func (e *Execution) saveCheckpoint(ctx context.Context) error {
	checkpoint := e.state.ToCheckpoint(e.execContext.Values())
	return e.checkpointer.SaveCheckpoint(ctx, checkpoint)
}

// terminalStatus derives the terminal status when every step resolved:
// nothing failed or skipped means completed; failures with completed
// survivors mean partial failure; failures with no completed steps mean
// the workflow failed outright.
func terminalStatus(state *ExecutionState) WorkflowStatus {
	completed := state.CompletedSet()
	failed := state.FailedSet()
	skipped := state.SkippedSteps()
	if len(failed) == 0 && len(skipped) == 0 {
		return WorkflowStatusCompleted
	}
	if len(completed) == 0 {
		return WorkflowStatusFailed
	}
	return WorkflowStatusPartialFailure
}
