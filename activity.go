package dagflow

import (
	"context"
)

// Activity represents an action that can be executed as part of a workflow.
// The engine never inspects what an activity does; it only invokes it with
// the step's parameters and records the outcome.
type Activity interface {

	// Name returns the name of the Activity
	Name() string

	// Execute the Activity with the given parameters.
	Execute(ctx context.Context, params map[string]any) (any, error)
}

// ActivityRegistry is a map of activity names to activities
type ActivityRegistry map[string]Activity

// ActivityFunction wraps a function for use as an Activity. It implements
// the dagflow.Activity interface.
type ActivityFunction struct {
	name string
	fn   func(ctx context.Context, params map[string]any) (any, error)
}

// NewActivityFunction returns an Activity for the given function.
func NewActivityFunction(name string, fn func(ctx context.Context, params map[string]any) (any, error)) *ActivityFunction {
	return &ActivityFunction{name: name, fn: fn}
}

// Name of the Activity.
func (a *ActivityFunction) Name() string {
	return a.name
}

// Execute the Activity.
func (a *ActivityFunction) Execute(ctx context.Context, params map[string]any) (any, error) {
	return a.fn(ctx, params)
}
