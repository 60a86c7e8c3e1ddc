package dagflow

import (
	"context"
	"encoding/json"
	"fmt"
)

// Confirm the interfaces are implemented correctly.
var (
	_ Activity                = (*ActivityFunction)(nil)
	_ TypedActivity[any, any] = (*typedActivityFunction[any, any])(nil)
)

// TypedActivity is an Activity with strongly typed parameters and result.
// Wrap one with NewTypedActivity to use it where an Activity is expected.
type TypedActivity[TParams, TResult any] interface {
	Name() string
	Execute(ctx context.Context, params TParams) (TResult, error)
}

// NewTypedActivity adapts a TypedActivity to the untyped Activity interface.
// Parameters are decoded from the step's parameter map via JSON round-trip.
func NewTypedActivity[TParams, TResult any](activity TypedActivity[TParams, TResult]) Activity {
	return &typedActivityAdapter[TParams, TResult]{activity: activity}
}

type typedActivityAdapter[TParams, TResult any] struct {
	activity TypedActivity[TParams, TResult]
}

func (a *typedActivityAdapter[TParams, TResult]) Name() string {
	return a.activity.Name()
}

func (a *typedActivityAdapter[TParams, TResult]) Execute(ctx context.Context, params map[string]any) (any, error) {
	var typedParams TParams
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode parameters for activity %q: %w", a.activity.Name(), err)
		}
		if err := json.Unmarshal(data, &typedParams); err != nil {
			return nil, fmt.Errorf("invalid parameters for activity %q: %w", a.activity.Name(), err)
		}
	}
	return a.activity.Execute(ctx, typedParams)
}

// TypedActivityFunction wraps a function for use as a TypedActivity.
func TypedActivityFunction[TParams, TResult any](name string, fn func(ctx context.Context, params TParams) (TResult, error)) Activity {
	return NewTypedActivity(&typedActivityFunction[TParams, TResult]{
		name: name,
		fn:   fn,
	})
}

// typedActivityFunction is a helper struct for creating typed activities from functions
type typedActivityFunction[TParams, TResult any] struct {
	name string
	fn   func(ctx context.Context, params TParams) (TResult, error)
}

// Name of the Activity.
func (t *typedActivityFunction[TParams, TResult]) Name() string {
	return t.name
}

// Execute the Activity.
func (t *typedActivityFunction[TParams, TResult]) Execute(ctx context.Context, params TParams) (TResult, error) {
	return t.fn(ctx, params)
}
