package activities

import (
	"context"
	"fmt"
	"time"

	"github.com/deepnoodle-ai/dagflow"
)

// WaitParams defines the parameters for the wait activity
type WaitParams struct {
	Duration any `json:"duration"`
}

// WaitResult defines the result of the wait activity
type WaitResult struct {
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// WaitActivity delays workflow progress for a configurable duration. The
// wait is cancellable through the step's context.
type WaitActivity struct{}

func NewWaitActivity() dagflow.Activity {
	return dagflow.NewTypedActivity(&WaitActivity{})
}

func (a *WaitActivity) Name() string {
	return "wait"
}

func (a *WaitActivity) Execute(ctx context.Context, params WaitParams) (WaitResult, error) {
	if params.Duration == nil {
		return WaitResult{}, fmt.Errorf("wait activity requires 'duration' parameter")
	}

	var duration time.Duration
	var err error
	switch v := params.Duration.(type) {
	case string:
		duration, err = time.ParseDuration(v)
		if err != nil {
			return WaitResult{}, fmt.Errorf("invalid duration format: %w", err)
		}
	case float64:
		// Seconds as a number
		duration = time.Duration(v * float64(time.Second))
	default:
		return WaitResult{}, fmt.Errorf("duration must be a string or a number of seconds")
	}

	if duration <= 0 {
		return WaitResult{Message: "no delay specified", Duration: 0}, nil
	}

	select {
	case <-ctx.Done():
		return WaitResult{}, ctx.Err()
	case <-time.After(duration):
		return WaitResult{
			Message:  fmt.Sprintf("waited %s", duration),
			Duration: duration,
		}, nil
	}
}
