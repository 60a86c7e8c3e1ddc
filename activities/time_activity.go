package activities

import (
	"context"
	"time"

	"github.com/deepnoodle-ai/dagflow"
)

// TimeInput defines the input parameters for the time activity
type TimeInput struct {
	UTC    bool   `json:"utc"`
	Format string `json:"format"`
}

// TimeActivity returns the current time, optionally in UTC and formatted.
type TimeActivity struct{}

func NewTimeActivity() dagflow.Activity {
	return dagflow.NewTypedActivity(&TimeActivity{})
}

func (a *TimeActivity) Name() string {
	return "time"
}

func (a *TimeActivity) Execute(ctx context.Context, params TimeInput) (any, error) {
	now := time.Now()
	if params.UTC {
		now = now.UTC()
	}
	if params.Format != "" {
		return now.Format(params.Format), nil
	}
	return now, nil
}
