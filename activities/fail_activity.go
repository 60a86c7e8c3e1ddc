package activities

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/dagflow"
	"github.com/deepnoodle-ai/dagflow/retry"
)

// FailParams defines the parameters for the fail activity
type FailParams struct {
	Message   string `json:"message"`
	Permanent bool   `json:"permanent"`
}

// FailResult is never returned since the activity always fails
type FailResult struct{}

// FailActivity implements a configurable failure, useful for exercising
// retry and error handling paths. Set permanent to produce an error that
// is not retried.
type FailActivity struct{}

func NewFailActivity() dagflow.Activity {
	return dagflow.NewTypedActivity(&FailActivity{})
}

func (a *FailActivity) Name() string {
	return "fail"
}

func (a *FailActivity) Execute(ctx context.Context, params FailParams) (FailResult, error) {
	message := params.Message
	if message == "" {
		message = "intentional failure for testing"
	}
	err := fmt.Errorf("fail activity: %s", message)
	if params.Permanent {
		return FailResult{}, retry.NewNonRecoverableError(err)
	}
	return FailResult{}, err
}
