package activities

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/dagflow"
)

// PrintParams defines the parameters for the print activity
type PrintParams struct {
	Message any `json:"message"`
}

// PrintResult defines the result of the print activity
type PrintResult struct {
	Success bool `json:"success"`
}

// PrintActivity writes a message to stdout
type PrintActivity struct{}

func NewPrintActivity() dagflow.Activity {
	return dagflow.NewTypedActivity(&PrintActivity{})
}

func (a *PrintActivity) Name() string {
	return "print"
}

func (a *PrintActivity) Execute(ctx context.Context, params PrintParams) (PrintResult, error) {
	if params.Message == nil {
		return PrintResult{Success: false}, fmt.Errorf("print activity requires 'message' parameter")
	}
	fmt.Println(params.Message)
	return PrintResult{Success: true}, nil
}
