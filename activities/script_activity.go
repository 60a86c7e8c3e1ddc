package activities

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/dagflow"
	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
)

// ScriptActivity evaluates a Risor script. The step's "code" parameter holds
// the script source. Upstream step outputs and workflow inputs are exposed to
// the script as the "state" global; any extra values passed in the "globals"
// parameter are exposed at the top level.
type ScriptActivity struct{}

func NewScriptActivity() dagflow.Activity {
	return &ScriptActivity{}
}

func (a *ScriptActivity) Name() string {
	return "script"
}

func (a *ScriptActivity) Execute(ctx context.Context, params map[string]any) (any, error) {
	code, ok := params["code"].(string)
	if !ok || code == "" {
		return nil, fmt.Errorf("script activity requires 'code' parameter")
	}

	globals := map[string]any{}
	if extra, ok := params["globals"].(map[string]any); ok {
		for name, value := range extra {
			globals[name] = value
		}
	}
	if state, ok := dagflow.GetExecutionStateFromContext(ctx); ok {
		globals["state"] = state.Values()
	} else {
		globals["state"] = map[string]any{}
	}

	result, err := risor.Eval(ctx, code, risor.WithGlobals(globals))
	if err != nil {
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}
	return risorValueToGo(result), nil
}

// risorValueToGo converts a Risor object into a plain Go value so script
// outputs serialize cleanly into checkpoints and step results.
func risorValueToGo(obj object.Object) any {
	switch o := obj.(type) {
	case *object.String:
		return o.Value()
	case *object.Int:
		return o.Value()
	case *object.Float:
		return o.Value()
	case *object.Bool:
		return o.Value()
	case *object.Time:
		return o.Value()
	case *object.NilType:
		return nil
	case *object.List:
		var result []any
		for _, item := range o.Value() {
			result = append(result, risorValueToGo(item))
		}
		return result
	case *object.Map:
		result := make(map[string]any)
		for key, value := range o.Value() {
			result[key] = risorValueToGo(value)
		}
		return result
	case *object.Set:
		var result []any
		for _, item := range o.Value() {
			result = append(result, risorValueToGo(item))
		}
		return result
	default:
		return obj.Inspect()
	}
}
