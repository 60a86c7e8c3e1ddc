package activities

import (
	"github.com/deepnoodle-ai/dagflow"
)

// All returns the full set of built-in activities.
func All() []dagflow.Activity {
	return []dagflow.Activity{
		NewPrintActivity(),
		NewWaitActivity(),
		NewFailActivity(),
		NewTimeActivity(),
		NewRandomActivity(),
		NewHTTPActivity(),
		NewScriptActivity(),
	}
}
