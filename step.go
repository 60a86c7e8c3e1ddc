package dagflow

import (
	"time"
)

// Default retry timing used when a step does not specify its own.
const (
	DefaultRetryBaseDelay = time.Second
	DefaultRetryMaxDelay  = 30 * time.Second
)

// Step represents a single unit of work in a workflow. A step declares the
// activity to invoke, the steps it depends on, and its retry policy. Steps
// are immutable once the workflow is constructed.
type Step struct {
	Name           string         `json:"name" yaml:"name"`
	Description    string         `json:"description,omitempty" yaml:"description,omitempty"`
	Activity       string         `json:"activity" yaml:"activity"`
	Parameters     map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Dependencies   []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	MaxRetries     int            `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	RetryBaseDelay time.Duration  `json:"retry_base_delay,omitempty" yaml:"retry_base_delay,omitempty"`
	RetryMaxDelay  time.Duration  `json:"retry_max_delay,omitempty" yaml:"retry_max_delay,omitempty"`
	Timeout        time.Duration  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// retryBaseDelay returns the configured base delay or the default.
func (s *Step) retryBaseDelay() time.Duration {
	if s.RetryBaseDelay > 0 {
		return s.RetryBaseDelay
	}
	return DefaultRetryBaseDelay
}

// retryMaxDelay returns the configured delay ceiling or the default.
func (s *Step) retryMaxDelay() time.Duration {
	if s.RetryMaxDelay > 0 {
		return s.RetryMaxDelay
	}
	return DefaultRetryMaxDelay
}
