package dagflow

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultMaxParallelSteps bounds concurrent step execution when a workflow
// does not specify its own limit.
const DefaultMaxParallelSteps = 10

// Input defines a workflow input parameter
type Input struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
}

// IsRequired indicates whether the input must be provided by the caller.
// An input with no default is implicitly required.
func (i *Input) IsRequired() bool {
	return i.Required || i.Default == nil
}

// Options are used to configure a workflow.
type Options struct {
	Name             string   `json:"name" yaml:"name"`
	Steps            []*Step  `json:"steps" yaml:"steps"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	Inputs           []*Input `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	ContinueOnError  bool     `json:"continue_on_error,omitempty" yaml:"continue_on_error,omitempty"`
	MaxParallelSteps int      `json:"max_parallel_steps,omitempty" yaml:"max_parallel_steps,omitempty"`
}

// Workflow defines a repeatable process as a directed acyclic graph of steps.
// The dependency relation is validated at construction time: definitions with
// cycles or dangling references are rejected before any execution starts.
type Workflow struct {
	name             string
	description      string
	inputs           []*Input
	steps            []*Step
	stepsByName      map[string]*Step
	continueOnError  bool
	maxParallelSteps int
}

// New returns a new Workflow configured with the given options.
func New(opts Options) (*Workflow, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("workflow name required")
	}
	if len(opts.Steps) == 0 {
		return nil, fmt.Errorf("steps required")
	}
	maxParallel := opts.MaxParallelSteps
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallelSteps
	}

	// Build stepsByName map
	stepsByName := make(map[string]*Step, len(opts.Steps))
	for _, step := range opts.Steps {
		if step.Name == "" {
			return nil, fmt.Errorf("step name required")
		}
		if _, exists := stepsByName[step.Name]; exists {
			return nil, fmt.Errorf("duplicate step name %q", step.Name)
		}
		if step.MaxRetries < 0 {
			return nil, fmt.Errorf("step %q: max_retries must not be negative", step.Name)
		}
		stepsByName[step.Name] = step
	}

	// Validate the dependency graph (dangling references, cycles)
	if err := newGraph(opts.Steps).Validate(); err != nil {
		return nil, fmt.Errorf("workflow validation failed: %w", err)
	}

	return &Workflow{
		name:             opts.Name,
		description:      opts.Description,
		inputs:           opts.Inputs,
		steps:            opts.Steps,
		stepsByName:      stepsByName,
		continueOnError:  opts.ContinueOnError,
		maxParallelSteps: maxParallel,
	}, nil
}

// Name returns the workflow name
func (w *Workflow) Name() string {
	return w.name
}

// Description returns the workflow description
func (w *Workflow) Description() string {
	return w.description
}

// Inputs returns the workflow inputs
func (w *Workflow) Inputs() []*Input {
	return w.inputs
}

// Steps returns the workflow steps
func (w *Workflow) Steps() []*Step {
	return w.steps
}

// ContinueOnError reports whether a step's terminal failure only blocks its
// dependents rather than aborting the whole workflow.
func (w *Workflow) ContinueOnError() bool {
	return w.continueOnError
}

// MaxParallelSteps returns the concurrency ceiling for step execution.
func (w *Workflow) MaxParallelSteps() int {
	return w.maxParallelSteps
}

// GetStep returns a step by name
func (w *Workflow) GetStep(name string) (*Step, bool) {
	step, ok := w.stepsByName[name]
	return step, ok
}

// StepNames returns the names of all steps in the workflow
func (w *Workflow) StepNames() []string {
	names := make([]string, 0, len(w.stepsByName))
	for name := range w.stepsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile loads a workflow from a YAML file
func LoadFile(path string) (*Workflow, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	var opts Options
	if err := yaml.Unmarshal(yamlData, &opts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow file: %w", err)
	}
	return New(opts)
}

// LoadString loads a workflow from a YAML string
func LoadString(data string) (*Workflow, error) {
	var opts Options
	if err := yaml.Unmarshal([]byte(data), &opts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow file: %w", err)
	}
	return New(opts)
}
