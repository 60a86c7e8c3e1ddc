package dagflow

import (
	"fmt"
	"sort"
	"strings"
)

// Graph holds the steps of one workflow and their declared dependency edges.
// It validates acyclicity up front and answers readiness queries during
// execution. The graph itself is immutable; runtime progress is carried in
// the completed/failed/in-flight sets owned by the coordinator.
type Graph struct {
	steps map[string]*Step
}

// newGraph builds a Graph over the given steps.
func newGraph(steps []*Step) *Graph {
	byName := make(map[string]*Step, len(steps))
	for _, step := range steps {
		byName[step.Name] = step
	}
	return &Graph{steps: byName}
}

// Validate checks that every dependency references a known step and that the
// dependency relation contains no cycles. It fails fast with the offending
// step name(s).
func (g *Graph) Validate() error {
	for name, step := range g.steps {
		for _, dep := range step.Dependencies {
			if _, ok := g.steps[dep]; !ok {
				return &WorkflowError{
					Type:  ErrorTypeDanglingDependency,
					Cause: fmt.Sprintf("step %q depends on %q which does not exist in the workflow", name, dep),
				}
			}
			if dep == name {
				return &WorkflowError{
					Type:  ErrorTypeCycleDetected,
					Cause: fmt.Sprintf("step %q depends on itself", name),
				}
			}
		}
	}
	if cycle := g.findCycle(); len(cycle) > 0 {
		return &WorkflowError{
			Type:  ErrorTypeCycleDetected,
			Cause: fmt.Sprintf("cycle detected in workflow: %s", strings.Join(cycle, " -> ")),
		}
	}
	return nil
}

// findCycle runs a depth-first search with three-color marking over the
// dependency edges. It returns the step names forming a cycle, or nil.
func (g *Graph) findCycle() []string {
	const (
		white = 0 // unvisited
		gray  = 1 // in progress
		black = 2 // done
	)
	color := make(map[string]int, len(g.steps))
	parent := make(map[string]string, len(g.steps))
	adjacency := g.adjacencyList()

	var dfs func(name string) []string
	dfs = func(name string) []string {
		color[name] = gray
		for _, next := range adjacency[name] {
			switch color[next] {
			case white:
				parent[next] = name
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			case gray:
				// Back edge found: reconstruct the cycle path.
				cycle := []string{next}
				for current := name; current != next; current = parent[current] {
					cycle = append([]string{current}, cycle...)
				}
				return append([]string{next}, cycle...)
			}
		}
		color[name] = black
		return nil
	}

	for _, name := range g.sortedStepNames() {
		if color[name] == white {
			if cycle := dfs(name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// TopologicalSort orders the steps with Kahn's algorithm so that every step
// appears after all of its dependencies. Returns an error if the graph
// contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	adjacency := g.adjacencyList()
	inDegree := make(map[string]int, len(g.steps))
	for name := range g.steps {
		inDegree[name] = len(g.steps[name].Dependencies)
	}

	var queue []string
	for _, name := range g.sortedStepNames() {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]string, 0, len(g.steps))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)
		for _, next := range adjacency[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(g.steps) {
		return nil, &WorkflowError{
			Type:  ErrorTypeCycleDetected,
			Cause: "cannot perform topological sort: cycle detected in workflow",
		}
	}
	return order, nil
}

// ReadySteps returns every step whose dependencies are all completed and
// which is not itself completed, failed, or in flight.
func (g *Graph) ReadySteps(completed, failed, inFlight map[string]bool) []*Step {
	var ready []*Step
	for _, name := range g.sortedStepNames() {
		if completed[name] || failed[name] || inFlight[name] {
			continue
		}
		step := g.steps[name]
		satisfied := true
		for _, dep := range step.Dependencies {
			if !completed[dep] {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, step)
		}
	}
	return ready
}

// HasPendingWork reports whether any step has not yet reached a terminal
// state (completed or failed).
func (g *Graph) HasPendingWork(completed, failed map[string]bool) bool {
	for name := range g.steps {
		if !completed[name] && !failed[name] {
			return true
		}
	}
	return false
}

// PendingSteps returns the names of steps not yet completed or failed.
func (g *Graph) PendingSteps(completed, failed map[string]bool) []string {
	var pending []string
	for _, name := range g.sortedStepNames() {
		if !completed[name] && !failed[name] {
			pending = append(pending, name)
		}
	}
	return pending
}

// adjacencyList maps each step to the steps that depend on it. A dependency
// of A on B produces an edge B -> A.
func (g *Graph) adjacencyList() map[string][]string {
	adjacency := make(map[string][]string, len(g.steps))
	for name := range g.steps {
		adjacency[name] = nil
	}
	for name, step := range g.steps {
		for _, dep := range step.Dependencies {
			adjacency[dep] = append(adjacency[dep], name)
		}
	}
	for name := range adjacency {
		sort.Strings(adjacency[name])
	}
	return adjacency
}

func (g *Graph) sortedStepNames() []string {
	names := make([]string, 0, len(g.steps))
	for name := range g.steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
