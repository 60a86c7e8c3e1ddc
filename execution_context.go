package dagflow

import (
	"sort"
	"sync"
)

// ExecutionContext is the shared key-value store carrying step outputs to
// downstream steps. It is seeded with the workflow inputs and updated by the
// coordinator with each successful step's output, keyed by step name. It is
// owned by a single execution and never shared across executions.
type ExecutionContext struct {
	values map[string]any
	mutex  sync.RWMutex
}

// NewExecutionContext creates an ExecutionContext seeded with the given values.
func NewExecutionContext(seed map[string]any) *ExecutionContext {
	return &ExecutionContext{values: copyMap(seed)}
}

// Set sets a value in the execution context.
func (c *ExecutionContext) Set(key string, value any) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.values[key] = value
}

// Get retrieves a value from the execution context.
func (c *ExecutionContext) Get(key string) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	value, exists := c.values[key]
	return value, exists
}

// Delete removes a key from the execution context.
func (c *ExecutionContext) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.values, key)
}

// Keys returns all keys in sorted order.
func (c *ExecutionContext) Keys() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	keys := make([]string, 0, len(c.values))
	for key := range c.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Values returns a shallow copy of the current values.
func (c *ExecutionContext) Values() map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return copyMap(c.values)
}

// LoadFromMap replaces the context values (used during checkpoint recovery).
func (c *ExecutionContext) LoadFromMap(values map[string]any) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.values = copyMap(values)
}
