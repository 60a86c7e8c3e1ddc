package dagflow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecutionContext(t *testing.T) {
	ec := NewExecutionContext(map[string]any{"seed": 1})

	v, ok := ec.Get("seed")
	require.True(t, ok)
	require.Equal(t, 1, v)

	ec.Set("key", "value")
	v, ok = ec.Get("key")
	require.True(t, ok)
	require.Equal(t, "value", v)

	_, ok = ec.Get("missing")
	require.False(t, ok)

	ec.Delete("key")
	_, ok = ec.Get("key")
	require.False(t, ok)

	require.Equal(t, []string{"seed"}, ec.Keys())
	require.Equal(t, map[string]any{"seed": 1}, ec.Values())
}

func TestExecutionContextLoadFromMap(t *testing.T) {
	ec := NewExecutionContext(nil)
	ec.LoadFromMap(map[string]any{"a": 1, "b": 2})

	v, ok := ec.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.Len(t, ec.Keys(), 2)
}

func TestExecutionContextConcurrentAccess(t *testing.T) {
	ec := NewExecutionContext(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ec.Set("shared", n)
			ec.Get("shared")
			ec.Values()
		}(i)
	}
	wg.Wait()

	_, ok := ec.Get("shared")
	require.True(t, ok)
}
