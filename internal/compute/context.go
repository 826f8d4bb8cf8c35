// Package compute provides an explicit execution context for grid-scale
// operations. The context owns a bounded worker pool with an explicit
// acquire/release lifecycle; callers pass it to cube operations instead
// of relying on ambient global compute state.
package compute

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrReleased is returned when a context is used after Release.
var ErrReleased = errors.New("compute context has been released")

// Context is a bounded worker pool for per-cell grid work.
type Context struct {
	workers int

	mu       sync.Mutex
	released bool
}

// Acquire creates an execution context with the given number of
// workers. Zero or negative means one worker per CPU.
func Acquire(workers int) *Context {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Context{workers: workers}
}

// Workers returns the worker count of the context.
func (c *Context) Workers() int { return c.workers }

// Release marks the context as released. Release is idempotent;
// subsequent use of the context fails with ErrReleased.
func (c *Context) Release() {
	c.mu.Lock()
	c.released = true
	c.mu.Unlock()
}

// ForEach runs fn for every index in [0, n), spreading contiguous index
// chunks across the worker pool. The first error cancels the remaining
// work.
func (c *Context) ForEach(n int, fn func(i int) error) error {
	c.mu.Lock()
	released := c.released
	c.mu.Unlock()
	if released {
		return ErrReleased
	}
	if n <= 0 {
		return nil
	}

	workers := c.workers
	if workers > n {
		workers = n
	}

	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)

	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := fn(i); err != nil {
					return fmt.Errorf("cell %d: %w", i, err)
				}
			}
			return nil
		})
	}

	return g.Wait()
}
