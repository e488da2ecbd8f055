package orchestrator

import "golang.org/x/sync/semaphore"

// Gate bounds the number of simultaneously non-terminal workflows.
// Admission is fail-fast: a full gate rejects creation instead of
// queuing it.
type Gate struct {
	sem *semaphore.Weighted
	max int
}

// DefaultMaxConcurrentWorkflows is the gate size unless configured.
const DefaultMaxConcurrentWorkflows = 3

// NewGate creates a gate admitting at most max concurrent workflows.
func NewGate(max int) *Gate {
	if max <= 0 {
		max = DefaultMaxConcurrentWorkflows
	}
	return &Gate{sem: semaphore.NewWeighted(int64(max)), max: max}
}

// Admit atomically checks-and-increments the active count. Returns
// false when the gate is full.
func (g *Gate) Admit() bool {
	return g.sem.TryAcquire(1)
}

// Release decrements the active count when a workflow reaches a
// terminal state.
func (g *Gate) Release() {
	g.sem.Release(1)
}

// Capacity returns the configured ceiling.
func (g *Gate) Capacity() int {
	return g.max
}
