// Package testutil holds deterministic stand-ins for journal clocks and id
// generators, so journal contents and golden traces are stable across runs.
package testutil

import "sync"

// DeterministicClock is a logical clock. The first Next after construction
// returns 1, so two clocks driven the same way hand out identical values.
//
// Thread-safety: all methods are safe for concurrent use.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock returns a clock at 0.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances the clock and returns the new value.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}
