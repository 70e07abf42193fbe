// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"sync"
	"time"
)

// FixedClock is a deterministic engine clock for tests: it starts at a
// fixed instant and advances by a fixed step on every call, so every pass
// in a scenario gets a predictable as-of timestamp.
//
// Thread-safety: all methods are safe for concurrent use.
type FixedClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewFixedClock creates a clock whose first Next() returns start and whose
// subsequent calls advance by step.
func NewFixedClock(start time.Time, step time.Duration) *FixedClock {
	return &FixedClock{next: start.UTC(), step: step}
}

// Next returns the current instant and advances the clock.
func (c *FixedClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// Reset rewinds the clock to a new start, for test reuse.
func (c *FixedClock) Reset(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = start.UTC()
}
