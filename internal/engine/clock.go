package engine

import (
	"sync"
	"time"
)

// Clock supplies the single as-of timestamp of a pass. Implementations
// must be strictly increasing across calls: valid_from must grow per key
// across passes even when passes run faster than the wall clock's
// resolution, otherwise two passes could collide on the same boundary.
type Clock interface {
	Next() time.Time
}

// SystemClock reads the wall clock but never returns a value that is not
// after the previous one: if time.Now has not advanced past the last
// as-of, the last value is bumped by one microsecond instead.
//
// Thread-safety: safe for concurrent use, though a pass calls Next exactly
// once.
type SystemClock struct {
	mu   sync.Mutex
	last time.Time
}

// NewSystemClock creates a SystemClock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Next returns the next as-of timestamp in UTC, truncated to microseconds.
func (c *SystemClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}
