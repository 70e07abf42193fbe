package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClockUTCMicroseconds(t *testing.T) {
	c := NewSystemClock()

	ts := c.Next()
	assert.Equal(t, time.UTC, ts.Location())
	assert.Equal(t, ts, ts.Truncate(time.Microsecond))
}

func TestSystemClockStrictlyIncreasing(t *testing.T) {
	c := NewSystemClock()

	prev := c.Next()
	for i := 0; i < 1000; i++ {
		next := c.Next()
		assert.True(t, next.After(prev), "as-of must grow even within one wall-clock tick")
		prev = next
	}
}

func TestSystemClockThreadSafe(t *testing.T) {
	c := NewSystemClock()
	const goroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	stamps := make(chan time.Time, goroutines*callsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				stamps <- c.Next()
			}
		}()
	}

	wg.Wait()
	close(stamps)

	seen := make(map[int64]bool)
	for ts := range stamps {
		ns := ts.UnixNano()
		assert.False(t, seen[ns], "timestamp %v issued twice", ts)
		seen[ns] = true
	}
	assert.Len(t, seen, goroutines*callsPerGoroutine)
}
