package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClockAdvancesByStep(t *testing.T) {
	start := time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)
	c := NewFixedClock(start, time.Minute)

	assert.Equal(t, start, c.Next())
	assert.Equal(t, start.Add(time.Minute), c.Next())
	assert.Equal(t, start.Add(2*time.Minute), c.Next())
}

func TestFixedClockNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	start := time.Date(2026, 1, 19, 14, 0, 0, 0, loc)

	c := NewFixedClock(start, time.Minute)
	assert.Equal(t, time.UTC, c.Next().Location())
}

func TestFixedClockReset(t *testing.T) {
	start := time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)
	c := NewFixedClock(start, time.Minute)

	c.Next()
	c.Next()
	c.Reset(start)

	assert.Equal(t, start, c.Next())
}
