package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7GeneratorProducesValidUUIDs(t *testing.T) {
	g := UUIDv7Generator{}

	id, err := uuid.Parse(g.Generate())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestUUIDv7GeneratorTimeSortable(t *testing.T) {
	g := UUIDv7Generator{}

	prev := g.Generate()
	for i := 0; i < 100; i++ {
		next := g.Generate()
		assert.NotEqual(t, prev, next)
		prev = next
	}
}

func TestFixedGeneratorReturnsIDsInOrder(t *testing.T) {
	g := NewFixedGenerator("run-001", "run-002")

	assert.Equal(t, "run-001", g.Generate())
	assert.Equal(t, "run-002", g.Generate())
}

func TestFixedGeneratorPanicsWhenExhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	g.Generate()

	assert.Panics(t, func() { g.Generate() })
}
