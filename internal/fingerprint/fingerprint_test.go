package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scdkit/scdkit/internal/record"
)

func makeRecord(pairs ...any) *record.Record {
	r := record.New()
	for i := 0; i < len(pairs); i += 2 {
		r.Set(pairs[i].(string), record.MustFromAny(pairs[i+1]))
	}
	return r
}

func TestComputeDeterministic(t *testing.T) {
	rec := makeRecord("id", 1, "product_name", "Laptop", "price", 999.99)
	attrs := []string{"product_name", "price"}

	first, err := Compute(rec, attrs)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		again, err := Compute(rec, attrs)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeHexDigest(t *testing.T) {
	rec := makeRecord("price", 999.99)

	fp, err := Compute(rec, []string{"price"})
	require.NoError(t, err)

	assert.Len(t, string(fp), 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", string(fp))
}

func TestComputeDetectsChange(t *testing.T) {
	before := makeRecord("product_name", "Laptop", "price", 999.99)
	after := makeRecord("product_name", "Laptop", "price", 1299.99)
	attrs := []string{"product_name", "price"}

	fpBefore, err := Compute(before, attrs)
	require.NoError(t, err)
	fpAfter, err := Compute(after, attrs)
	require.NoError(t, err)

	assert.NotEqual(t, fpBefore, fpAfter)
}

func TestComputeIgnoresUnmonitoredAttributes(t *testing.T) {
	a := makeRecord("id", 1, "price", 999.99, "last_seen", "2026-01-19")
	b := makeRecord("id", 1, "price", 999.99, "last_seen", "2026-01-20")

	fpA, err := Compute(a, []string{"price"})
	require.NoError(t, err)
	fpB, err := Compute(b, []string{"price"})
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB)
}

func TestComputeAttributeOrderSignificant(t *testing.T) {
	rec := makeRecord("a", "x", "b", "y")

	fpAB, err := Compute(rec, []string{"a", "b"})
	require.NoError(t, err)
	fpBA, err := Compute(rec, []string{"b", "a"})
	require.NoError(t, err)

	assert.NotEqual(t, fpAB, fpBA)
}

func TestComputeNullVersusEmptyString(t *testing.T) {
	withNull := makeRecord("note", nil)
	withEmpty := makeRecord("note", "")

	fpNull, err := Compute(withNull, []string{"note"})
	require.NoError(t, err)
	fpEmpty, err := Compute(withEmpty, []string{"note"})
	require.NoError(t, err)

	assert.NotEqual(t, fpNull, fpEmpty)
}

func TestComputeTypeChangeIsChange(t *testing.T) {
	asInt := makeRecord("amount", int64(1))
	asReal := makeRecord("amount", 1.0)
	asText := makeRecord("amount", "1")

	fpInt, err := Compute(asInt, []string{"amount"})
	require.NoError(t, err)
	fpReal, err := Compute(asReal, []string{"amount"})
	require.NoError(t, err)
	fpText, err := Compute(asText, []string{"amount"})
	require.NoError(t, err)

	assert.NotEqual(t, fpInt, fpReal)
	assert.NotEqual(t, fpInt, fpText)
	assert.NotEqual(t, fpReal, fpText)
}

func TestComputeNumericFormattingIsNotChange(t *testing.T) {
	// 999.99 and 999.990 are the same float64, so re-extracting the same
	// price with trailing zeros must not open a new version.
	a := makeRecord("price", 999.99)
	b := makeRecord("price", 999.990)

	fpA, err := Compute(a, []string{"price"})
	require.NoError(t, err)
	fpB, err := Compute(b, []string{"price"})
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB)
}

func TestComputeSeparatorInjectionResistant(t *testing.T) {
	// Two attribute lists whose concatenations contain the same characters
	// must not hash identically: ("ab", "c") vs ("a", "bc"), and values
	// that embed the separator or escape bytes themselves.
	tests := []struct {
		name string
		a    *record.Record
		b    *record.Record
	}{
		{
			name: "boundary shift",
			a:    makeRecord("x", "ab", "y", "c"),
			b:    makeRecord("x", "a", "y", "bc"),
		},
		{
			name: "embedded separator",
			a:    makeRecord("x", "a\x1fb", "y", "c"),
			b:    makeRecord("x", "a", "y", "b\x1fc"),
		},
		{
			name: "embedded escape",
			a:    makeRecord("x", "a\x1b", "y", "b"),
			b:    makeRecord("x", "a", "y", "\x1bb"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fpA, err := Compute(tt.a, []string{"x", "y"})
			require.NoError(t, err)
			fpB, err := Compute(tt.b, []string{"x", "y"})
			require.NoError(t, err)
			assert.NotEqual(t, fpA, fpB)
		})
	}
}

func TestComputeMissingAttribute(t *testing.T) {
	rec := makeRecord("id", 1, "price", 999.99)

	_, err := Compute(rec, []string{"price", "color"})
	require.Error(t, err)

	var missing *MissingAttributeError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "color", missing.Attribute)
}

func TestComputeNFCEquivalentTextMatches(t *testing.T) {
	precomposed := makeRecord("name", "café")
	decomposed := makeRecord("name", "café")

	fpA, err := Compute(precomposed, []string{"name"})
	require.NoError(t, err)
	fpB, err := Compute(decomposed, []string{"name"})
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB)
}

func TestEscapeDoublesControlBytes(t *testing.T) {
	assert.Equal(t, []byte("plain"), escape("plain"))
	assert.Equal(t, []byte{esc, sep}, escape(string([]byte{sep})))
	assert.Equal(t, []byte{esc, esc}, escape(string([]byte{esc})))
	assert.Equal(t, []byte{'a', esc, esc, esc, sep, 'b'}, escape(string([]byte{'a', esc, sep, 'b'})))
}
