package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Compile-time check that every scalar kind implements Value.
	var _ Value = TextValue("test")
	var _ Value = IntegerValue(42)
	var _ Value = RealValue(3.14)
	var _ Value = NullValue{}
}

func TestCanonicalTypeTagged(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"text", Text("hello"), "t:hello"},
		{"empty text", Text(""), "t:"},
		{"integer", Integer(42), "i:42"},
		{"negative integer", Integer(-100), "i:-100"},
		{"max int64", Integer(9223372036854775807), "i:9223372036854775807"},
		{"real", Real(3.14), "r:3.14"},
		{"real whole number", Real(1.0), "r:1"},
		{"negative real", Real(-2.5), "r:-2.5"},
		{"null", Null(), "\x00null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.value.Canonical())
		})
	}
}

func TestCanonicalNoCrossTypeCollision(t *testing.T) {
	// A text "1" and an integer 1 must never classify as the same value.
	assert.NotEqual(t, Text("1").Canonical(), Integer(1).Canonical())
	assert.NotEqual(t, Integer(1).Canonical(), Real(1).Canonical())
	assert.NotEqual(t, Text("1").Canonical(), Real(1).Canonical())
}

func TestCanonicalNullDistinctFromEmptyString(t *testing.T) {
	assert.NotEqual(t, Text("").Canonical(), Null().Canonical())
}

func TestCanonicalNullDistinctFromNullText(t *testing.T) {
	// A column that literally contains the text "null" is not SQL NULL.
	assert.NotEqual(t, Text("null").Canonical(), Null().Canonical())
	assert.NotEqual(t, Text("\x00null").Canonical(), Null().Canonical())
}

func TestCanonicalTextNFCNormalized(t *testing.T) {
	// U+00E9 (precomposed) vs U+0065 U+0301 (combining acute): visually
	// identical, different code point sequences, same canonical form.
	precomposed := Text("café")
	decomposed := Text("café")

	assert.Equal(t, precomposed.Canonical(), decomposed.Canonical())
}

func TestCanonicalRealShortestRoundTrip(t *testing.T) {
	// 999.99 and 999.990 parse to the same float64, so they share a
	// canonical form and never register as a change.
	assert.Equal(t, Real(999.99).Canonical(), Real(999.990).Canonical())

	// Distinct float64 values stay distinct.
	assert.NotEqual(t, Real(999.99).Canonical(), Real(999.991).Canonical())
}

func TestNative(t *testing.T) {
	assert.Equal(t, "hello", Text("hello").Native())
	assert.Equal(t, int64(42), Integer(42).Native())
	assert.Equal(t, 3.14, Real(3.14).Native())
	assert.Nil(t, Null().Native())
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "hello", Text("hello").String())
	assert.Equal(t, "42", Integer(42).String())
	assert.Equal(t, "3.14", Real(3.14).String())
	assert.Equal(t, "NULL", Null().String())
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected Value
	}{
		{"nil", nil, NullValue{}},
		{"string", "hello", Text("hello")},
		{"bytes", []byte("raw"), Text("raw")},
		{"int64", int64(42), Integer(42)},
		{"int", 42, Integer(42)},
		{"int32", int32(42), Integer(42)},
		{"float64", 3.14, Real(3.14)},
		{"float32", float32(1.5), Real(1.5)},
		{"bool true", true, Integer(1)},
		{"bool false", false, Integer(0)},
		{"value passthrough", Text("already"), Text("already")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromAny(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestFromAnyTime(t *testing.T) {
	ts := time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)

	v, err := FromAny(ts)
	require.NoError(t, err)
	assert.Equal(t, Text("2026-01-19 12:00:00.000000000"), v)
}

func TestFromAnyUnsupported(t *testing.T) {
	_, err := FromAny(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scalar type")
}

func TestMustFromAnyPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustFromAny(make(chan int))
	})
}
