package record

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Value is a sealed interface over the scalar types a source column can
// carry. Only TextValue, IntegerValue, RealValue, and NullValue implement
// it. Keeping the set closed means Canonical covers every case and the
// fingerprint engine can never meet a value it does not know how to
// serialize.
type Value interface {
	value() // sealed

	// Canonical returns the stable text form used for fingerprinting and
	// for keying the current-history slice. Forms are type-tagged so a
	// text "1" and an integer 1 never collide, and null maps to a reserved
	// token distinct from the empty string.
	//
	// Two values with equal canonical forms are treated as unchanged.
	// In particular a real that round-trips to the same shortest decimal
	// representation (999.99 vs 999.990) is NOT a change, while a type
	// change (integer 1 -> real 1.0) always is.
	Canonical() string

	// Native returns the plain Go scalar for binding as a SQL argument
	// (nil for null).
	Native() any

	// String returns a human-readable form for logs and summaries.
	String() string
}

// nullToken is the canonical form of null. The leading NUL byte cannot
// appear in any tagged form, so null never collides with a real value.
const nullToken = "\x00null"

// TextValue is a text scalar.
type TextValue string

// IntegerValue is a 64-bit integer scalar.
type IntegerValue int64

// RealValue is a 64-bit floating point scalar.
type RealValue float64

// NullValue is SQL NULL.
type NullValue struct{}

func (TextValue) value()    {}
func (IntegerValue) value() {}
func (RealValue) value()    {}
func (NullValue) value()    {}

// Text creates a TextValue.
func Text(s string) TextValue { return TextValue(s) }

// Integer creates an IntegerValue.
func Integer(n int64) IntegerValue { return IntegerValue(n) }

// Real creates a RealValue.
func Real(f float64) RealValue { return RealValue(f) }

// Null creates a NullValue.
func Null() NullValue { return NullValue{} }

// Canonical forms are tagged with a single type letter and a colon.
// Text is NFC-normalized so visually identical strings with different
// code point sequences fingerprint identically.
func (v TextValue) Canonical() string { return "t:" + norm.NFC.String(string(v)) }

func (v IntegerValue) Canonical() string { return "i:" + strconv.FormatInt(int64(v), 10) }

// Canonical for reals uses the shortest representation that round-trips
// through float64, which is locale-independent and stable across
// architectures.
func (v RealValue) Canonical() string {
	return "r:" + strconv.FormatFloat(float64(v), 'g', -1, 64)
}

func (NullValue) Canonical() string { return nullToken }

func (v TextValue) Native() any    { return string(v) }
func (v IntegerValue) Native() any { return int64(v) }
func (v RealValue) Native() any    { return float64(v) }
func (NullValue) Native() any      { return nil }

func (v TextValue) String() string    { return string(v) }
func (v IntegerValue) String() string { return strconv.FormatInt(int64(v), 10) }
func (v RealValue) String() string    { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (NullValue) String() string      { return "NULL" }

// FromAny converts a scalar produced by the database driver (or a YAML
// scenario file) into a Value. Supported inputs mirror what the sqlite3
// driver hands back from a dynamically typed column.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return NullValue{}, nil
	case string:
		return TextValue(val), nil
	case []byte:
		return TextValue(string(val)), nil
	case int64:
		return IntegerValue(val), nil
	case int:
		return IntegerValue(int64(val)), nil
	case int32:
		return IntegerValue(int64(val)), nil
	case float64:
		return RealValue(val), nil
	case float32:
		return RealValue(float64(val)), nil
	case bool:
		// SQLite stores booleans as integers.
		if val {
			return IntegerValue(1), nil
		}
		return IntegerValue(0), nil
	case time.Time:
		return TextValue(FormatTime(val)), nil
	case Value:
		return val, nil
	default:
		return nil, fmt.Errorf("unsupported scalar type %T", v)
	}
}

// MustFromAny is like FromAny but panics on unsupported types.
// Use only in tests or when inputs are known to be valid.
func MustFromAny(v any) Value {
	val, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return val
}
