// Package fingerprint reduces a record's monitored attributes to a
// fixed-length digest used for change detection. Equal fingerprints are
// treated as "no detectable change"; this is a collision-resistance
// guarantee, not a cryptographic one.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/scdkit/scdkit/internal/record"
)

// domain separates row-hash input from any other SHA-256 use of the same
// bytes. The version suffix allows a future algorithm migration without
// silently treating old hashes as comparable.
const domain = "scdkit/rowhash/v1"

const (
	sep = 0x1f // unit separator between canonical values
	esc = 0x1b // escape byte, doubled when literal
)

// Fingerprint is a lowercase hex SHA-256 digest (64 characters).
type Fingerprint string

// MissingAttributeError reports an attribute named in the monitored set
// that is absent from the record. It indicates schema drift between the
// source table and the pipeline definition and is fatal for the pass.
type MissingAttributeError struct {
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("monitored attribute %q missing from record", e.Attribute)
}

// Compute derives the fingerprint of rec over the given attributes.
//
// The attribute order is significant and must be stable across runs:
// reordering the monitored set changes every fingerprint and makes every
// row appear changed on the next pass. That is an operational hazard of
// the configuration, not a defect here.
//
// Compute is a pure function: same record and attribute list always yield
// the same fingerprint, across processes and architectures.
func Compute(rec *record.Record, attributes []string) (Fingerprint, error) {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})

	for _, attr := range attributes {
		v, ok := rec.Get(attr)
		if !ok {
			return "", &MissingAttributeError{Attribute: attr}
		}
		h.Write([]byte{sep})
		h.Write(escape(v.Canonical()))
	}

	return Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}

// escape makes the separator byte safe inside canonical values: esc and
// sep are prefixed with esc, so no concatenation of two value lists can
// produce the same byte stream.
func escape(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == sep || b == esc {
			out = append(out, esc)
		}
		out = append(out, b)
	}
	return out
}
