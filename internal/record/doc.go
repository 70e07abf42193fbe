// Package record provides the typed attribute model shared by the
// fingerprint engine, the delta classifier, and the storage layer.
//
// A Record is an ordered mapping from attribute name to a tagged scalar
// Value (text, integer, real, or null). Canonicalization rules live here
// and nowhere else: every component that needs a stable text form of a
// value goes through Value.Canonical, so null handling, number formatting,
// and Unicode normalization are enforced in exactly one place.
package record
