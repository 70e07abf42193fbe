// Package engine implements the change-detection and temporal-versioning
// core: classify a source snapshot against the current slice of a
// versioned history table, then apply the resulting mutations under the
// Type 2 invariants (at most one current row per key, contiguous validity
// intervals, expire-and-insert applied atomically).
//
// The engine owns no persistent state between passes. Storage access goes
// through the Source and History interfaces; the single as-of timestamp of
// a pass comes from an injectable Clock so tests can run deterministically.
package engine
