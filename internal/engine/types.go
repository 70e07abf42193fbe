package engine

import (
	"context"
	"time"

	"github.com/scdkit/scdkit/internal/fingerprint"
	"github.com/scdkit/scdkit/internal/record"
)

// VersionRow is one historical instance of an entity in the history table.
//
// Invariants per business key: at most one row has IsCurrent true, and the
// [ValidFrom, ValidTo) intervals are contiguous and non-overlapping.
// Superseded rows are immutable; only the ValidTo/IsCurrent pair of the
// previously-current row is mutated, and only inside the transaction that
// also inserts its replacement.
type VersionRow struct {
	// Key is the canonical form of the business key value, used to join
	// against source records.
	Key string

	// KeyValue is the raw business key value for SQL binding and display.
	KeyValue record.Value

	// Attrs holds the business attributes as of this version.
	Attrs *record.Record

	RowHash   fingerprint.Fingerprint
	ValidFrom time.Time
	ValidTo   time.Time
	IsCurrent bool
}

// Source provides the full current snapshot of the tracked entity set.
type Source interface {
	FetchAll(ctx context.Context) ([]*record.Record, error)
}

// History provides read/write access to the versioned table. FetchCurrent
// must return only rows with is_current set, keyed by the canonical
// business key form; it must fail with an INVARIANT_VIOLATION error if a
// key has two current rows rather than pick one.
type History interface {
	FetchCurrent(ctx context.Context) (map[string]VersionRow, error)
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one merge transaction. All mutations of a pass happen inside a
// single Tx; a crash before Commit leaves the history unchanged.
type Tx interface {
	// CloseOut expires the current row of a key: valid_to = asOf,
	// is_current = false. A key with no current row is a no-op, which
	// makes re-running a partially failed pass safe.
	CloseOut(ctx context.Context, key record.Value, asOf time.Time) error

	// InsertVersion inserts a new current row with valid_from = asOf and
	// the sentinel valid_to. Re-inserting the same (key, asOf) pair is a
	// no-op for idempotency.
	InsertVersion(ctx context.Context, rec *record.Record, hash fingerprint.Fingerprint, asOf time.Time) error

	Commit() error
	Rollback() error
}

// RunContext carries the identifiers shared by every mutation of one pass:
// all rows closed or opened in the pass carry the same AsOf boundary, so a
// point-in-time query sees a consistent cut. Discarded when the pass ends.
type RunContext struct {
	RunID string
	AsOf  time.Time
}
