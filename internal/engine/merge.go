package engine

import (
	"context"
	"fmt"
)

// Tally counts applied outcomes for the run summary.
type Tally struct {
	New       int
	Changed   int
	Unchanged int
	Removed   int
}

// ApplyAll applies every delta inside one history transaction.
//
// A Changed key is two mutations observed together: close out the prior
// current row at rc.AsOf, then insert the replacement with
// valid_from = rc.AsOf. Because both run inside the same transaction, a
// reader never sees a key with zero or two current rows.
//
// Re-invocation after a partial failure is safe: close-out of an already
// closed key affects no rows, and inserting an existing (key, valid_from)
// pair is a no-op, so replaying the same snapshot at the same as-of leaves
// the history as a committed pass would have.
func ApplyAll(ctx context.Context, history History, deltas []Delta, rc RunContext) (Tally, error) {
	var tally Tally

	tx, err := history.Begin(ctx)
	if err != nil {
		return Tally{}, fmt.Errorf("begin merge transaction: %w", err)
	}
	defer tx.Rollback() // no-op once committed

	for _, d := range deltas {
		switch d.Outcome {
		case OutcomeNew:
			if err := tx.InsertVersion(ctx, d.Source, d.Hash, rc.AsOf); err != nil {
				return Tally{}, fmt.Errorf("insert version for key %s: %w", d.KeyValue, err)
			}
			tally.New++

		case OutcomeChanged:
			if err := tx.CloseOut(ctx, d.KeyValue, rc.AsOf); err != nil {
				return Tally{}, fmt.Errorf("close out key %s: %w", d.KeyValue, err)
			}
			if err := tx.InsertVersion(ctx, d.Source, d.Hash, rc.AsOf); err != nil {
				return Tally{}, fmt.Errorf("insert version for key %s: %w", d.KeyValue, err)
			}
			tally.Changed++

		case OutcomeUnchanged:
			tally.Unchanged++

		case OutcomeRemoved:
			if err := tx.CloseOut(ctx, d.KeyValue, rc.AsOf); err != nil {
				return Tally{}, fmt.Errorf("close out removed key %s: %w", d.KeyValue, err)
			}
			tally.Removed++
		}
	}

	if err := tx.Commit(); err != nil {
		return Tally{}, err
	}
	return tally, nil
}
