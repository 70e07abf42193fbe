package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/scdkit/scdkit/internal/engine"
	"github.com/scdkit/scdkit/internal/fingerprint"
	"github.com/scdkit/scdkit/internal/record"
)

// historyTx is one merge transaction over a history table. The close-out
// and insert of a changed key both run here, so the storage layer's
// transaction atomicity makes the pair all-or-nothing.
type historyTx struct {
	tx *sqlx.Tx
	h  *HistoryTable
}

// CloseOut expires a key's current row. Touching zero rows is fine: the
// key may already have been closed by an identical pass that failed after
// this statement, and tolerating that keeps re-runs idempotent.
func (t *historyTx) CloseOut(ctx context.Context, key record.Value, asOf time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ?, %s = 0 WHERE %s = ? AND %s = 1",
		quoteIdent(t.h.table),
		quoteIdent(ColValidTo), quoteIdent(ColIsCurrent),
		quoteIdent(t.h.key), quoteIdent(ColIsCurrent))

	if _, err := t.tx.ExecContext(ctx, query, record.FormatTime(asOf), key.Native()); err != nil {
		return mapStorageErr("close out version row", err)
	}
	return nil
}

// InsertVersion inserts the new current row. ON CONFLICT on the
// (key, valid_from) primary key does nothing, so re-inserting the same
// version at the same as-of is a no-op rather than an error.
func (t *historyTx) InsertVersion(ctx context.Context, rec *record.Record, hash fingerprint.Fingerprint, asOf time.Time) error {
	names := rec.Names()
	cols := make([]string, 0, len(names)+4)
	args := make([]any, 0, len(names)+4)
	for _, name := range names {
		v, _ := rec.Get(name)
		cols = append(cols, quoteIdent(name))
		args = append(args, v.Native())
	}
	cols = append(cols,
		quoteIdent(ColRowHash), quoteIdent(ColValidFrom),
		quoteIdent(ColValidTo), quoteIdent(ColIsCurrent))
	args = append(args,
		string(hash), record.FormatTime(asOf),
		record.FormatTime(record.SentinelTime), 1)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s, %s) DO NOTHING",
		quoteIdent(t.h.table),
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		quoteIdent(t.h.key), quoteIdent(ColValidFrom))

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return mapStorageErr("insert version row", err)
	}
	return nil
}

// Commit commits the merge. Any commit failure is surfaced as a
// transaction conflict: nothing was made visible and the pass is safe to
// re-run from scratch.
func (t *historyTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return engine.NewTransactionConflictError(err)
	}
	return nil
}

// Rollback aborts the merge. A rollback after commit is a no-op.
func (t *historyTx) Rollback() error {
	return t.tx.Rollback()
}
