package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scdkit/scdkit/internal/fingerprint"
	"github.com/scdkit/scdkit/internal/record"
)

// memHistory is an in-memory History for exercising the merger and the
// orchestrator without SQLite. Mutations buffer in the transaction and
// apply on Commit, mirroring the real store's visibility rules.
type memHistory struct {
	rows []VersionRow

	fetchErr  error
	fetchErrN int // fail FetchCurrent this many times, then succeed
	beginErr  error
	commitErr error
}

func (h *memHistory) FetchCurrent(ctx context.Context) (map[string]VersionRow, error) {
	if h.fetchErr != nil && h.fetchErrN != 0 {
		if h.fetchErrN > 0 {
			h.fetchErrN--
		}
		return nil, h.fetchErr
	}
	out := make(map[string]VersionRow)
	for _, r := range h.rows {
		if !r.IsCurrent {
			continue
		}
		out[r.Key] = r
	}
	return out, nil
}

func (h *memHistory) Begin(ctx context.Context) (Tx, error) {
	if h.beginErr != nil {
		return nil, h.beginErr
	}
	return &memTx{h: h}, nil
}

type memTx struct {
	h    *memHistory
	ops  []string
	rows []VersionRow
	done bool
}

func (tx *memTx) CloseOut(ctx context.Context, key record.Value, asOf time.Time) error {
	tx.ops = append(tx.ops, "closeout "+key.String())
	canon := key.Canonical()
	for i := range tx.h.rows {
		if tx.h.rows[i].Key == canon && tx.h.rows[i].IsCurrent {
			row := tx.h.rows[i]
			row.ValidTo = asOf
			row.IsCurrent = false
			tx.rows = append(tx.rows, row)
		}
	}
	return nil
}

func (tx *memTx) InsertVersion(ctx context.Context, rec *record.Record, hash fingerprint.Fingerprint, asOf time.Time) error {
	keyVal, _ := rec.Get("id")
	tx.ops = append(tx.ops, "insert "+keyVal.String())
	tx.rows = append(tx.rows, VersionRow{
		Key:       keyVal.Canonical(),
		KeyValue:  keyVal,
		Attrs:     rec,
		RowHash:   hash,
		ValidFrom: asOf,
		ValidTo:   record.SentinelTime,
		IsCurrent: true,
	})
	return nil
}

func (tx *memTx) Commit() error {
	if tx.h.commitErr != nil {
		return NewTransactionConflictError(tx.h.commitErr)
	}
	tx.done = true

	// Staged close-outs replace their live row; inserts append.
	for _, staged := range tx.rows {
		replaced := false
		for i := range tx.h.rows {
			if tx.h.rows[i].Key == staged.Key && tx.h.rows[i].IsCurrent && !staged.IsCurrent {
				tx.h.rows[i] = staged
				replaced = true
				break
			}
		}
		if !replaced {
			tx.h.rows = append(tx.h.rows, staged)
		}
	}
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.rows = nil
	return nil
}

// memSource is a fixed source snapshot, optionally failing its first
// fetches with a given error.
type memSource struct {
	records []*record.Record

	fetchErr  error
	fetchErrN int
}

func (s *memSource) FetchAll(ctx context.Context) ([]*record.Record, error) {
	if s.fetchErr != nil && s.fetchErrN != 0 {
		if s.fetchErrN > 0 {
			s.fetchErrN--
		}
		return nil, s.fetchErr
	}
	return s.records, nil
}

func classified(t *testing.T, source []*record.Record, h *memHistory, detectRemoved bool) []Delta {
	t.Helper()
	current, err := h.FetchCurrent(context.Background())
	require.NoError(t, err)
	deltas, err := Classify(source, current, "id", []string{"price"}, detectRemoved)
	require.NoError(t, err)
	return deltas
}

func TestApplyAllNewInsertsCurrentRow(t *testing.T) {
	h := &memHistory{}
	rec := makeRecord(t, "id", 1, "price", 999.99)
	asOf := time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)

	tally, err := ApplyAll(context.Background(), h, classified(t, []*record.Record{rec}, h, false), RunContext{RunID: "r1", AsOf: asOf})
	require.NoError(t, err)
	assert.Equal(t, Tally{New: 1}, tally)

	require.Len(t, h.rows, 1)
	row := h.rows[0]
	assert.True(t, row.IsCurrent)
	assert.True(t, row.ValidFrom.Equal(asOf))
	assert.True(t, row.ValidTo.Equal(record.SentinelTime))
}

func TestApplyAllChangedIsCloseOutThenInsert(t *testing.T) {
	h := &memHistory{}
	ctx := context.Background()
	t0 := time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	_, err := ApplyAll(ctx, h, classified(t, []*record.Record{makeRecord(t, "id", 1, "price", 999.99)}, h, false), RunContext{AsOf: t0})
	require.NoError(t, err)

	tally, err := ApplyAll(ctx, h, classified(t, []*record.Record{makeRecord(t, "id", 1, "price", 1299.99)}, h, false), RunContext{AsOf: t1})
	require.NoError(t, err)
	assert.Equal(t, Tally{Changed: 1}, tally)

	require.Len(t, h.rows, 2)
	old, fresh := h.rows[0], h.rows[1]

	assert.False(t, old.IsCurrent)
	assert.True(t, old.ValidTo.Equal(t1), "prior row closes at the pass as-of")
	assert.True(t, fresh.IsCurrent)
	assert.True(t, fresh.ValidFrom.Equal(t1), "replacement opens at the same as-of")
	assert.True(t, old.ValidTo.Equal(fresh.ValidFrom), "intervals stay contiguous")
}

func TestApplyAllUnchangedWritesNothing(t *testing.T) {
	h := &memHistory{}
	ctx := context.Background()
	rec := makeRecord(t, "id", 1, "price", 999.99)
	t0 := time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)

	_, err := ApplyAll(ctx, h, classified(t, []*record.Record{rec}, h, false), RunContext{AsOf: t0})
	require.NoError(t, err)

	tally, err := ApplyAll(ctx, h, classified(t, []*record.Record{rec}, h, false), RunContext{AsOf: t0.Add(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, Tally{Unchanged: 1}, tally)

	require.Len(t, h.rows, 1)
	assert.True(t, h.rows[0].IsCurrent)
	assert.True(t, h.rows[0].ValidFrom.Equal(t0), "unchanged keys keep their open version")
}

func TestApplyAllRemovedClosesWithoutReplacement(t *testing.T) {
	h := &memHistory{}
	ctx := context.Background()
	t0 := time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	_, err := ApplyAll(ctx, h, classified(t, []*record.Record{makeRecord(t, "id", 1, "price", 999.99)}, h, false), RunContext{AsOf: t0})
	require.NoError(t, err)

	tally, err := ApplyAll(ctx, h, classified(t, nil, h, true), RunContext{AsOf: t1})
	require.NoError(t, err)
	assert.Equal(t, Tally{Removed: 1}, tally)

	require.Len(t, h.rows, 1)
	assert.False(t, h.rows[0].IsCurrent)
	assert.True(t, h.rows[0].ValidTo.Equal(t1))
}

func TestApplyAllBeginFailure(t *testing.T) {
	h := &memHistory{beginErr: errors.New("disk detached")}

	_, err := ApplyAll(context.Background(), h, nil, RunContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin merge transaction")
}

func TestApplyAllCommitFailureLeavesHistoryUntouched(t *testing.T) {
	h := &memHistory{commitErr: errors.New("database is locked")}
	rec := makeRecord(t, "id", 1, "price", 999.99)

	_, err := ApplyAll(context.Background(), h, classified(t, []*record.Record{rec}, h, false), RunContext{AsOf: time.Now()})
	require.Error(t, err)
	assert.True(t, IsTransactionConflict(err))
	assert.Empty(t, h.rows, "no partial writes after a failed commit")
}

func TestApplyAllErrorWrapsKey(t *testing.T) {
	h := &memHistory{commitErr: fmt.Errorf("busy")}
	rec := makeRecord(t, "id", 7, "price", 1.0)

	_, err := ApplyAll(context.Background(), h, classified(t, []*record.Record{rec}, h, false), RunContext{AsOf: time.Now()})
	require.Error(t, err)

	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, CodeTransactionConflict, re.Code)
}
