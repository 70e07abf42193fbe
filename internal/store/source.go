package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/scdkit/scdkit/internal/record"
)

// SourceTable reads the full snapshot of a source table. Records preserve
// the result set's column order so fingerprint input order is stable for a
// stable schema.
type SourceTable struct {
	db    *sqlx.DB
	table string
}

// FetchAll returns every row of the source table as a typed Record.
func (t *SourceTable) FetchAll(ctx context.Context) ([]*record.Record, error) {
	rows, err := t.db.QueryxContext(ctx, "SELECT * FROM "+quoteIdent(t.table)) //nolint:gosec // identifier is quoted
	if err != nil {
		return nil, mapStorageErr("query source table "+t.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read source columns: %w", err)
	}

	var records []*record.Record
	for rows.Next() {
		raw := make(map[string]any, len(cols))
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		rec, err := recordFromRow(raw, cols, nil)
		if err != nil {
			return nil, fmt.Errorf("source table %s: %w", t.table, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr("iterate source table "+t.table, err)
	}

	if records == nil {
		records = []*record.Record{}
	}
	return records, nil
}

// recordFromRow builds a Record from a MapScan result in column order,
// skipping any column named in skip.
func recordFromRow(raw map[string]any, cols []string, skip map[string]bool) (*record.Record, error) {
	rec := record.New()
	for _, col := range cols {
		if skip[col] {
			continue
		}
		v, err := record.FromAny(raw[col])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		rec.Set(col, v)
	}
	return rec, nil
}
