package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/scdkit/scdkit/internal/engine"
	"github.com/scdkit/scdkit/internal/fingerprint"
	"github.com/scdkit/scdkit/internal/record"
)

// Audit columns appended to every history table. The effective primary key
// is (business key, valid_from) so an entity can hold multiple versions.
const (
	ColRowHash   = "row_hash"
	ColValidFrom = "valid_from"
	ColValidTo   = "valid_to"
	ColIsCurrent = "is_current"
)

var auditColumns = map[string]bool{
	ColRowHash:   true,
	ColValidFrom: true,
	ColValidTo:   true,
	ColIsCurrent: true,
}

// HistoryTable is the versioned table connector. It implements
// engine.History.
type HistoryTable struct {
	db    *sqlx.DB
	table string
	key   string
}

// Table returns the history table name.
func (h *HistoryTable) Table() string { return h.table }

// EnsureFrom creates the history table if it does not exist, copying the
// source table's column definitions and appending the audit columns, plus
// an index on (key, is_current) for the current-slice lookup. Idempotent.
func (h *HistoryTable) EnsureFrom(ctx context.Context, sourceTable string) error {
	cols, err := tableColumns(ctx, h.db, sourceTable)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("source table %s not found or has no columns", sourceTable)
	}

	keyFound := false
	defs := make([]string, 0, len(cols)+4)
	for _, col := range cols {
		if auditColumns[col.Name] {
			return engine.NewInvalidConfigurationError(
				"source column " + col.Name + " collides with a history audit column")
		}
		if col.Name == h.key {
			keyFound = true
		}
		def := quoteIdent(col.Name)
		if col.Type != "" {
			def += " " + col.Type
		}
		defs = append(defs, def)
	}
	if !keyFound {
		return engine.NewInvalidConfigurationError(
			"business key column " + h.key + " not found in source table " + sourceTable)
	}

	defs = append(defs,
		quoteIdent(ColRowHash)+" TEXT NOT NULL",
		quoteIdent(ColValidFrom)+" TEXT NOT NULL",
		quoteIdent(ColValidTo)+" TEXT NOT NULL",
		quoteIdent(ColIsCurrent)+" INTEGER NOT NULL",
	)
	defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s, %s)", quoteIdent(h.key), quoteIdent(ColValidFrom)))

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		quoteIdent(h.table), strings.Join(defs, ",\n\t"))
	if _, err := h.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create history table %s: %w", h.table, err)
	}

	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s, %s)",
		quoteIdent("idx_"+h.table+"_current"), quoteIdent(h.table),
		quoteIdent(h.key), quoteIdent(ColIsCurrent))
	if _, err := h.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("create history index: %w", err)
	}
	return nil
}

// FetchCurrent returns the current slice keyed by canonical business key.
// Two current rows for one key is an invariant violation and fails the
// fetch instead of silently picking one.
func (h *HistoryTable) FetchCurrent(ctx context.Context) (map[string]engine.VersionRow, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = 1",
		quoteIdent(h.table), quoteIdent(ColIsCurrent))
	rows, err := h.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, mapStorageErr("query current history slice", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read history columns: %w", err)
	}

	current := make(map[string]engine.VersionRow)
	for rows.Next() {
		row, err := h.scanVersionRow(rows, cols)
		if err != nil {
			return nil, err
		}
		if _, dup := current[row.Key]; dup {
			return nil, engine.NewInvariantViolationError(row.KeyValue.String(),
				"history table holds two current rows for one business key")
		}
		current[row.Key] = row
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr("iterate current history slice", err)
	}
	return current, nil
}

// Begin opens the merge transaction.
func (h *HistoryTable) Begin(ctx context.Context) (engine.Tx, error) {
	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, mapStorageErr("begin history transaction", err)
	}
	return &historyTx{tx: tx, h: h}, nil
}

// Versions returns every version row for one business key, ordered by
// valid_from ascending. Used by the history CLI command and by tests that
// check interval contiguity.
func (h *HistoryTable) Versions(ctx context.Context, key record.Value) ([]engine.VersionRow, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? ORDER BY %s ASC",
		quoteIdent(h.table), quoteIdent(h.key), quoteIdent(ColValidFrom))
	rows, err := h.db.QueryxContext(ctx, query, key.Native())
	if err != nil {
		return nil, mapStorageErr("query version rows", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read history columns: %w", err)
	}

	var versions []engine.VersionRow
	for rows.Next() {
		row, err := h.scanVersionRow(rows, cols)
		if err != nil {
			return nil, err
		}
		versions = append(versions, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr("iterate version rows", err)
	}
	if versions == nil {
		versions = []engine.VersionRow{}
	}
	return versions, nil
}

// AllVersions returns every row of the history table ordered by key, then
// valid_from. Used by the conformance harness for snapshots.
func (h *HistoryTable) AllVersions(ctx context.Context) ([]engine.VersionRow, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s ASC, %s ASC",
		quoteIdent(h.table), quoteIdent(h.key), quoteIdent(ColValidFrom))
	rows, err := h.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, mapStorageErr("query history table", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read history columns: %w", err)
	}

	var versions []engine.VersionRow
	for rows.Next() {
		row, err := h.scanVersionRow(rows, cols)
		if err != nil {
			return nil, err
		}
		versions = append(versions, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr("iterate history table", err)
	}
	if versions == nil {
		versions = []engine.VersionRow{}
	}
	return versions, nil
}

func (h *HistoryTable) scanVersionRow(rows *sqlx.Rows, cols []string) (engine.VersionRow, error) {
	raw := make(map[string]any, len(cols))
	if err := rows.MapScan(raw); err != nil {
		return engine.VersionRow{}, fmt.Errorf("scan history row: %w", err)
	}

	attrs, err := recordFromRow(raw, cols, auditColumns)
	if err != nil {
		return engine.VersionRow{}, fmt.Errorf("history table %s: %w", h.table, err)
	}

	keyVal, ok := attrs.Get(h.key)
	if !ok {
		return engine.VersionRow{}, fmt.Errorf("history table %s has no business key column %s", h.table, h.key)
	}

	hash, err := textColumn(raw, ColRowHash)
	if err != nil {
		return engine.VersionRow{}, err
	}
	fromText, err := textColumn(raw, ColValidFrom)
	if err != nil {
		return engine.VersionRow{}, err
	}
	toText, err := textColumn(raw, ColValidTo)
	if err != nil {
		return engine.VersionRow{}, err
	}
	validFrom, err := record.ParseTime(fromText)
	if err != nil {
		return engine.VersionRow{}, fmt.Errorf("parse %s: %w", ColValidFrom, err)
	}
	validTo, err := record.ParseTime(toText)
	if err != nil {
		return engine.VersionRow{}, fmt.Errorf("parse %s: %w", ColValidTo, err)
	}

	isCurrent, ok := raw[ColIsCurrent].(int64)
	if !ok {
		return engine.VersionRow{}, fmt.Errorf("column %s is not an integer", ColIsCurrent)
	}

	return engine.VersionRow{
		Key:       keyVal.Canonical(),
		KeyValue:  keyVal,
		Attrs:     attrs,
		RowHash:   fingerprint.Fingerprint(hash),
		ValidFrom: validFrom,
		ValidTo:   validTo,
		IsCurrent: isCurrent != 0,
	}, nil
}

func textColumn(raw map[string]any, name string) (string, error) {
	switch v := raw[name].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("column %s is not text (got %T)", name, raw[name])
	}
}

// columnInfo mirrors one row of PRAGMA table_info output.
type columnInfo struct {
	CID     int            `db:"cid"`
	Name    string         `db:"name"`
	Type    string         `db:"type"`
	NotNull int            `db:"notnull"`
	Default sql.NullString `db:"dflt_value"`
	PK      int            `db:"pk"`
}

func tableColumns(ctx context.Context, db *sqlx.DB, table string) ([]columnInfo, error) {
	var cols []columnInfo
	query := "PRAGMA table_info(" + quoteIdent(table) + ")"
	if err := db.SelectContext(ctx, &cols, query); err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", table, err)
	}
	return cols, nil
}
