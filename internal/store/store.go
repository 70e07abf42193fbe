// Package store is the SQLite storage connector: it supplies the source
// snapshot and implements the history read/write surface the engine
// consumes. It is the only package that speaks SQL.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/scdkit/scdkit/internal/engine"
)

// Store wraps a SQLite database holding both the source table and the
// history table. SQLite allows one writer at a time, so the pool is capped
// at a single connection; that also matches the engine's
// single-writer-per-table assumption.
type Store struct {
	db *sqlx.DB
}

// Open creates or opens a SQLite database at the given path and applies
// the required pragmas. Idempotent - safe to call multiple times.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sqlx.DB for direct queries. Used by the test
// harness to seed source tables; prefer Store methods elsewhere.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Source returns a snapshot reader over the named table.
func (s *Store) Source(table string) *SourceTable {
	return &SourceTable{db: s.db, table: table}
}

// History returns the versioned-table connector for the named table keyed
// by the given business key column.
func (s *Store) History(table, businessKey string) *HistoryTable {
	return &HistoryTable{db: s.db, table: table, key: businessKey}
}

func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// quoteIdent quotes a SQL identifier. Table and column names come from
// pipeline definitions and PRAGMA output, never from row data, but quoting
// keeps reserved words and odd column names working.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// mapStorageErr classifies a read failure: lock contention is transient
// and retryable, everything else is fatal for the pass.
func mapStorageErr(op string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked) {
		return engine.NewStorageUnavailableError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
