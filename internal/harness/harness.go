package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/scdkit/scdkit/internal/engine"
	"github.com/scdkit/scdkit/internal/record"
	"github.com/scdkit/scdkit/internal/store"
	"github.com/scdkit/scdkit/internal/testutil"
)

// ScenarioEpoch is the fixed as-of of a scenario's first pass; each later
// pass advances by ScenarioStep. Fixed times keep golden files stable.
var ScenarioEpoch = time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)

// ScenarioStep is the as-of increment between passes.
const ScenarioStep = time.Minute

// Result is the outcome of an executed scenario.
type Result struct {
	Scenario  *Scenario
	Summaries []*engine.RunSummary

	// History is every version row after the final pass, ordered by key
	// then valid_from.
	History []engine.VersionRow
}

// Run executes a scenario against a fresh in-memory SQLite database.
func Run(sc *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}
	defer st.Close()

	if err := createSourceTable(ctx, st, sc); err != nil {
		return nil, err
	}

	history := st.History(sc.Pipeline.HistoryTable, sc.Pipeline.BusinessKey)
	if err := history.EnsureFrom(ctx, sc.Pipeline.SourceTable); err != nil {
		return nil, fmt.Errorf("create history table: %w", err)
	}

	runIDs := make([]string, len(sc.Passes))
	for i := range runIDs {
		runIDs[i] = fmt.Sprintf("run-%03d", i+1)
	}

	runner := engine.NewRunner(
		st.Source(sc.Pipeline.SourceTable),
		history,
		engine.WithClock(testutil.NewFixedClock(ScenarioEpoch, ScenarioStep)),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(runIDs...)),
		engine.WithLogger(slog.New(slog.DiscardHandler)),
	)

	result := &Result{Scenario: sc}
	for i, pass := range sc.Passes {
		if err := replaceSourceRows(ctx, st, sc, pass.Source); err != nil {
			return nil, fmt.Errorf("pass %d: %w", i+1, err)
		}

		summary, err := runner.RunOnce(ctx, sc.Pipeline.EngineConfig())
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", i+1, err)
		}
		if err := checkExpect(i+1, pass.Expect, summary); err != nil {
			return nil, err
		}
		result.Summaries = append(result.Summaries, summary)
	}

	rows, err := history.AllVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read final history: %w", err)
	}
	result.History = rows
	return result, nil
}

func createSourceTable(ctx context.Context, st *store.Store, sc *Scenario) error {
	defs := make([]string, len(sc.Columns))
	for i, col := range sc.Columns {
		defs[i] = fmt.Sprintf("%q %s", col.Name, col.Type)
	}
	ddl := fmt.Sprintf("CREATE TABLE %q (%s)", sc.Pipeline.SourceTable, strings.Join(defs, ", "))
	if _, err := st.DB().ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create source table: %w", err)
	}
	return nil
}

// replaceSourceRows swaps the source table's content for this pass's
// snapshot.
func replaceSourceRows(ctx context.Context, st *store.Store, sc *Scenario, rows []map[string]any) error {
	if _, err := st.DB().ExecContext(ctx, fmt.Sprintf("DELETE FROM %q", sc.Pipeline.SourceTable)); err != nil {
		return fmt.Errorf("clear source table: %w", err)
	}

	cols := make([]string, len(sc.Columns))
	for i, col := range sc.Columns {
		cols[i] = fmt.Sprintf("%q", col.Name)
	}
	query := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		sc.Pipeline.SourceTable,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))

	for _, row := range rows {
		args := make([]any, len(sc.Columns))
		for i, col := range sc.Columns {
			raw, ok := row[col.Name]
			if !ok {
				args[i] = nil
				continue
			}
			v, err := record.FromAny(raw)
			if err != nil {
				return fmt.Errorf("source row column %q: %w", col.Name, err)
			}
			args[i] = v.Native()
		}
		if _, err := st.DB().ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("seed source row: %w", err)
		}
	}
	return nil
}

func checkExpect(pass int, expect *ExpectCounts, summary *engine.RunSummary) error {
	if expect == nil {
		return nil
	}
	got := ExpectCounts{
		New:       summary.New,
		Changed:   summary.Changed,
		Unchanged: summary.Unchanged,
		Removed:   summary.Removed,
	}
	if got != *expect {
		return fmt.Errorf("pass %d: expected counts %+v, got %+v", pass, *expect, got)
	}
	return nil
}
