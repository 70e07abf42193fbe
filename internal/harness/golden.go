package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/scdkit/scdkit/internal/record"
)

// passSnapshot is the deterministic projection of one pass summary.
// Elapsed time is excluded; run ids and as-of values come from fixed
// generators so they are stable.
type passSnapshot struct {
	RunID     string              `json:"run_id"`
	AsOf      string              `json:"as_of"`
	New       int                 `json:"new"`
	Changed   int                 `json:"changed"`
	Unchanged int                 `json:"unchanged"`
	Removed   int                 `json:"removed"`
	Keys      map[string][]string `json:"keys"`
}

// rowSnapshot is the deterministic projection of one version row. The row
// hash is excluded; fingerprint behavior has its own tests and hex digests
// would make goldens unreadable.
type rowSnapshot struct {
	Key        string         `json:"key"`
	Attributes map[string]any `json:"attributes"`
	ValidFrom  string         `json:"valid_from"`
	ValidTo    string         `json:"valid_to"`
	IsCurrent  bool           `json:"is_current"`
}

type scenarioSnapshot struct {
	Scenario string         `json:"scenario"`
	Passes   []passSnapshot `json:"passes"`
	History  []rowSnapshot  `json:"history"`
}

// Snapshot renders a result as canonical indented JSON for golden
// comparison.
func Snapshot(result *Result) ([]byte, error) {
	snap := scenarioSnapshot{Scenario: result.Scenario.Name}

	for _, s := range result.Summaries {
		snap.Passes = append(snap.Passes, passSnapshot{
			RunID:     s.RunID,
			AsOf:      record.FormatTime(s.AsOf),
			New:       s.New,
			Changed:   s.Changed,
			Unchanged: s.Unchanged,
			Removed:   s.Removed,
			Keys:      s.Keys,
		})
	}

	for _, row := range result.History {
		snap.History = append(snap.History, rowSnapshot{
			Key:        row.KeyValue.String(),
			Attributes: row.Attrs.Native(),
			ValidFrom:  record.FormatTime(row.ValidFrom),
			ValidTo:    record.FormatTime(row.ValidTo),
			IsCurrent:  row.IsCurrent,
		})
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal scenario snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) {
	t.Helper()

	result, err := Run(sc)
	if err != nil {
		t.Fatalf("scenario %s failed: %v", sc.Name, err)
	}

	data, err := Snapshot(result)
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.Assert(t, sc.Name, data)
}
