package harness

import (
	"testing"

	"github.com/scdkit/scdkit/internal/engine"
)

// AssertCurrentUnique fails the test if any business key holds more than
// one current version row.
func AssertCurrentUnique(t *testing.T, rows []engine.VersionRow) {
	t.Helper()

	current := make(map[string]int)
	for _, row := range rows {
		if row.IsCurrent {
			current[row.Key]++
		}
	}
	for key, n := range current {
		if n > 1 {
			t.Errorf("key %s has %d current rows, want at most 1", key, n)
		}
	}
}

// AssertContiguous fails the test if any key's validity intervals leave a
// gap or overlap: sorted by valid_from, each row's valid_to must equal the
// next row's valid_from. Rows must already be ordered by key, valid_from,
// as returned by HistoryTable.AllVersions.
func AssertContiguous(t *testing.T, rows []engine.VersionRow) {
	t.Helper()

	for i := 1; i < len(rows); i++ {
		prev, next := rows[i-1], rows[i]
		if prev.Key != next.Key {
			continue
		}
		if !prev.ValidTo.Equal(next.ValidFrom) {
			t.Errorf("key %s: interval gap or overlap: valid_to %s != next valid_from %s",
				prev.Key, prev.ValidTo, next.ValidFrom)
		}
	}
}
