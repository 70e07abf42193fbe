// Package harness runs YAML conformance scenarios against a real SQLite
// store: seed a source table, execute a sequence of passes with a
// deterministic clock, check the per-pass counts, and snapshot the
// resulting history for golden-file comparison.
package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/scdkit/scdkit/internal/pipeline"
)

// Scenario is one conformance test case.
type Scenario struct {
	// Name uniquely identifies this scenario; the golden file shares it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Pipeline is the inline pipeline definition under test.
	Pipeline pipeline.Pipeline `yaml:"pipeline"`

	// Columns declares the source table schema in order.
	Columns []Column `yaml:"columns"`

	// Passes are executed in order: each replaces the source table's
	// contents with its snapshot and runs one pass.
	Passes []Pass `yaml:"passes"`
}

// Column is one source table column.
type Column struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Pass is one snapshot of the source table plus the expected outcome
// counts.
type Pass struct {
	// Source is the complete source table content for this pass.
	// Attributes missing from a row are stored as null.
	Source []map[string]any `yaml:"source"`

	// Expect, if set, is checked against the pass summary.
	Expect *ExpectCounts `yaml:"expect,omitempty"`
}

// ExpectCounts are the expected outcome counts of one pass.
type ExpectCounts struct {
	New       int `yaml:"new"`
	Changed   int `yaml:"changed"`
	Unchanged int `yaml:"unchanged"`
	Removed   int `yaml:"removed"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%s: decode scenario: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario has no name", path)
	}
	if len(sc.Columns) == 0 {
		return nil, fmt.Errorf("%s: scenario declares no columns", path)
	}
	if len(sc.Passes) == 0 {
		return nil, fmt.Errorf("%s: scenario declares no passes", path)
	}

	sc.Pipeline.ApplyDefaults()
	if err := sc.Pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &sc, nil
}
