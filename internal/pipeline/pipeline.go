// Package pipeline loads and validates pipeline definitions: which table
// to watch, which attribute identifies an entity, and which attributes are
// monitored for change.
package pipeline

import (
	"github.com/scdkit/scdkit/internal/engine"
)

// Pipeline is one change-tracking definition.
type Pipeline struct {
	// Name identifies the pipeline in summaries and logs. Defaults to the
	// source table name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// SourceTable is the table holding the entity set's current snapshot.
	SourceTable string `json:"source_table" yaml:"source_table"`

	// HistoryTable is the versioned table. Defaults to SourceTable +
	// "_history".
	HistoryTable string `json:"history_table,omitempty" yaml:"history_table,omitempty"`

	// BusinessKey is the column identifying an entity across its lifetime.
	BusinessKey string `json:"business_key" yaml:"business_key"`

	// MonitoredAttributes are the columns hashed for change detection, in
	// a fixed order. Reordering them invalidates all stored fingerprints.
	MonitoredAttributes []string `json:"monitored_attributes" yaml:"monitored_attributes"`

	// DetectRemoved closes out keys missing from the snapshot. Off by
	// default: stale current rows are then left as-is.
	DetectRemoved bool `json:"detect_removed,omitempty" yaml:"detect_removed,omitempty"`
}

// ApplyDefaults fills the optional fields.
func (p *Pipeline) ApplyDefaults() {
	if p.Name == "" {
		p.Name = p.SourceTable
	}
	if p.HistoryTable == "" && p.SourceTable != "" {
		p.HistoryTable = p.SourceTable + "_history"
	}
}

// Validate fails fast on a malformed definition.
func (p *Pipeline) Validate() error {
	if p.SourceTable == "" {
		return engine.NewInvalidConfigurationError("source table must not be empty")
	}
	if p.HistoryTable == p.SourceTable {
		return engine.NewInvalidConfigurationError("history table must differ from source table")
	}
	return p.EngineConfig().Validate()
}

// EngineConfig converts the definition into the engine's configuration.
func (p *Pipeline) EngineConfig() engine.Config {
	return engine.Config{
		Pipeline:            p.Name,
		BusinessKey:         p.BusinessKey,
		MonitoredAttributes: p.MonitoredAttributes,
		DetectRemoved:       p.DetectRemoved,
	}
}
