// Package provenance models the append-only transition log the lineage
// graph is built from, and its physical sources: JSONL log files, YAML
// seed files, and a SQLite-backed store.
package provenance

import (
	"context"
	"strings"
	"time"
)

// Transition is one recorded pipeline step: a source table at one layer
// consumed to produce a target table at a later layer.
type Transition struct {
	ID         string    `json:"transition_id" yaml:"transition_id"`
	FromLayer  string    `json:"source_layer" yaml:"source_layer"`
	FromTable  string    `json:"source_table" yaml:"source_table"`
	ToLayer    string    `json:"target_layer" yaml:"target_layer"`
	ToTable    string    `json:"target_table" yaml:"target_table"`
	Transforms []string  `json:"transforms" yaml:"transforms"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

// Valid reports whether the record carries both endpoints. Records that
// fail this check are treated as malformed and skipped by readers.
func (t Transition) Valid() bool {
	return strings.TrimSpace(t.FromLayer) != "" &&
		strings.TrimSpace(t.FromTable) != "" &&
		strings.TrimSpace(t.ToLayer) != "" &&
		strings.TrimSpace(t.ToTable) != ""
}

// Source streams transition records to the graph builder.
//
// Implementations skip individually malformed records and report how
// many were skipped; only an unreachable source (missing file, broken
// database) yields an error.
type Source interface {
	Each(ctx context.Context, fn func(Transition) error) (skipped int, err error)
}
