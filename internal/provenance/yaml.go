package provenance

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk shape of a YAML transition seed.
type seedFile struct {
	Transitions []Transition `yaml:"transitions"`
}

// YAMLSource reads transitions from a YAML seed file holding a
// `transitions:` list. Seeds are used for fixtures and as ingest input.
type YAMLSource struct {
	path string
}

// NewYAMLSource creates a source for the given seed file path.
func NewYAMLSource(path string) *YAMLSource {
	return &YAMLSource{path: path}
}

// Each implements Source. Unlike the JSONL log, a seed file is a single
// document: a file that fails to parse is a configuration error, but
// individual entries missing an endpoint are still skipped and counted.
func (s *YAMLSource) Each(ctx context.Context, fn func(Transition) error) (int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("failed to open seed file %s: %w", s.path, err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("failed to parse seed file %s: %w", s.path, err)
	}

	skipped := 0
	for _, rec := range seed.Transitions {
		if err := ctx.Err(); err != nil {
			return skipped, err
		}
		if !rec.Valid() {
			skipped++
			continue
		}
		if err := fn(rec); err != nil {
			return skipped, err
		}
	}

	return skipped, nil
}
