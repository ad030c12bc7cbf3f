package provenance

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// JSONLSource reads transitions from a JSON-lines log file, one record
// per line. Long-lived provenance logs accumulate partial corruption;
// lines that fail to decode or miss an endpoint are skipped and counted
// rather than failing the whole read.
type JSONLSource struct {
	path string
}

// NewJSONLSource creates a source for the given log file path.
func NewJSONLSource(path string) *JSONLSource {
	return &JSONLSource{path: path}
}

// Each implements Source.
func (s *JSONLSource) Each(ctx context.Context, fn func(Transition) error) (int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return 0, fmt.Errorf("failed to open transition log %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	skipped := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return skipped, err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Transition
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			skipped++
			continue
		}
		if !rec.Valid() {
			skipped++
			continue
		}

		if err := fn(rec); err != nil {
			return skipped, err
		}
	}
	if err := scanner.Err(); err != nil {
		return skipped, fmt.Errorf("failed to read transition log %s: %w", s.path, err)
	}

	return skipped, nil
}
