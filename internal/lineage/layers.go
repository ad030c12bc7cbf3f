package lineage

import (
	"fmt"
	"strings"
)

// Layers is the canonical ordered sequence of pipeline stages, from the
// most raw to the most refined. Order determines traversal direction and
// layer-preference tie-breaking.
type Layers []string

// DefaultLayers returns the standard medallion sequence.
func DefaultLayers() Layers {
	return Layers{"staged", "bronze", "silver", "gold"}
}

// Rank returns the position of a layer in the sequence, or -1 when the
// layer is unknown.
func (l Layers) Rank(name string) int {
	for i, layer := range l {
		if layer == name {
			return i
		}
	}
	return -1
}

// Contains reports whether the layer is part of the sequence.
func (l Layers) Contains(name string) bool {
	return l.Rank(name) >= 0
}

// Last returns the most-downstream layer.
func (l Layers) Last() string {
	if len(l) == 0 {
		return ""
	}
	return l[len(l)-1]
}

// Validate checks that the sequence is non-empty and holds unique,
// non-blank names.
func (l Layers) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("layer sequence is empty")
	}
	seen := make(map[string]bool, len(l))
	for _, name := range l {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("layer sequence contains a blank name")
		}
		if seen[name] {
			return fmt.Errorf("duplicate layer %q", name)
		}
		seen[name] = true
	}
	return nil
}
