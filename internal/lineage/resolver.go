package lineage

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize maps a free-text table reference to its canonical form:
// trimmed, lowercased, internal whitespace collapsed to single
// underscores. It is total and deterministic, so callers can always
// distinguish "not found in graph" from "un-normalizable".
func Normalize(text string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "_")
}

// Resolver maps free-text table references to canonical node identities,
// disambiguating across layers.
type Resolver struct {
	graph *Graph
}

// NewResolver creates a resolver over a built graph.
func NewResolver(graph *Graph) *Resolver {
	return &Resolver{graph: graph}
}

// Resolve finds the node whose table component matches the normalized
// input. When the table exists at multiple layers, an explicit
// preferredLayer wins; otherwise the most-downstream layer present is
// chosen (each layer typically re-derives the same logical table, and
// queries are about the most refined form). Returns false when no node
// matches.
func (r *Resolver) Resolve(table, preferredLayer string) (string, bool) {
	matches := r.ResolveAll(table)
	if len(matches) == 0 {
		return "", false
	}

	if preferredLayer != "" {
		want := Normalize(preferredLayer)
		for _, id := range matches {
			layer, _ := SplitNodeID(id)
			if layer == want {
				return id, true
			}
		}
		return "", false
	}

	// Matches are upstream-first; the most-downstream layer is last.
	return matches[len(matches)-1], true
}

// ResolveAll returns every node matching the table name across layers,
// in upstream-first order.
func (r *Resolver) ResolveAll(table string) []string {
	want := Normalize(table)
	if want == "" {
		return nil
	}

	var matches []string
	for _, id := range r.graph.Nodes() {
		_, t := SplitNodeID(id)
		if t == want {
			matches = append(matches, id)
		}
	}
	return r.graph.sortByLayer(matches)
}
