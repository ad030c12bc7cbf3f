package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/provlens/provlens/internal/lineage"
)

type direction int

const (
	directionUpstream direction = iota
	directionDownstream
)

const (
	maxSuggestions = 5
	sampleTables   = 10
)

// formatClosure renders an upstream or downstream closure grouped by
// layer in canonical order, each entry annotated with its recorded
// transforms. An empty closure renders an explicit statement rather than
// a blank section.
func (e *Engine) formatClosure(dir direction, id string, nodes []string) string {
	if len(nodes) == 0 {
		if dir == directionUpstream {
			return fmt.Sprintf("%s is a source table: no upstream dependencies are recorded.", id)
		}
		return fmt.Sprintf("%s is a terminal output: nothing downstream depends on it.", id)
	}

	var b strings.Builder
	if dir == directionUpstream {
		fmt.Fprintf(&b, "Upstream lineage for %s:\n", id)
	} else {
		fmt.Fprintf(&b, "Downstream lineage for %s:\n", id)
	}
	e.writeLayerGroups(&b, nodes)
	return b.String()
}

// formatFull renders the upstream block, the queried node, and the
// downstream block under their own headings.
func (e *Engine) formatFull(id string, upstream, downstream []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lineage for %s\n", id)

	b.WriteString("\n== Upstream ==\n")
	if len(upstream) == 0 {
		fmt.Fprintf(&b, "%s is a source table: no upstream dependencies are recorded.\n", id)
	} else {
		e.writeLayerGroups(&b, upstream)
	}

	b.WriteString("\n== Table ==\n")
	e.writeNode(&b, id)

	b.WriteString("\n== Downstream ==\n")
	if len(downstream) == 0 {
		fmt.Fprintf(&b, "%s is a terminal output: nothing downstream depends on it.\n", id)
	} else {
		e.writeLayerGroups(&b, downstream)
	}

	return b.String()
}

// formatPath renders the forward path as a numbered list with transition
// transform annotations between consecutive nodes.
func (e *Engine) formatPath(path []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lineage path from %s to %s:\n\n", path[0], path[len(path)-1])

	for i, id := range path {
		marker := ""
		switch i {
		case 0:
			marker = "  [SOURCE]"
		case len(path) - 1:
			marker = "  [TARGET]"
		}
		if len(path) == 1 {
			marker = "  [SOURCE = TARGET]"
		}
		fmt.Fprintf(&b, "  %d. %s%s\n", i+1, id, marker)

		if i < len(path)-1 {
			attrs, ok := e.graph.Edge(id, path[i+1])
			if ok && len(attrs.Transforms) > 0 {
				fmt.Fprintf(&b, "       | %s\n", strings.Join(attrs.Transforms, ", "))
			} else {
				b.WriteString("       | (no transforms recorded)\n")
			}
		}
	}

	fmt.Fprintf(&b, "\nTotal steps: %d\n", len(path)-1)
	return b.String()
}

func (e *Engine) formatNoPath(srcID, dstID string) string {
	return fmt.Sprintf("No lineage path exists from %s to %s: the target is not derived from the source.", srcID, dstID)
}

// writeLayerGroups writes node entries grouped under layer headers in
// canonical layer order. The input is already ordered by layer rank.
func (e *Engine) writeLayerGroups(b *strings.Builder, nodes []string) {
	currentLayer := ""
	for _, id := range nodes {
		layer, _ := lineage.SplitNodeID(id)
		if layer != currentLayer {
			fmt.Fprintf(b, "  [%s]\n", layer)
			currentLayer = layer
		}
		e.writeNode(b, id)
	}
}

// writeNode writes a single table entry with its recorded transforms.
func (e *Engine) writeNode(b *strings.Builder, id string) {
	_, table := lineage.SplitNodeID(id)
	transforms := e.graph.NodeTransforms(id)
	if len(transforms) > 0 {
		fmt.Fprintf(b, "    - %s  (transforms: %s)\n", table, strings.Join(transforms, ", "))
	} else {
		fmt.Fprintf(b, "    - %s\n", table)
	}
}

// notFound renders the unresolved-table message: substring suggestions
// when any table overlaps the query term, otherwise an alphabetical
// sample of known tables.
func (e *Engine) notFound(term string) string {
	normalized := lineage.Normalize(term)
	known := e.graph.Tables()

	var suggestions []string
	for _, table := range known {
		if normalized != "" && (strings.Contains(table, normalized) || strings.Contains(normalized, table)) {
			suggestions = append(suggestions, table)
			if len(suggestions) == maxSuggestions {
				break
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Table %q was not found in the lineage graph.\n", normalized)

	if len(suggestions) > 0 {
		sort.Strings(suggestions)
		fmt.Fprintf(&b, "Did you mean: %s?\n", strings.Join(suggestions, ", "))
		return b.String()
	}

	if len(known) == 0 {
		b.WriteString("The lineage graph has no tables recorded.\n")
		return b.String()
	}

	sample := known
	remainder := 0
	if len(sample) > sampleTables {
		remainder = len(sample) - sampleTables
		sample = sample[:sampleTables]
	}
	fmt.Fprintf(&b, "Known tables include: %s", strings.Join(sample, ", "))
	if remainder > 0 {
		fmt.Fprintf(&b, " (and %d more)", remainder)
	}
	b.WriteString("\n")
	return b.String()
}

// helpText is the fixed answer for unrecognized questions. It is part of
// the query contract and covered by tests.
func (e *Engine) helpText() string {
	return `I can answer these kinds of lineage questions:

  Upstream:
    - "Where does dim_noc come from?"
    - "What feeds dim_noc?"
    - "What tables feed dim_noc?"
  Downstream:
    - "What does raw_postings feed?"
    - "What depends on raw_postings?"
  Full lineage:
    - "Show lineage for clean_titles"
    - "Lineage of clean_titles"
  Path:
    - "How does raw_postings become dim_noc?"
    - "Path from raw_postings to dim_noc"
`
}
