package lineage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/provlens/provlens/internal/dag"
	"github.com/provlens/provlens/internal/provenance"
)

// NodeInfo is the payload carried by each graph node.
type NodeInfo struct {
	Layer string
	Table string
	// Transforms applied to produce this node's current form. Empty for
	// pristine source nodes.
	Transforms []string
}

// NodeID returns the canonical node identifier for a (layer, table) pair.
func NodeID(layer, table string) string {
	return layer + "." + table
}

// SplitNodeID splits a canonical node id back into its layer and table
// components.
func SplitNodeID(id string) (layer, table string) {
	parts := strings.SplitN(id, ".", 2)
	if len(parts) != 2 {
		return "", id
	}
	return parts[0], parts[1]
}

// Graph owns the built lineage DAG and exposes read-only traversal
// primitives. It is immutable after Build returns.
type Graph struct {
	layers  Layers
	g       *dag.Graph
	skipped int
}

// Build constructs the lineage graph from the full transition log.
//
// Individually malformed records, including transitions that reference
// unknown layers or move backward through the layer order, are skipped
// and counted; only an unreachable source or cyclic provenance fails the
// build. The returned graph is immutable.
func Build(ctx context.Context, src provenance.Source, layers Layers, logger *slog.Logger) (*Graph, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := layers.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layer configuration: %w", err)
	}

	g := dag.NewGraph()
	invalid := 0
	skipped, err := src.Each(ctx, func(rec provenance.Transition) error {
		fromRank := layers.Rank(rec.FromLayer)
		toRank := layers.Rank(rec.ToLayer)
		if fromRank < 0 || toRank < 0 || fromRank >= toRank {
			invalid++
			logger.Warn("skipping transition with invalid layer order",
				"transition", rec.ID,
				"from", NodeID(rec.FromLayer, rec.FromTable),
				"to", NodeID(rec.ToLayer, rec.ToTable))
			return nil
		}

		srcID := NodeID(rec.FromLayer, rec.FromTable)
		dstID := NodeID(rec.ToLayer, rec.ToTable)

		ensureNode(g, srcID, rec.FromLayer, rec.FromTable)
		ensureNode(g, dstID, rec.ToLayer, rec.ToTable)

		if len(g.GetParents(dstID)) > 0 && !sliceContains(g.GetParents(dstID), srcID) {
			// Derivation history per logical table is expected to be
			// linear; a second distinct parent is a provenance anomaly.
			logger.Warn("node has multiple derivation parents",
				"node", dstID, "new_parent", srcID)
		}

		if err := g.AddEdge(srcID, dstID, dag.EdgeAttrs{
			Transforms:   rec.Transforms,
			Timestamp:    rec.Timestamp,
			TransitionID: rec.ID,
		}); err != nil {
			invalid++
			logger.Warn("skipping unusable transition", "transition", rec.ID, "error", err)
			return nil
		}

		// The target's current form is the product of its most recent
		// incoming transition.
		if node, ok := g.GetNode(dstID); ok {
			info := node.Data.(NodeInfo)
			info.Transforms = rec.Transforms
			node.Data = info
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read transition log: %w", err)
	}

	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("corrupt provenance: cycle detected: %v", cyclePath)
	}

	total := skipped + invalid
	if total > 0 {
		logger.Warn("skipped malformed transition records", "count", total)
	}
	logger.Info("lineage graph built",
		"nodes", g.NodeCount(), "edges", g.EdgeCount(), "skipped", total)

	return &Graph{layers: layers, g: g, skipped: total}, nil
}

func ensureNode(g *dag.Graph, id, layer, table string) {
	if _, ok := g.GetNode(id); !ok {
		g.AddNode(id, NodeInfo{Layer: layer, Table: table})
	}
}

// Layers returns the canonical layer sequence the graph was built with.
func (gr *Graph) Layers() Layers {
	return gr.layers
}

// SkippedRecords returns how many malformed records were dropped during
// the build.
func (gr *Graph) SkippedRecords() int {
	return gr.skipped
}

// HasNode reports whether the canonical node id exists.
func (gr *Graph) HasNode(id string) bool {
	_, ok := gr.g.GetNode(id)
	return ok
}

// Upstream returns the ancestor closure of the (table, layer) node,
// ordered by layer rank then table name. The result is empty, not an
// error, for nodes with no incoming edges.
func (gr *Graph) Upstream(table, layer string) []string {
	return gr.sortByLayer(gr.g.Ancestors(NodeID(layer, table)))
}

// Downstream returns the descendant closure of the (table, layer) node,
// ordered by layer rank then table name. Empty for terminal nodes.
func (gr *Graph) Downstream(table, layer string) []string {
	return gr.sortByLayer(gr.g.Descendants(NodeID(layer, table)))
}

// Path returns the forward shortest path between two node ids, or nil
// when the target is unreachable.
func (gr *Graph) Path(srcID, dstID string) []string {
	return gr.g.ShortestPath(srcID, dstID)
}

// NodeTransforms returns the ordered transform list recorded against a
// node.
func (gr *Graph) NodeTransforms(id string) []string {
	node, ok := gr.g.GetNode(id)
	if !ok {
		return nil
	}
	return node.Data.(NodeInfo).Transforms
}

// Edge returns the provenance attributes of the transition between two
// nodes.
func (gr *Graph) Edge(srcID, dstID string) (dag.EdgeAttrs, bool) {
	return gr.g.GetEdge(srcID, dstID)
}

// Nodes returns every node id, sorted.
func (gr *Graph) Nodes() []string {
	all := gr.g.GetAllNodes()
	ids := make([]string, 0, len(all))
	for _, n := range all {
		ids = append(ids, n.ID)
	}
	return ids
}

// Tables returns the distinct table names present anywhere in the graph,
// sorted alphabetically.
func (gr *Graph) Tables() []string {
	seen := make(map[string]bool)
	for _, n := range gr.g.GetAllNodes() {
		info := n.Data.(NodeInfo)
		seen[info.Table] = true
	}
	tables := make([]string, 0, len(seen))
	for t := range seen {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}

// NodeCount returns the number of nodes in the graph.
func (gr *Graph) NodeCount() int {
	return gr.g.NodeCount()
}

// EdgeCount returns the number of edges in the graph.
func (gr *Graph) EdgeCount() int {
	return gr.g.EdgeCount()
}

// sortByLayer orders node ids by layer rank, then table name. Unknown
// layers sort last.
func (gr *Graph) sortByLayer(ids []string) []string {
	sort.SliceStable(ids, func(i, j int) bool {
		li, ti := SplitNodeID(ids[i])
		lj, tj := SplitNodeID(ids[j])
		ri, rj := gr.layers.Rank(li), gr.layers.Rank(lj)
		if ri < 0 {
			ri = len(gr.layers)
		}
		if rj < 0 {
			rj = len(gr.layers)
		}
		if ri != rj {
			return ri < rj
		}
		return ti < tj
	})
	return ids
}

func sliceContains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
