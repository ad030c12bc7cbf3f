package dag

import (
	"testing"
	"time"
)

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := NewGraph()

	g.AddNode("staged.raw_x", nil)
	g.AddNode("bronze.raw_x", nil)
	g.AddNode("silver.clean_x", nil)

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}

	if err := g.AddEdge("staged.raw_x", "bronze.raw_x", EdgeAttrs{}); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	if err := g.AddEdge("bronze.raw_x", "silver.clean_x", EdgeAttrs{}); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}

	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
}

func TestGraph_AddEdge_InvalidNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	if err := g.AddEdge("a", "nonexistent", EdgeAttrs{}); err == nil {
		t.Error("expected error for nonexistent child node")
	}
	if err := g.AddEdge("nonexistent", "a", EdgeAttrs{}); err == nil {
		t.Error("expected error for nonexistent parent node")
	}
}

func TestGraph_AddEdge_SelfLoop(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	if err := g.AddEdge("a", "a", EdgeAttrs{}); err == nil {
		t.Error("expected error for self-loop")
	}
}

func TestGraph_AddEdge_Overwrite(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)

	first := EdgeAttrs{Transforms: []string{"rename"}, TransitionID: "t1"}
	second := EdgeAttrs{Transforms: []string{"cast", "filter"}, TransitionID: "t2"}

	if err := g.AddEdge("a", "b", first); err != nil {
		t.Fatalf("failed to add edge: %v", err)
	}
	if err := g.AddEdge("a", "b", second); err != nil {
		t.Fatalf("failed to re-add edge: %v", err)
	}

	if g.EdgeCount() != 1 {
		t.Errorf("expected re-added edge to keep count at 1, got %d", g.EdgeCount())
	}

	attrs, ok := g.GetEdge("a", "b")
	if !ok {
		t.Fatal("expected edge attributes")
	}
	if attrs.TransitionID != "t2" {
		t.Errorf("expected last writer to win, got transition %q", attrs.TransitionID)
	}
	if len(attrs.Transforms) != 2 {
		t.Errorf("expected 2 transforms, got %d", len(attrs.Transforms))
	}
}

func TestGraph_EdgeAttrs_Timestamp(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := g.AddEdge("a", "b", EdgeAttrs{Timestamp: ts}); err != nil {
		t.Fatalf("failed to add edge: %v", err)
	}

	attrs, _ := g.GetEdge("a", "b")
	if !attrs.Timestamp.Equal(ts) {
		t.Errorf("expected timestamp %v, got %v", ts, attrs.Timestamp)
	}
}

func TestGraph_HasCycle_NoCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddNode("c", nil)

	g.AddEdge("a", "b", EdgeAttrs{})
	g.AddEdge("b", "c", EdgeAttrs{})

	hasCycle, path := g.HasCycle()
	if hasCycle {
		t.Errorf("expected no cycle, but found: %v", path)
	}
}

func TestGraph_HasCycle_WithCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddNode("c", nil)

	g.AddEdge("a", "b", EdgeAttrs{})
	g.AddEdge("b", "c", EdgeAttrs{})
	g.AddEdge("c", "a", EdgeAttrs{}) // Creates cycle

	hasCycle, path := g.HasCycle()
	if !hasCycle {
		t.Error("expected cycle to be detected")
	}
	if len(path) == 0 {
		t.Error("expected cycle path to be non-empty")
	}
}

func buildDiamond() *Graph {
	// a -> b -> d, a -> c -> d
	g := NewGraph()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(id, nil)
	}
	g.AddEdge("a", "b", EdgeAttrs{})
	g.AddEdge("a", "c", EdgeAttrs{})
	g.AddEdge("b", "d", EdgeAttrs{})
	g.AddEdge("c", "d", EdgeAttrs{})
	return g
}

func TestGraph_Ancestors(t *testing.T) {
	g := buildDiamond()

	anc := g.Ancestors("d")
	if len(anc) != 3 {
		t.Fatalf("expected 3 ancestors of d, got %v", anc)
	}
	for i, want := range []string{"a", "b", "c"} {
		if anc[i] != want {
			t.Errorf("ancestors[%d] = %q, want %q", i, anc[i], want)
		}
	}

	if anc := g.Ancestors("a"); len(anc) != 0 {
		t.Errorf("expected root to have no ancestors, got %v", anc)
	}
}

func TestGraph_Descendants(t *testing.T) {
	g := buildDiamond()

	desc := g.Descendants("a")
	if len(desc) != 3 {
		t.Fatalf("expected 3 descendants of a, got %v", desc)
	}

	if desc := g.Descendants("d"); len(desc) != 0 {
		t.Errorf("expected leaf to have no descendants, got %v", desc)
	}
}

func TestGraph_ShortestPath(t *testing.T) {
	g := buildDiamond()
	g.AddNode("e", nil)
	g.AddEdge("d", "e", EdgeAttrs{})

	path := g.ShortestPath("a", "e")
	if len(path) != 4 {
		t.Fatalf("expected path of 4 nodes, got %v", path)
	}
	if path[0] != "a" || path[3] != "e" {
		t.Errorf("path endpoints wrong: %v", path)
	}
	// Tie between a->b->d and a->c->d resolves to the lexically first child.
	if path[1] != "b" {
		t.Errorf("expected deterministic tie-break via b, got %v", path)
	}
}

func TestGraph_ShortestPath_SameNode(t *testing.T) {
	g := buildDiamond()
	path := g.ShortestPath("b", "b")
	if len(path) != 1 || path[0] != "b" {
		t.Errorf("expected single-node path, got %v", path)
	}
}

func TestGraph_ShortestPath_Unreachable(t *testing.T) {
	g := buildDiamond()
	if path := g.ShortestPath("d", "a"); path != nil {
		t.Errorf("expected nil path against edge direction, got %v", path)
	}
	if path := g.ShortestPath("a", "zzz"); path != nil {
		t.Errorf("expected nil path for unknown node, got %v", path)
	}
}

func TestGraph_RootsAndLeaves(t *testing.T) {
	g := buildDiamond()

	roots := g.GetRoots()
	if len(roots) != 1 || roots[0] != "a" {
		t.Errorf("expected roots [a], got %v", roots)
	}

	leaves := g.GetLeaves()
	if len(leaves) != 1 || leaves[0] != "d" {
		t.Errorf("expected leaves [d], got %v", leaves)
	}
}
