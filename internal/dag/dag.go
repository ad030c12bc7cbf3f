// Package dag provides the directed acyclic graph underlying the lineage
// engine. It supports attributed nodes and edges, cycle detection, and
// BFS-based closure and shortest-path queries.
package dag

import (
	"fmt"
	"sort"
	"time"
)

// Node represents a node in the DAG.
type Node struct {
	// ID is the unique identifier ("layer.table").
	ID string
	// Data holds arbitrary node data.
	Data interface{}
}

// EdgeAttrs holds the provenance payload recorded on an edge.
type EdgeAttrs struct {
	// Transforms applied during the transition, in order.
	Transforms []string
	// Timestamp of the transition.
	Timestamp time.Time
	// TransitionID cross-references the external provenance record.
	TransitionID string
}

// Graph represents a directed acyclic graph with attributed edges.
type Graph struct {
	nodes   map[string]*Node
	edges   map[string][]string // parent -> children
	parents map[string][]string // child -> parents
	attrs   map[string]map[string]EdgeAttrs
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
		attrs:   make(map[string]map[string]EdgeAttrs),
	}
}

// AddNode adds a node to the graph. Re-adding an existing node updates
// its data.
func (g *Graph) AddNode(id string, data interface{}) {
	if _, exists := g.nodes[id]; !exists {
		g.nodes[id] = &Node{ID: id, Data: data}
		g.edges[id] = []string{}
		g.parents[id] = []string{}
	} else {
		g.nodes[id].Data = data
	}
}

// AddEdge adds a directed edge from parent to child with the given
// attributes. Edge identity is the (parent, child) pair; adding the same
// edge again overwrites the attributes (last writer wins, matching
// idempotent pipeline re-runs).
func (g *Graph) AddEdge(parentID, childID string, attrs EdgeAttrs) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}
	if parentID == childID {
		return fmt.Errorf("self-loop detected: %s", parentID)
	}

	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	if g.attrs[parentID] == nil {
		g.attrs[parentID] = make(map[string]EdgeAttrs)
	}
	g.attrs[parentID][childID] = attrs

	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// GetEdge returns the attributes of the edge from parent to child.
func (g *Graph) GetEdge(parentID, childID string) (EdgeAttrs, bool) {
	attrs, ok := g.attrs[parentID][childID]
	return attrs, ok
}

// GetParents returns the direct parents of a node.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the direct children of a node.
func (g *Graph) GetChildren(id string) []string {
	return g.edges[id]
}

// GetAllNodes returns all nodes in the graph sorted by ID.
func (g *Graph) GetAllNodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// HasCycle returns true if the graph contains a cycle, along with the
// cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				// Found cycle, reconstruct path
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// Ancestors returns every node reachable by following edges backward
// from the given node. The result is sorted and is empty for root nodes.
func (g *Graph) Ancestors(id string) []string {
	return g.closure(id, g.parents)
}

// Descendants returns every node reachable by following edges forward
// from the given node. Empty for leaf nodes.
func (g *Graph) Descendants(id string) []string {
	return g.closure(id, g.edges)
}

// closure performs a BFS over the given adjacency map.
func (g *Graph) closure(id string, adj map[string][]string) []string {
	seen := make(map[string]bool)
	queue := append([]string{}, adj[id]...)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		if seen[curr] {
			continue
		}
		seen[curr] = true
		queue = append(queue, adj[curr]...)
	}

	result := make([]string, 0, len(seen))
	for nodeID := range seen {
		result = append(result, nodeID)
	}
	sort.Strings(result)
	return result
}

// ShortestPath returns the forward path with the fewest edges from src
// to dst, or nil when dst is unreachable. When src == dst the single
// node path is returned.
func (g *Graph) ShortestPath(src, dst string) []string {
	if _, ok := g.nodes[src]; !ok {
		return nil
	}
	if _, ok := g.nodes[dst]; !ok {
		return nil
	}
	if src == dst {
		return []string{src}
	}

	prev := make(map[string]string)
	seen := map[string]bool{src: true}
	queue := []string{src}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		// Visit children in sorted order so ties break deterministically.
		children := append([]string{}, g.edges[curr]...)
		sort.Strings(children)

		for _, child := range children {
			if seen[child] {
				continue
			}
			seen[child] = true
			prev[child] = curr
			if child == dst {
				return reconstructPath(prev, src, dst)
			}
			queue = append(queue, child)
		}
	}

	return nil
}

// GetRoots returns nodes with no parents.
func (g *Graph) GetRoots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// GetLeaves returns nodes with no children.
func (g *Graph) GetLeaves() []string {
	var leaves []string
	for id := range g.nodes {
		if len(g.edges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	sort.Strings(leaves)
	return leaves
}

func reconstructPath(prev map[string]string, src, dst string) []string {
	path := []string{dst}
	for curr := dst; curr != src; {
		curr = prev[curr]
		path = append([]string{curr}, path...)
	}
	return path
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
