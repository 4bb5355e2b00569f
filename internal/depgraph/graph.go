// Package depgraph builds and analyzes the dependency graph over a
// snapshot of work items: detection passes produce scored candidate edges,
// surviving edges form a graph that is checked for hard-edge cycles and
// measured for its critical path.
package depgraph

import (
	"fmt"
	"sort"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/types"
)

type edgeKey struct {
	source, target string
}

// Graph is a set of work-item nodes plus directed relationship edges.
// Edges are owned by the graph; work items hold no back-pointers. A graph
// is rebuilt once per planning pass and sealed after validation succeeds.
type Graph struct {
	items  map[string]types.WorkItem
	order  []string // node insertion order, for deterministic iteration
	edges  map[edgeKey]types.DependencyRelationship
	sealed bool
}

// NewGraph creates a graph over the given item snapshot.
func NewGraph(items []types.WorkItem) *Graph {
	g := &Graph{
		items: make(map[string]types.WorkItem, len(items)),
		edges: make(map[edgeKey]types.DependencyRelationship),
	}
	for _, item := range items {
		if _, ok := g.items[item.ID]; ok {
			continue
		}
		g.items[item.ID] = item
		g.order = append(g.order, item.ID)
	}
	return g
}

// AddEdge inserts a relationship edge. Both endpoints must be nodes of the
// graph and the graph must not be sealed. A duplicate edge keeps the higher
// confidence version. A blocked_by edge is the same constraint seen from
// the other end; it is stored as the inverted blocks edge so toposort,
// allocation ordering, and the gates all see one direction.
func (g *Graph) AddEdge(rel types.DependencyRelationship) error {
	if g.sealed {
		return fmt.Errorf("graph is sealed")
	}
	if err := rel.Validate(); err != nil {
		return err
	}
	if rel.Kind == types.KindBlockedBy {
		rel.SourceID, rel.TargetID = rel.TargetID, rel.SourceID
		rel.Kind = types.KindBlocks
	}
	if _, ok := g.items[rel.SourceID]; !ok {
		return fmt.Errorf("unknown source node: %s", rel.SourceID)
	}
	if _, ok := g.items[rel.TargetID]; !ok {
		return fmt.Errorf("unknown target node: %s", rel.TargetID)
	}
	key := edgeKey{rel.SourceID, rel.TargetID}
	if existing, ok := g.edges[key]; ok && existing.Confidence >= rel.Confidence {
		return nil
	}
	g.edges[key] = rel
	return nil
}

// Seal marks the graph immutable. Called after cycle validation succeeds.
func (g *Graph) Seal() {
	g.sealed = true
}

// Sealed reports whether the graph has been sealed.
func (g *Graph) Sealed() bool {
	return g.sealed
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.items)
}

// Nodes returns node ids in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Item returns the snapshot work item for a node id.
func (g *Graph) Item(id string) (types.WorkItem, bool) {
	item, ok := g.items[id]
	return item, ok
}

// Edges returns all edges sorted by (source, target) for determinism.
func (g *Graph) Edges() []types.DependencyRelationship {
	out := make([]types.DependencyRelationship, 0, len(g.edges))
	for _, rel := range g.edges {
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out
}

// HardEdges returns only hard-strength edges, sorted.
func (g *Graph) HardEdges() []types.DependencyRelationship {
	all := g.Edges()
	out := all[:0]
	for _, rel := range all {
		if rel.Strength == types.StrengthHard {
			out = append(out, rel)
		}
	}
	return out
}

// hardAdjacency returns the adjacency list of hard blocks-edges:
// source → targets the source blocks.
func (g *Graph) hardAdjacency() map[string][]string {
	adj := make(map[string][]string, len(g.items))
	for _, id := range g.order {
		adj[id] = nil
	}
	for _, rel := range g.HardEdges() {
		if rel.Kind != types.KindBlocks {
			continue
		}
		adj[rel.SourceID] = append(adj[rel.SourceID], rel.TargetID)
	}
	for id := range adj {
		sort.Strings(adj[id])
	}
	return adj
}
