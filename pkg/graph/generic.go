package graph

import (
	"slices"
	"strings"

	"github.com/OFFIS-RIT/stockrag/pkg/common"
)

// EdgeAttrs are the attributes carried by an undirected edge. Source and
// Target keep the direction of the relation the edge was built from.
type EdgeAttrs struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship"`
	Description  string `json:"description"`
}

// GenericGraph is a simple undirected graph over node names. Parallel edges
// between the same pair collapse into one, the last added wins.
type GenericGraph struct {
	adj map[string]map[string]EdgeAttrs
}

func NewGenericGraph() *GenericGraph {
	return &GenericGraph{adj: make(map[string]map[string]EdgeAttrs)}
}

func (g *GenericGraph) AddNode(name string) {
	if _, ok := g.adj[name]; !ok {
		g.adj[name] = make(map[string]EdgeAttrs)
	}
}

// AddEdge adds or replaces the edge between source and target. Missing
// endpoints are added. A self-loop makes the node its own neighbor.
func (g *GenericGraph) AddEdge(source, target, relationship, description string) {
	g.AddNode(source)
	g.AddNode(target)
	attrs := EdgeAttrs{
		Source:       source,
		Target:       target,
		Relationship: relationship,
		Description:  description,
	}
	g.adj[source][target] = attrs
	g.adj[target][source] = attrs
}

func (g *GenericGraph) HasNode(name string) bool {
	_, ok := g.adj[name]
	return ok
}

// NodeNames returns all nodes in ascending order.
func (g *GenericGraph) NodeNames() []string {
	names := make([]string, 0, len(g.adj))
	for n := range g.adj {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Neighbors returns the neighbors of name in ascending order.
func (g *GenericGraph) Neighbors(name string) []string {
	nbs := make([]string, 0, len(g.adj[name]))
	for n := range g.adj[name] {
		nbs = append(nbs, n)
	}
	slices.Sort(nbs)
	return nbs
}

// Edge returns the attributes of the edge between a and b.
func (g *GenericGraph) Edge(a, b string) (EdgeAttrs, bool) {
	attrs, ok := g.adj[a][b]
	return attrs, ok
}

// Edges returns every edge once, ordered by its lesser endpoint and then its
// greater one.
func (g *GenericGraph) Edges() []EdgeAttrs {
	var out []EdgeAttrs
	for _, a := range g.NodeNames() {
		for _, b := range g.Neighbors(a) {
			if b < a {
				continue
			}
			out = append(out, g.adj[a][b])
		}
	}
	return out
}

func (g *GenericGraph) NodeCount() int {
	return len(g.adj)
}

func (g *GenericGraph) EdgeCount() int {
	count := 0
	for a, nbs := range g.adj {
		for b := range nbs {
			if a <= b {
				count++
			}
		}
	}
	return count
}

// Subgraph returns the graph induced by names. Unknown names are ignored.
func (g *GenericGraph) Subgraph(names []string) *GenericGraph {
	sub := NewGenericGraph()
	for _, n := range names {
		if g.HasNode(n) {
			sub.AddNode(n)
		}
	}
	for a := range sub.adj {
		for b, attrs := range g.adj[a] {
			if sub.HasNode(b) {
				sub.adj[a][b] = attrs
			}
		}
	}
	return sub
}

// Records returns the edges as relation records in Edges order.
func (g *GenericGraph) Records() []common.RelationRecord {
	edges := g.Edges()
	out := make([]common.RelationRecord, 0, len(edges))
	for _, e := range edges {
		out = append(out, common.RelationRecord{
			Source:       e.Source,
			Target:       e.Target,
			Relationship: e.Relationship,
			Description:  e.Description,
		})
	}
	return out
}

// FilterNodesByName keeps the nodes whose name contains filter, ignoring
// case, and returns the induced subgraph with its relation records. An empty
// filter keeps every node.
func FilterNodesByName(g *GenericGraph, filter string) (*GenericGraph, []common.RelationRecord) {
	needle := strings.ToLower(filter)

	var keep []string
	for _, n := range g.NodeNames() {
		if strings.Contains(strings.ToLower(n), needle) {
			keep = append(keep, n)
		}
	}

	sub := g.Subgraph(keep)
	return sub, sub.Records()
}
