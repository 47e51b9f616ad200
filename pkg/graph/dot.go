package graph

import (
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

type dotNode struct {
	id   int64
	name string
}

func (n dotNode) ID() int64 { return n.id }
func (n dotNode) DOTID() string { return n.name }

type dotEdge struct {
	f, t  dotNode
	attrs EdgeAttrs
}

func (e dotEdge) From() graph.Node { return e.f }
func (e dotEdge) To() graph.Node { return e.t }
func (e dotEdge) ReversedEdge() graph.Edge {
	return dotEdge{f: e.t, t: e.f, attrs: e.attrs}
}

func (e dotEdge) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "label", Value: e.attrs.Relationship},
		{Key: "tooltip", Value: e.attrs.Description},
	}
}

// MarshalDOT encodes g as a Graphviz DOT document. Self-loops are omitted.
func MarshalDOT(g *GenericGraph, name string) ([]byte, error) {
	names := g.NodeNames()
	nodes := make(map[string]dotNode, len(names))

	dg := simple.NewUndirectedGraph()
	for i, n := range names {
		node := dotNode{id: int64(i), name: n}
		nodes[n] = node
		dg.AddNode(node)
	}
	for _, e := range g.Edges() {
		if e.Source == e.Target {
			continue
		}
		dg.SetEdge(dotEdge{f: nodes[e.Source], t: nodes[e.Target], attrs: e})
	}

	out, err := dot.Marshal(dg, name, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal dot: %w", err)
	}
	return out, nil
}
