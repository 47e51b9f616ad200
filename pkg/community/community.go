// Package community partitions an undirected graph into a hierarchy of
// communities whose leaves respect a maximum size.
//
// Each connected component is modularized with gonum's Louvain
// implementation. Communities larger than MaxClusterSize are modularized
// again on their induced subgraph, one level deeper, until they fit or cannot
// be split any further. Every node ends up in exactly one final cluster.
package community

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/graph"
	gcommunity "gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

const (
	DefaultMaxClusterSize = 5
	DefaultResolution     = 1.0
)

// Graph is the read view the partitioner needs. Neighbors of a node may
// include the node itself; self-loops are ignored.
type Graph interface {
	NodeNames() []string
	Neighbors(node string) []string
}

// HierarchicalCluster assigns one node to one cluster at one level of the
// hierarchy.
type HierarchicalCluster struct {
	Node           string `json:"node"`
	Cluster        int    `json:"cluster"`
	ParentCluster  *int   `json:"parent_cluster,omitempty"`
	Level          int    `json:"level"`
	IsFinalCluster bool   `json:"is_final_cluster"`
}

type Options struct {
	MaxClusterSize int
	Resolution     float64
	Seed           uint64
}

func (o Options) withDefaults() Options {
	if o.MaxClusterSize <= 0 {
		o.MaxClusterSize = DefaultMaxClusterSize
	}
	if o.Resolution <= 0 {
		o.Resolution = DefaultResolution
	}
	return o
}

type pending struct {
	members []int64
	level   int
	parent  *int
}

type partitioner struct {
	g     *simple.UndirectedGraph
	names []string
	opts  Options
	src   rand.Source
}

// Hierarchical partitions g. The result is sorted by level, cluster and node
// name. Cluster ids are assigned in breadth-first order starting at 0.
func Hierarchical(ctx context.Context, g Graph, opts Options) ([]HierarchicalCluster, error) {
	opts = opts.withDefaults()

	names := slices.Clone(g.NodeNames())
	slices.Sort(names)
	names = slices.Compact(names)
	if len(names) == 0 {
		return nil, nil
	}

	ids := make(map[string]int64, len(names))
	ug := simple.NewUndirectedGraph()
	for i, name := range names {
		ids[name] = int64(i)
		ug.AddNode(simple.Node(i))
	}
	for _, name := range names {
		u := ids[name]
		for _, nb := range g.Neighbors(name) {
			v, ok := ids[nb]
			if !ok {
				return nil, fmt.Errorf("neighbor %q of %q is not a node", nb, name)
			}
			if u == v || ug.HasEdgeBetween(u, v) {
				continue
			}
			ug.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
		}
	}

	p := &partitioner{
		g:     ug,
		names: names,
		opts:  opts,
		src:   rand.NewPCG(opts.Seed, opts.Seed),
	}
	return p.run(ctx)
}

func (p *partitioner) run(ctx context.Context) ([]HierarchicalCluster, error) {
	all := make([]int64, len(p.names))
	for i := range all {
		all[i] = int64(i)
	}

	queue := make([]pending, 0)
	for _, group := range p.split(all) {
		queue = append(queue, pending{members: group, level: 0})
	}

	var out []HierarchicalCluster
	next := 0
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := queue[0]
		queue = queue[1:]

		id := next
		next++

		final := true
		var children [][]int64
		if len(item.members) > p.opts.MaxClusterSize {
			children = p.split(item.members)
			final = len(children) <= 1
		}

		for _, m := range item.members {
			out = append(out, HierarchicalCluster{
				Node:           p.names[m],
				Cluster:        id,
				ParentCluster:  item.parent,
				Level:          item.level,
				IsFinalCluster: final,
			})
		}

		if !final {
			parent := id
			for _, child := range children {
				queue = append(queue, pending{members: child, level: item.level + 1, parent: &parent})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		if out[i].Cluster != out[j].Cluster {
			return out[i].Cluster < out[j].Cluster
		}
		return out[i].Node < out[j].Node
	})
	return out, nil
}

// split divides members into groups: one per connected component of the
// induced subgraph, with components of more than one node modularized.
func (p *partitioner) split(members []int64) [][]int64 {
	sub := p.induced(members)

	var groups [][]int64
	for _, comp := range topo.ConnectedComponents(sub) {
		if len(comp) == 1 {
			groups = append(groups, nodeIDs(comp))
			continue
		}
		reduced := gcommunity.Modularize(p.induced(nodeIDs(comp)), p.opts.Resolution, p.src)
		for _, c := range reduced.Communities() {
			if len(c) > 0 {
				groups = append(groups, nodeIDs(c))
			}
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i][0] < groups[j][0]
	})
	return groups
}

func (p *partitioner) induced(members []int64) *simple.UndirectedGraph {
	in := make(map[int64]struct{}, len(members))
	sub := simple.NewUndirectedGraph()
	for _, m := range members {
		in[m] = struct{}{}
		sub.AddNode(simple.Node(m))
	}
	for _, m := range members {
		nodes := p.g.From(m)
		for nodes.Next() {
			n := nodes.Node().ID()
			if _, ok := in[n]; !ok || sub.HasEdgeBetween(m, n) {
				continue
			}
			sub.SetEdge(simple.Edge{F: simple.Node(m), T: simple.Node(n)})
		}
	}
	return sub
}

func nodeIDs(nodes []graph.Node) []int64 {
	out := make([]int64, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}
	slices.Sort(out)
	return out
}

// FinalClusters maps every node to the id of its final cluster.
func FinalClusters(clusters []HierarchicalCluster) map[string]int {
	out := make(map[string]int)
	for _, c := range clusters {
		if c.IsFinalCluster {
			out[c.Node] = c.Cluster
		}
	}
	return out
}

// Final returns only the final assignments, in the order given.
func Final(clusters []HierarchicalCluster) []HierarchicalCluster {
	out := make([]HierarchicalCluster, 0, len(clusters))
	for _, c := range clusters {
		if c.IsFinalCluster {
			out = append(out, c)
		}
	}
	return out
}
