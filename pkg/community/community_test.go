package community

import (
	"context"
	"fmt"
	"reflect"
	"testing"
)

type adjacency map[string][]string

func (a adjacency) NodeNames() []string {
	out := make([]string, 0, len(a))
	for n := range a {
		out = append(out, n)
	}
	return out
}

func (a adjacency) Neighbors(node string) []string { return a[node] }

func undirected(nodes []string, edges [][2]string) adjacency {
	a := adjacency{}
	for _, n := range nodes {
		a[n] = nil
	}
	for _, e := range edges {
		a[e[0]] = append(a[e[0]], e[1])
		a[e[1]] = append(a[e[1]], e[0])
	}
	return a
}

func TestHierarchical_DisjointTriangles(t *testing.T) {
	g := undirected(
		[]string{"A", "B", "C", "D", "E", "F"},
		[][2]string{{"A", "B"}, {"B", "C"}, {"A", "C"}, {"D", "E"}, {"E", "F"}, {"D", "F"}},
	)
	clusters, err := Hierarchical(context.Background(), g, Options{MaxClusterSize: 3})
	if err != nil {
		t.Fatalf("Hierarchical() error = %v", err)
	}
	final := FinalClusters(clusters)
	if len(final) != 6 {
		t.Fatalf("expected 6 final assignments, got %v", final)
	}
	if final["A"] != final["B"] || final["B"] != final["C"] {
		t.Fatalf("first triangle split: %v", final)
	}
	if final["D"] != final["E"] || final["E"] != final["F"] {
		t.Fatalf("second triangle split: %v", final)
	}
	if final["A"] == final["D"] {
		t.Fatalf("triangles share a cluster: %v", final)
	}
}

func TestHierarchical_Singleton(t *testing.T) {
	g := undirected([]string{"VNM"}, nil)
	clusters, err := Hierarchical(context.Background(), g, Options{})
	if err != nil {
		t.Fatalf("Hierarchical() error = %v", err)
	}
	want := []HierarchicalCluster{{Node: "VNM", Cluster: 0, Level: 0, IsFinalCluster: true}}
	if !reflect.DeepEqual(clusters, want) {
		t.Fatalf("got %+v, want %+v", clusters, want)
	}
}

func TestHierarchical_Empty(t *testing.T) {
	clusters, err := Hierarchical(context.Background(), adjacency{}, Options{})
	if err != nil || clusters != nil {
		t.Fatalf("expected nil result, got %v, %v", clusters, err)
	}
}

func TestHierarchical_SelfLoopIgnored(t *testing.T) {
	g := adjacency{"A": {"A", "B"}, "B": {"A"}}
	clusters, err := Hierarchical(context.Background(), g, Options{})
	if err != nil {
		t.Fatalf("Hierarchical() error = %v", err)
	}
	final := FinalClusters(clusters)
	if final["A"] != final["B"] {
		t.Fatalf("expected A and B together, got %v", final)
	}
}

func TestHierarchical_UnknownNeighbor(t *testing.T) {
	g := adjacency{"A": {"B"}}
	if _, err := Hierarchical(context.Background(), g, Options{}); err == nil {
		t.Fatalf("expected error for dangling neighbor")
	}
}

func TestHierarchical_MaxClusterSize(t *testing.T) {
	var nodes []string
	var edges [][2]string
	for i := 0; i < 12; i++ {
		nodes = append(nodes, fmt.Sprintf("n%02d", i))
		if i > 0 {
			edges = append(edges, [2]string{fmt.Sprintf("n%02d", i-1), fmt.Sprintf("n%02d", i)})
		}
	}
	g := undirected(nodes, edges)

	clusters, err := Hierarchical(context.Background(), g, Options{MaxClusterSize: 5, Seed: 7})
	if err != nil {
		t.Fatalf("Hierarchical() error = %v", err)
	}

	final := FinalClusters(clusters)
	if len(final) != len(nodes) {
		t.Fatalf("every node needs exactly one final cluster, got %d", len(final))
	}
	sizes := map[int]int{}
	for _, c := range final {
		sizes[c]++
	}
	for id, size := range sizes {
		if size > 5 {
			t.Errorf("final cluster %d has %d members", id, size)
		}
	}

	again, err := Hierarchical(context.Background(), g, Options{MaxClusterSize: 5, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(clusters, again) {
		t.Fatalf("same seed produced different partitions")
	}
}

func TestHierarchical_ParentLinks(t *testing.T) {
	var nodes []string
	var edges [][2]string
	for i := 0; i < 8; i++ {
		nodes = append(nodes, fmt.Sprintf("n%d", i))
		if i > 0 {
			edges = append(edges, [2]string{fmt.Sprintf("n%d", i-1), fmt.Sprintf("n%d", i)})
		}
	}
	clusters, err := Hierarchical(context.Background(), undirected(nodes, edges), Options{MaxClusterSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	levels := map[int]int{}
	for _, c := range clusters {
		levels[c.Cluster] = c.Level
	}
	for _, c := range clusters {
		if c.Level == 0 {
			if c.ParentCluster != nil {
				t.Fatalf("level 0 cluster %d has a parent", c.Cluster)
			}
			continue
		}
		if c.ParentCluster == nil {
			t.Fatalf("cluster %d at level %d has no parent", c.Cluster, c.Level)
		}
		if levels[*c.ParentCluster] != c.Level-1 {
			t.Fatalf("parent of cluster %d is not one level up", c.Cluster)
		}
	}
}

func TestContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := undirected([]string{"A", "B"}, [][2]string{{"A", "B"}})
	if _, err := Hierarchical(ctx, g, Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}
