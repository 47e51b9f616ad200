package graph

import (
	"reflect"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/stockrag/pkg/common"
)

func sampleGraph() *GenericGraph {
	g := NewGenericGraph()
	g.AddEdge("VNM", "Vinamilk", "thuộc_về", "VNM là mã cổ phiếu của Vinamilk")
	g.AddEdge("Vinamilk", "Doanh thu 2023", "đạt", "Doanh thu đạt 60.000 tỷ đồng")
	g.AddEdge("HPG", "Hòa Phát", "thuộc_về", "HPG là mã cổ phiếu của Hòa Phát")
	g.AddNode("Ngành thép")
	return g
}

func TestFilterNodesByName(t *testing.T) {
	tests := []struct {
		name      string
		filter    string
		wantNodes []string
		want      []common.RelationRecord
	}{
		{
			name:      "case insensitive substring",
			filter:    "vinamilk",
			wantNodes: []string{"Vinamilk"},
			want:      []common.RelationRecord{},
		},
		{
			name:      "induced subgraph keeps edges between matches",
			filter:    "v",
			wantNodes: []string{"VNM", "Vinamilk"},
			want: []common.RelationRecord{
				{Source: "VNM", Target: "Vinamilk", Relationship: "thuộc_về", Description: "VNM là mã cổ phiếu của Vinamilk"},
			},
		},
		{
			name:      "vietnamese diacritics",
			filter:    "HÒA",
			wantNodes: []string{"Hòa Phát"},
			want:      []common.RelationRecord{},
		},
		{
			name:      "no match",
			filter:    "MSN",
			wantNodes: []string{},
			want:      []common.RelationRecord{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, records := FilterNodesByName(sampleGraph(), tt.filter)
			if !reflect.DeepEqual(sub.NodeNames(), tt.wantNodes) {
				t.Fatalf("nodes = %v, want %v", sub.NodeNames(), tt.wantNodes)
			}
			if !reflect.DeepEqual(records, tt.want) {
				t.Fatalf("records = %#v, want %#v", records, tt.want)
			}
		})
	}
}

func TestFilterNodesByName_NoMatchIsEdgeFree(t *testing.T) {
	sub, records := FilterNodesByName(sampleGraph(), "không tồn tại")
	if sub.EdgeCount() != 0 || sub.NodeCount() != 0 || len(records) != 0 {
		t.Fatalf("expected empty result, got %d nodes, %d edges, %d records", sub.NodeCount(), sub.EdgeCount(), len(records))
	}
}

func TestFilterNodesByName_EmptyFilterKeepsAll(t *testing.T) {
	g := sampleGraph()
	sub, records := FilterNodesByName(g, "")
	if sub.NodeCount() != g.NodeCount() || len(records) != g.EdgeCount() {
		t.Fatalf("empty filter should keep the whole graph")
	}
}

func TestGenericGraph_EdgesOnce(t *testing.T) {
	g := sampleGraph()
	if got := len(g.Edges()); got != 3 {
		t.Fatalf("Edges() returned %d edges, want 3", got)
	}
	if g.EdgeCount() != 3 {
		t.Fatalf("EdgeCount() = %d, want 3", g.EdgeCount())
	}
}

func TestVisualize(t *testing.T) {
	s := NewStore(nil, Options{})
	s.AddRelation(common.NewRelation("FPT", "hợp_tác", "Microsoft", "FPT hợp tác với Microsoft"))
	s.AddRelation(common.NewRelation("VNM", "thuộc_về", "Vinamilk", "x"))

	_, records := s.Visualize("fpt")
	want := []common.RelationRecord{}
	if !reflect.DeepEqual(records, want) {
		t.Fatalf("Visualize() = %#v, want %#v", records, want)
	}

	_, records = s.Visualize("f")
	if len(records) != 1 || records[0].Source != "FPT" || records[0].Target != "Microsoft" {
		t.Fatalf("Visualize() = %#v", records)
	}
}

func TestMarshalDOT(t *testing.T) {
	g := sampleGraph()
	g.AddEdge("VNM", "VNM", "là", "loop")

	out, err := MarshalDOT(g, "stocks")
	if err != nil {
		t.Fatalf("MarshalDOT() error = %v", err)
	}
	doc := string(out)
	for _, want := range []string{"graph stocks {", `"Hòa Phát"`, `label="thuộc_về"`, `"Ngành thép"`} {
		if !strings.Contains(doc, want) {
			t.Errorf("DOT output missing %q:\n%s", want, doc)
		}
	}
	if strings.Contains(doc, "loop") {
		t.Errorf("self-loop should be omitted:\n%s", doc)
	}
}
