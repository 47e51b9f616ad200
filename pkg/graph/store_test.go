package graph

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/stockrag/pkg/ai"
	"github.com/OFFIS-RIT/stockrag/pkg/common"
	"github.com/OFFIS-RIT/stockrag/pkg/community"
)

type fakeClient struct {
	mu       sync.Mutex
	chats    [][]ai.ChatMessage
	models   []string
	reply    func(call int, messages []ai.ChatMessage) (string, error)
	response string
}

func (f *fakeClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (f *fakeClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return json.Unmarshal([]byte(f.response), out)
}

func (f *fakeClient) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{}, opts...)

	f.mu.Lock()
	f.chats = append(f.chats, messages)
	f.models = append(f.models, options.Model)
	call := len(f.chats)
	f.mu.Unlock()

	if f.reply != nil {
		return f.reply(call, messages)
	}
	return "summary of " + messages[len(messages)-1].Message, nil
}

func (f *fakeClient) GenerateEmbedding(ctx context.Context, input string) ([]float32, error) {
	return nil, nil
}

func (f *fakeClient) GenerateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	return make([][]float32, len(inputs)), nil
}

func (f *fakeClient) ResetMetrics() {}

func (f *fakeClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chats)
}

func addTriangle(s *Store, a, b, c string) {
	for _, n := range []string{a, b, c} {
		s.AddNode(common.Node{Name: n, Label: "công_ty"})
	}
	s.AddRelation(common.NewRelation(a, "sở_hữu", b, a+" sở hữu "+b))
	s.AddRelation(common.NewRelation(b, "hợp_tác", c, b+" hợp tác "+c))
	s.AddRelation(common.NewRelation(c, "thuộc_về", a, c+" thuộc về "+a))
}

func TestStore_AddRelationReplacesSameTriple(t *testing.T) {
	s := NewStore(nil, Options{})
	s.AddRelation(common.NewRelation("VNM", "sở_hữu", "Dự án A", "first"))
	s.AddRelation(common.NewRelation("VNM", "thuộc_về", "Dự án A", "other"))
	s.AddRelation(common.NewRelation("VNM", "sở_hữu", "Dự án A", "second"))

	rels := s.Relations()
	if len(rels) != 2 {
		t.Fatalf("expected 2 relations, got %d", len(rels))
	}
	if rels[1].Label != "sở_hữu" || rels[1].Description() != "second" {
		t.Fatalf("replaced relation should be the most recent: %+v", rels)
	}
}

func TestStore_NodeIdentityDefaultsToName(t *testing.T) {
	s := NewStore(nil, Options{})
	s.AddNodes(common.Node{Name: "HPG", Label: "mã_cổ_phiếu"}, common.Node{ID: "HPG", Name: "Hòa Phát", Label: "công_ty"})

	if s.NodeCount() != 1 {
		t.Fatalf("expected a single node, got %d", s.NodeCount())
	}
	n, ok := s.Node("HPG")
	if !ok || n.Name != "Hòa Phát" {
		t.Fatalf("unexpected node %+v", n)
	}
}

func TestToGeneric(t *testing.T) {
	s := NewStore(nil, Options{})
	s.AddNode(common.Node{Name: "VNM"})
	s.AddRelation(common.NewRelation("VNM", "sở_hữu", "Vinamilk", "first"))
	s.AddRelation(common.NewRelation("Vinamilk", "là", "VNM", "last"))
	s.AddRelation(common.NewRelation("FPT", "là", "FPT", "loop"))

	g := s.ToGeneric()

	if want := []string{"FPT", "VNM", "Vinamilk"}; !reflect.DeepEqual(g.NodeNames(), want) {
		t.Fatalf("NodeNames() = %v, want %v", g.NodeNames(), want)
	}
	if g.EdgeCount() != 2 {
		t.Fatalf("expected parallel relations to collapse, got %d edges", g.EdgeCount())
	}
	edge, ok := g.Edge("VNM", "Vinamilk")
	if !ok || edge.Description != "last" || edge.Relationship != "là" {
		t.Fatalf("expected last inserted relation to win, got %+v", edge)
	}
	if want := []string{"FPT"}; !reflect.DeepEqual(g.Neighbors("FPT"), want) {
		t.Fatalf("self-loop should make FPT its own neighbor, got %v", g.Neighbors("FPT"))
	}
}

func TestCollectCommunityInfo_Triangle(t *testing.T) {
	s := NewStore(nil, Options{MaxClusterSize: 3})
	addTriangle(s, "A", "B", "C")
	g := s.ToGeneric()

	clusters, err := s.Partition(context.Background(), g)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}

	got := CollectCommunityInfo(g, clusters)
	want := map[int][]string{
		0: {
			"A -> B -> sở_hữu -> A sở hữu B",
			"A -> C -> thuộc_về -> C thuộc về A",
			"B -> A -> sở_hữu -> A sở hữu B",
			"B -> C -> hợp_tác -> B hợp tác C",
			"C -> A -> thuộc_về -> C thuộc về A",
			"C -> B -> hợp_tác -> B hợp tác C",
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CollectCommunityInfo() = %#v, want %#v", got, want)
	}
}

func TestPartition_DisjointTriangles(t *testing.T) {
	s := NewStore(nil, Options{MaxClusterSize: 3})
	addTriangle(s, "A", "B", "C")
	addTriangle(s, "X", "Y", "Z")

	clusters, err := s.Partition(context.Background(), s.ToGeneric())
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}

	final := community.FinalClusters(clusters)
	if final["A"] != final["B"] || final["B"] != final["C"] {
		t.Fatalf("first triangle split: %v", final)
	}
	if final["X"] != final["Y"] || final["Y"] != final["Z"] {
		t.Fatalf("second triangle split: %v", final)
	}
	if final["A"] == final["X"] {
		t.Fatalf("triangles share a cluster: %v", final)
	}
}

func TestCollectCommunityInfo_Singleton(t *testing.T) {
	s := NewStore(nil, Options{})
	s.AddNode(common.Node{Name: "MWG", Label: "mã_cổ_phiếu"})
	g := s.ToGeneric()

	clusters, err := s.Partition(context.Background(), g)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}

	got := CollectCommunityInfo(g, clusters)
	want := map[int][]string{0: {}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CollectCommunityInfo() = %#v, want %#v", got, want)
	}
}

func TestSummarizeCommunity(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"plain", "Tóm tắt.", "Tóm tắt."},
		{"assistant prefix", "assistant: Tóm tắt.", "Tóm tắt."},
		{"mixed case prefix with whitespace", "  Assistant:   Tóm tắt.  ", "Tóm tắt."},
		{"prefix only stripped at start", "Tóm tắt assistant: x", "Tóm tắt assistant: x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeClient{reply: func(int, []ai.ChatMessage) (string, error) { return tt.reply, nil }}
			s := NewStore(llm, Options{Model: "test-model"})

			got, err := s.SummarizeCommunity(context.Background(), []string{"a -> b -> là -> x", "b -> a -> là -> x"})
			if err != nil {
				t.Fatalf("SummarizeCommunity() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("SummarizeCommunity() = %q, want %q", got, tt.want)
			}

			msgs := llm.chats[0]
			if len(msgs) != 2 || msgs[0].Role != "system" || msgs[0].Message != ai.CommunitySummaryPrompt {
				t.Fatalf("unexpected system message: %+v", msgs)
			}
			if msgs[1].Role != "user" || msgs[1].Message != "a -> b -> là -> x\nb -> a -> là -> x." {
				t.Fatalf("unexpected user message: %+v", msgs[1])
			}
			if llm.models[0] != "test-model" {
				t.Fatalf("model = %q, want test-model", llm.models[0])
			}
		})
	}
}

func TestGetCommunitySummaries_Cached(t *testing.T) {
	llm := &fakeClient{}
	s := NewStore(llm, Options{MaxClusterSize: 3})
	addTriangle(s, "A", "B", "C")
	addTriangle(s, "X", "Y", "Z")

	first, err := s.GetCommunitySummaries(context.Background())
	if err != nil {
		t.Fatalf("GetCommunitySummaries() error = %v", err)
	}
	second, err := s.GetCommunitySummaries(context.Background())
	if err != nil {
		t.Fatalf("GetCommunitySummaries() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("summaries differ between calls: %v vs %v", first, second)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(first))
	}
	if llm.calls() != 2 {
		t.Fatalf("expected one llm call per cluster, got %d", llm.calls())
	}
	if llm.models[0] != DefaultModel {
		t.Fatalf("model = %q, want %q", llm.models[0], DefaultModel)
	}

	first[0] = "changed"
	if s.Summaries()[0] == "changed" {
		t.Fatalf("returned summaries must be a copy")
	}
}

func TestBuildCommunities_SingletonSummarized(t *testing.T) {
	llm := &fakeClient{}
	s := NewStore(llm, Options{})
	s.AddNode(common.Node{Name: "MWG"})

	if err := s.BuildCommunities(context.Background()); err != nil {
		t.Fatalf("BuildCommunities() error = %v", err)
	}
	if got := llm.chats[0][1].Message; got != "." {
		t.Fatalf("singleton community text = %q, want \".\"", got)
	}
	if got := s.Summaries()[0]; strings.HasPrefix(strings.ToLower(got), "assistant:") {
		t.Fatalf("summary keeps assistant marker: %q", got)
	}
}

func TestBuildCommunities_Parallel(t *testing.T) {
	llm := &fakeClient{}
	s := NewStore(llm, Options{MaxClusterSize: 3, ParallelAiRequests: 4})
	addTriangle(s, "A", "B", "C")
	addTriangle(s, "D", "E", "F")
	addTriangle(s, "X", "Y", "Z")

	if err := s.BuildCommunities(context.Background()); err != nil {
		t.Fatalf("BuildCommunities() error = %v", err)
	}
	if got := len(s.Summaries()); got != 3 {
		t.Fatalf("expected 3 summaries, got %d", got)
	}
}

func TestBuildCommunities_ErrorKeepsEarlierSummaries(t *testing.T) {
	boom := errors.New("rate limited")
	llm := &fakeClient{reply: func(call int, msgs []ai.ChatMessage) (string, error) {
		if call == 2 {
			return "", boom
		}
		return "ok", nil
	}}
	s := NewStore(llm, Options{MaxClusterSize: 3})
	addTriangle(s, "A", "B", "C")
	addTriangle(s, "X", "Y", "Z")

	err := s.BuildCommunities(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected llm error, got %v", err)
	}
	if want := map[int]string{0: "ok"}; !reflect.DeepEqual(s.Summaries(), want) {
		t.Fatalf("Summaries() = %v, want %v", s.Summaries(), want)
	}
}

func TestBuildCommunities_NoLLM(t *testing.T) {
	s := NewStore(nil, Options{})
	s.AddNode(common.Node{Name: "A"})

	if err := s.BuildCommunities(context.Background()); !errors.Is(err, ErrNoLLM) {
		t.Fatalf("expected ErrNoLLM, got %v", err)
	}
	if _, err := s.GetCommunitySummaries(context.Background()); !errors.Is(err, ErrNoLLM) {
		t.Fatalf("expected ErrNoLLM, got %v", err)
	}
}

func TestBuildCommunities_Cancelled(t *testing.T) {
	llm := &fakeClient{}
	s := NewStore(llm, Options{})
	addTriangle(s, "A", "B", "C")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.BuildCommunities(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if llm.calls() != 0 {
		t.Fatalf("no llm call expected after cancellation, got %d", llm.calls())
	}
}

func TestRestore_UsesCachedSummaries(t *testing.T) {
	src := NewStore(&fakeClient{}, Options{MaxClusterSize: 3})
	addTriangle(src, "A", "B", "C")
	if err := src.BuildCommunities(context.Background()); err != nil {
		t.Fatalf("BuildCommunities() error = %v", err)
	}

	var buf strings.Builder
	if err := WriteSnapshot(&buf, src.Snapshot("g1")); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	snap, err := ReadSnapshot(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}

	dst := NewStore(nil, Options{})
	dst.Restore(snap)

	got, err := dst.GetCommunitySummaries(context.Background())
	if err != nil {
		t.Fatalf("GetCommunitySummaries() error = %v", err)
	}
	if !reflect.DeepEqual(got, src.Summaries()) {
		t.Fatalf("restored summaries = %v, want %v", got, src.Summaries())
	}
	if dst.RelationCount() != 3 || dst.NodeCount() != 3 {
		t.Fatalf("restored graph has %d nodes and %d relations", dst.NodeCount(), dst.RelationCount())
	}
}

func TestAddTriplets(t *testing.T) {
	s := NewStore(nil, Options{})
	added := s.AddTriplets([]common.Triplet{
		{Head: "  VNM ", HeadType: "mã_cổ_phiếu", Relation: "thuộc_về", Tail: "Vinamilk", TailType: "công_ty", Description: "VNM là mã của Vinamilk"},
		{Head: "Vinamilk", HeadType: "công_ty", Relation: "sở_hữu", Tail: "Nhà  máy   Bình Dương", TailType: "tài_sản"},
		{Head: " ", HeadType: "công_ty", Relation: "sở_hữu", Tail: "x", TailType: "tài_sản"},
	})

	if added != 2 {
		t.Fatalf("AddTriplets() = %d, want 2", added)
	}
	if _, ok := s.Node("Nhà máy Bình Dương"); !ok {
		t.Fatalf("expected normalized tail node")
	}
	if n, _ := s.Node("VNM"); n.Label != "mã_cổ_phiếu" {
		t.Fatalf("unexpected label %q", n.Label)
	}
	rels := s.Relations()
	if len(rels) != 2 || rels[0].SourceID != "VNM" || rels[0].Description() != "VNM là mã của Vinamilk" {
		t.Fatalf("unexpected relations %+v", rels)
	}
}
