package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/stockrag/pkg/ai"
	"github.com/OFFIS-RIT/stockrag/pkg/common"
	"github.com/OFFIS-RIT/stockrag/pkg/graph"
	"github.com/OFFIS-RIT/stockrag/pkg/loader"
)

type fakeAI struct {
	mu    sync.Mutex
	chats int
}

func (f *fakeAI) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "VNM tăng trưởng.", nil
}

func (f *fakeAI) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return nil
}

func (f *fakeAI) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	f.mu.Lock()
	f.chats++
	f.mu.Unlock()
	return "assistant: VNM là mã cổ phiếu của Vinamilk.", nil
}

func (f *fakeAI) GenerateEmbedding(ctx context.Context, input string) ([]float32, error) {
	return nil, nil
}

func (f *fakeAI) GenerateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	return make([][]float32, len(inputs)), nil
}

func (f *fakeAI) ResetMetrics() {}

func (f *fakeAI) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

// writeGraph writes a graph file holding VNM -[thuộc_về]-> Vinamilk and
// returns its path.
func writeGraph(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vn30.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	snap := common.Snapshot{
		GraphID: "vn30",
		Nodes: []common.Node{
			{ID: "VNM", Name: "VNM", Label: "mã_cổ_phiếu"},
			{ID: "Vinamilk", Name: "Vinamilk", Label: "công_ty"},
		},
		Relations: []common.Relation{common.NewRelation("VNM", "thuộc_về", "Vinamilk", "VNM là mã cổ phiếu của Vinamilk.")},
	}
	if err := graph.WriteSnapshot(f, snap); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	return path
}

func run(t *testing.T, llm ai.GraphAIClient, args ...string) (string, error) {
	t.Helper()
	jsonOutput, dotOutput, rebuildSummaries, queryTrace, extractStrict = false, false, false, false, false
	queryTopK = 0

	prev := newAIClient
	newAIClient = func() (ai.GraphAIClient, error) { return llm, nil }
	t.Cleanup(func() { newAIClient = prev })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSchemaCmd(t *testing.T) {
	out, err := run(t, nil, "schema", "--json")
	if err != nil {
		t.Fatalf("schema error = %v", err)
	}
	var resp struct {
		EntityTypes []string          `json:"entity_types"`
		Defects     []json.RawMessage `json:"defects"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(resp.EntityTypes) != 17 || len(resp.Defects) != 1 {
		t.Fatalf("got %d entity types and %d defects", len(resp.EntityTypes), len(resp.Defects))
	}
}

func TestFilterCmd(t *testing.T) {
	path := writeGraph(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"all", []string{"filter", "-g", path}, []string{"VNM -[thuộc_về]-> Vinamilk: VNM là mã cổ phiếu của Vinamilk.", "2 nodes, 1 relations"}},
		{"by name", []string{"filter", "vina", "-g", path}, []string{"1 nodes, 0 relations"}},
		{"dot", []string{"filter", "--dot", "-g", path}, []string{"vn30", "Vinamilk"}},
		{"missing file", []string{"filter", "-g", filepath.Join(t.TempDir(), "none.json")}, []string{"0 nodes, 0 relations"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, nil, tt.args...)
			if err != nil {
				t.Fatalf("filter error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Fatalf("output misses %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestSummariesCmd_CachesInGraphFile(t *testing.T) {
	path := writeGraph(t)
	llm := &fakeAI{}

	for i := 0; i < 2; i++ {
		out, err := run(t, llm, "summaries", "-g", path)
		if err != nil {
			t.Fatalf("summaries error = %v", err)
		}
		if !strings.Contains(out, "] VNM là mã cổ phiếu của Vinamilk.") {
			t.Fatalf("unexpected output %q", out)
		}
	}
	if llm.chats != 1 {
		t.Fatalf("summaries generated %d times, want 1", llm.chats)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	snap, err := graph.ReadSnapshot(f)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(snap.Summaries) != 1 || snap.GraphID != "vn30" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if _, err := run(t, llm, "summaries", "--rebuild", "-g", path); err != nil {
		t.Fatalf("rebuild error = %v", err)
	}
	if llm.chats != 2 {
		t.Fatalf("rebuild did not regenerate summaries")
	}
}

func TestQueryCmd(t *testing.T) {
	path := writeGraph(t)
	out, err := run(t, &fakeAI{}, "query", "-g", path, "VNM", "thế", "nào?")
	if err != nil {
		t.Fatalf("query error = %v", err)
	}
	if strings.TrimSpace(out) != "VNM tăng trưởng." {
		t.Fatalf("unexpected answer %q", out)
	}
}

func TestSourceFiles(t *testing.T) {
	files := sourceFiles([]string{"reports/vnm.txt", "https://cafef.vn/vnm.chn"}, 500)
	if len(files) != 2 {
		t.Fatalf("got %d files", len(files))
	}
	if files[0].FileType != loader.GraphFileTypeDocument || files[0].Name != "vnm.txt" || files[0].MaxTokens != 500 {
		t.Fatalf("unexpected local file %+v", files[0])
	}
	if files[1].FileType != loader.GraphFileTypeWeb || files[1].Name != "https://cafef.vn/vnm.chn" {
		t.Fatalf("unexpected web file %+v", files[1])
	}
}

func TestGraphID(t *testing.T) {
	graphPath = "/tmp/hose.json"
	if got := graphID(common.Snapshot{}); got != "hose" {
		t.Fatalf("graphID() = %q, want hose", got)
	}
	if got := graphID(common.Snapshot{GraphID: "vn30"}); got != "vn30" {
		t.Fatalf("graphID() = %q, want vn30", got)
	}
}
