package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/stockrag/pkg/ai"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *GraphOpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGraphOpenAIClient(NewGraphOpenAIClientParams{
		SummaryModel:   "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		EmbeddingDim:   4,
		ChatURL:        srv.URL,
		ChatKey:        "test",
		EmbeddingURL:   srv.URL,
		EmbeddingKey:   "test",
	})
}

func TestGenerateCompletion(t *testing.T) {
	var gotBody map[string]any
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"assistant: Tóm tắt"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}}`)
	})

	out, err := client.GenerateCompletion(context.Background(), "VNM -> Vinamilk -> thuộc_về -> ...",
		ai.WithSystemPrompts(ai.CommunitySummaryPrompt))
	if err != nil {
		t.Fatalf("GenerateCompletion() error = %v", err)
	}
	if out != "assistant: Tóm tắt" {
		t.Fatalf("unexpected content %q", out)
	}

	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system and user message, got %v", gotBody["messages"])
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Fatalf("first message should be the system prompt, got %v", first)
	}
	if m := client.GetMetrics(); m.Requests != 1 || m.TotalTokens != 10 {
		t.Fatalf("unexpected metrics %+v", m)
	}
	client.ResetMetrics()
	if m := client.GetMetrics(); m.Requests != 0 {
		t.Fatalf("metrics not reset: %+v", m)
	}
}

func TestGenerateEmbeddings_SkipsBlankInputs(t *testing.T) {
	var sent []string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []string `json:"input"`
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		sent = body.Input
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":0,"embedding":[1,2,3,4,5]}],
			"usage":{"prompt_tokens":2,"total_tokens":2}}`)
	})

	out, err := client.GenerateEmbeddings(context.Background(), []string{" ", "doanh thu"})
	if err != nil {
		t.Fatalf("GenerateEmbeddings() error = %v", err)
	}
	if len(sent) != 1 || sent[0] != "doanh thu" {
		t.Fatalf("unexpected inputs sent: %v", sent)
	}
	if len(out) != 2 || len(out[0]) != 4 || len(out[1]) != 4 || out[1][3] != 4 {
		t.Fatalf("unexpected embeddings %v", out)
	}
}

func TestMissingClient(t *testing.T) {
	client := NewGraphOpenAIClient(NewGraphOpenAIClientParams{SummaryModel: "m"})
	if _, err := client.GenerateCompletion(context.Background(), "x"); err == nil {
		t.Fatalf("expected error without chat key")
	}
}
