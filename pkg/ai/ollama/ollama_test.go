package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateCompletionWithFormat(t *testing.T) {
	var gotAuth string
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"qwen3","message":{"role":"assistant","content":"{\"head\":\"VNM\"}"},"done":true,"prompt_eval_count":5,"eval_count":4}`+"\n")
	}))
	t.Cleanup(srv.Close)

	client, err := NewGraphOllamaClient(NewGraphOllamaClientParams{
		SummaryModel: "qwen3",
		BaseURL:      srv.URL,
		ApiKey:       "secret",
	})
	if err != nil {
		t.Fatalf("NewGraphOllamaClient() error = %v", err)
	}

	var out struct {
		Head string `json:"head"`
	}
	if err := client.GenerateCompletionWithFormat(context.Background(), "t", "d", "prompt", &out); err != nil {
		t.Fatalf("GenerateCompletionWithFormat() error = %v", err)
	}
	if out.Head != "VNM" {
		t.Fatalf("unexpected output %+v", out)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("missing bearer header, got %q", gotAuth)
	}
	if gotReq["format"] == nil {
		t.Fatalf("expected a JSON schema format in the request")
	}
	if m := client.GetMetrics(); m.TotalTokens != 9 || m.Requests != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestFormatRequiresPointer(t *testing.T) {
	client, err := NewGraphOllamaClient(NewGraphOllamaClientParams{})
	if err != nil {
		t.Fatal(err)
	}
	var out struct{}
	if err := client.GenerateCompletionWithFormat(context.Background(), "t", "d", "p", out); err == nil {
		t.Fatalf("expected error for non-pointer out")
	}
}
