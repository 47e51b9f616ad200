package util

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/stockrag/pkg/query"

	"github.com/labstack/echo/v4"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec), rec
}

func TestWriteSSEEvent(t *testing.T) {
	c, rec := newContext()
	StartSSE(c)
	if err := WriteSSEEvent(c, "answer", map[string]string{"answer": "VNM tăng."}); err != nil {
		t.Fatalf("WriteSSEEvent() error = %v", err)
	}

	if ct := rec.Header().Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	want := "event: answer\ndata: {\"answer\":\"VNM tăng.\"}\n\n"
	if rec.Body.String() != want {
		t.Fatalf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestSSETracer_ConcurrentEventsDoNotInterleave(t *testing.T) {
	c, rec := newContext()
	tracer := NewSSETracer(c)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			tracer.Record(query.TraceEvent{Kind: query.TraceEventMapCall, Communities: []int{id}})
		}(i)
	}
	wg.Wait()

	events := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n\n"), "\n\n")
	if len(events) != 20 {
		t.Fatalf("got %d events, want 20", len(events))
	}
	for _, ev := range events {
		if !strings.HasPrefix(ev, "event: trace\ndata: {\"kind\":\"map_call\"") {
			t.Fatalf("malformed event %q", ev)
		}
	}
}
