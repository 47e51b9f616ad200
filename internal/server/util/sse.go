package util

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/OFFIS-RIT/stockrag/pkg/logger"
	"github.com/OFFIS-RIT/stockrag/pkg/query"

	"github.com/labstack/echo/v4"
)

// StartSSE writes the headers of a server-sent event stream.
func StartSSE(c echo.Context) {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()
}

func WriteSSEEvent(c echo.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(c.Response(), "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
		return err
	}

	c.Response().Flush()
	return nil
}

// SSETracer streams query trace events to the client as "trace" events.
// Map calls record concurrently, writes are serialized.
type SSETracer struct {
	mu sync.Mutex
	c  echo.Context
}

func NewSSETracer(c echo.Context) *SSETracer {
	return &SSETracer{c: c}
}

func (t *SSETracer) Record(event query.TraceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := WriteSSEEvent(t.c, "trace", event); err != nil {
		logger.Warn("[API] Failed to write trace event", "err", err)
	}
}

// Event writes one event while holding the tracer lock, so it does not
// interleave with trace events.
func (t *SSETracer) Event(event string, payload any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return WriteSSEEvent(t.c, event, payload)
}
