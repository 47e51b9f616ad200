package query

import (
	"slices"
	"sync"
)

type TraceEventKind string

const (
	TraceEventConsideredCommunities TraceEventKind = "considered_communities"
	TraceEventUsedCommunities       TraceEventKind = "used_communities"
	TraceEventMapCall               TraceEventKind = "map_call"
)

// TraceEvent is an extensible event envelope for query tracing.
type TraceEvent struct {
	Kind TraceEventKind `json:"kind"`

	Communities []int `json:"communities,omitempty"`

	DurationMs int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Tracer is a sink for query tracing events.
type Tracer interface {
	Record(event TraceEvent)
}

// MultiTracer fan-outs trace events to multiple tracers.
type MultiTracer []Tracer

func (m MultiTracer) Record(event TraceEvent) {
	for _, t := range m {
		if t == nil {
			continue
		}
		t.Record(event)
	}
}

func recordCommunities(t Tracer, kind TraceEventKind, ids ...int) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: kind, Communities: ids})
}

// QueryTrace collects which communities were considered and which ones
// contributed to the answer of a query run.
//
// QueryTrace is safe for concurrent use.
type QueryTrace struct {
	mu sync.Mutex

	considered map[int]struct{}
	used       map[int]struct{}
	mapCalls   int
	mapErrors  int
	durationMs int64
}

type QueryTraceSnapshot struct {
	ConsideredCommunities []int `json:"considered_communities"`
	UsedCommunities       []int `json:"used_communities"`
	MapCalls              int   `json:"map_calls"`
	MapErrors             int   `json:"map_errors"`
	MapDurationMs         int64 `json:"map_duration_ms"`
}

func NewQueryTrace() *QueryTrace {
	return &QueryTrace{
		considered: make(map[int]struct{}),
		used:       make(map[int]struct{}),
	}
}

func (t *QueryTrace) Record(event TraceEvent) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case TraceEventConsideredCommunities:
		for _, id := range event.Communities {
			t.considered[id] = struct{}{}
		}
	case TraceEventUsedCommunities:
		for _, id := range event.Communities {
			t.used[id] = struct{}{}
		}
	case TraceEventMapCall:
		t.mapCalls++
		t.durationMs += event.DurationMs
		if event.Error != "" {
			t.mapErrors++
		}
	}
}

func (t *QueryTrace) Snapshot() QueryTraceSnapshot {
	if t == nil {
		return QueryTraceSnapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := QueryTraceSnapshot{
		ConsideredCommunities: make([]int, 0, len(t.considered)),
		UsedCommunities:       make([]int, 0, len(t.used)),
		MapCalls:              t.mapCalls,
		MapErrors:             t.mapErrors,
		MapDurationMs:         t.durationMs,
	}
	for id := range t.considered {
		s.ConsideredCommunities = append(s.ConsideredCommunities, id)
	}
	for id := range t.used {
		s.UsedCommunities = append(s.UsedCommunities, id)
	}
	slices.Sort(s.ConsideredCommunities)
	slices.Sort(s.UsedCommunities)

	return s
}
