package graph

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/OFFIS-RIT/stockrag/pkg/ai"
	"github.com/OFFIS-RIT/stockrag/pkg/common"
	"github.com/OFFIS-RIT/stockrag/pkg/community"
)

// DefaultModel is the chat model used for community summaries when none is
// configured.
const DefaultModel = "gpt-4o-mini"

var ErrNoLLM = errors.New("graph store has no llm client")

// Options configure one Store. Zero values fall back to the defaults.
type Options struct {
	// MaxClusterSize bounds the size of final communities.
	MaxClusterSize int
	// Seed makes partitioning reproducible.
	Seed uint64
	// Resolution is the modularity resolution used by the partitioner.
	Resolution float64
	// Model is the chat model used for summaries.
	Model string
	// ParallelAiRequests bounds concurrent summary requests. 1 is sequential.
	ParallelAiRequests int
}

func (o Options) withDefaults() Options {
	if o.MaxClusterSize <= 0 {
		o.MaxClusterSize = community.DefaultMaxClusterSize
	}
	if o.Resolution <= 0 {
		o.Resolution = community.DefaultResolution
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.ParallelAiRequests <= 0 {
		o.ParallelAiRequests = 1
	}
	return o
}

type storedRelation struct {
	rel common.Relation
	seq uint64
}

// Store is an in-memory property graph with a community summary cache.
//
// The cache is filled lazily by GetCommunitySummaries and explicitly by
// BuildCommunities. Mutating the graph does not invalidate it.
type Store struct {
	mu        sync.RWMutex
	nodes     map[string]common.Node
	nodeOrder []string
	relations map[common.RelationKey]storedRelation
	seq       uint64
	summaries map[int]string

	// buildMu serializes community builds on this instance.
	buildMu sync.Mutex

	opts Options
	llm  ai.GraphAIClient
}

// NewStore creates an empty store. llm may be nil when the store is only
// used for population, filtering or cached summaries.
func NewStore(llm ai.GraphAIClient, opts Options) *Store {
	return &Store{
		nodes:     make(map[string]common.Node),
		relations: make(map[common.RelationKey]storedRelation),
		summaries: make(map[int]string),
		opts:      opts.withDefaults(),
		llm:       llm,
	}
}

func (s *Store) Options() Options {
	return s.opts
}

// AddNode inserts n or replaces the node with the same identity.
func (s *Store) AddNode(n common.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addNode(n)
}

func (s *Store) AddNodes(nodes ...common.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.addNode(n)
	}
}

func (s *Store) addNode(n common.Node) {
	if n.ID == "" {
		n.ID = n.Name
	}
	if _, ok := s.nodes[n.ID]; !ok {
		s.nodeOrder = append(s.nodeOrder, n.ID)
	}
	s.nodes[n.ID] = n
}

// AddRelation inserts r. A relation with the same source, label and target
// is replaced and counts as the most recent insert.
func (s *Store) AddRelation(r common.Relation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addRelation(r)
}

func (s *Store) AddRelations(rels ...common.Relation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rels {
		s.addRelation(r)
	}
}

func (s *Store) addRelation(r common.Relation) {
	s.seq++
	s.relations[r.Key()] = storedRelation{rel: r, seq: s.seq}
}

// Node returns the node with the given id.
func (s *Store) Node(id string) (common.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (s *Store) Nodes() []common.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.nodes[id])
	}
	return out
}

// Relations returns all relations in insertion order.
func (s *Store) Relations() []common.Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.relationsLocked()
}

func (s *Store) relationsLocked() []common.Relation {
	stored := slices.Collect(maps.Values(s.relations))
	slices.SortFunc(stored, func(a, b storedRelation) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	out := make([]common.Relation, len(stored))
	for i, sr := range stored {
		out[i] = sr.rel
	}
	return out
}

func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

func (s *Store) RelationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.relations)
}

// ToGeneric converts the store into an undirected graph over node names.
// Relation endpoints without a node are added implicitly.
func (s *Store) ToGeneric() *GenericGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := NewGenericGraph()
	for _, id := range s.nodeOrder {
		g.AddNode(s.nodes[id].String())
	}
	for _, r := range s.relationsLocked() {
		g.AddEdge(r.SourceID, r.TargetID, r.Label, r.Description())
	}
	return g
}

// Summaries returns a copy of the cached community summaries.
func (s *Store) Summaries() map[int]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.summaries)
}

// SetSummaries replaces the summary cache, e.g. with summaries loaded from
// persistent storage.
func (s *Store) SetSummaries(summaries map[int]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = maps.Clone(summaries)
	if s.summaries == nil {
		s.summaries = make(map[int]string)
	}
}

// ResetSummaries empties the summary cache.
func (s *Store) ResetSummaries() {
	s.SetSummaries(nil)
}

func (s *Store) setSummary(cluster int, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[cluster] = summary
}

// Snapshot returns the serializable state of the store.
func (s *Store) Snapshot(graphID string) common.Snapshot {
	return common.Snapshot{
		GraphID:   graphID,
		Nodes:     s.Nodes(),
		Relations: s.Relations(),
		Summaries: s.Summaries(),
	}
}

// Restore adds the nodes and relations of snap and replaces the summary
// cache with its summaries.
func (s *Store) Restore(snap common.Snapshot) {
	s.AddNodes(snap.Nodes...)
	s.AddRelations(snap.Relations...)
	s.SetSummaries(snap.Summaries)
}
