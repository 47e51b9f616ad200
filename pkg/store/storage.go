package store

import (
	"context"
	"errors"

	"github.com/OFFIS-RIT/stockrag/pkg/common"
)

var ErrGraphNotFound = errors.New("graph not found")

// Graph is the metadata row of a stored graph.
type Graph struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	NodeCount     int    `json:"node_count"`
	RelationCount int    `json:"relation_count"`
	SummaryCount  int    `json:"summary_count"`
}

// GraphStorage persists graphs and their community summaries.
type GraphStorage interface {
	CreateGraph(ctx context.Context, id string, name string) error
	GetGraph(ctx context.Context, id string) (Graph, error)
	DeleteGraph(ctx context.Context, id string) error

	// SaveGraph upserts nodes and relations. Existing rows not in the
	// arguments are kept.
	SaveGraph(ctx context.Context, id string, nodes []common.Node, relations []common.Relation) error
	LoadGraph(ctx context.Context, id string) ([]common.Node, []common.Relation, error)

	// SaveSummaries replaces all summaries of a graph. embeddings may be nil
	// or miss entries.
	SaveSummaries(ctx context.Context, id string, summaries map[int]string, embeddings map[int][]float32) error
	LoadSummaries(ctx context.Context, id string) (map[int]string, error)

	NearestCommunities(ctx context.Context, graphID string, embedding []float32, limit int) ([]int, error)
}
