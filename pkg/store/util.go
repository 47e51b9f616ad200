package store

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/OFFIS-RIT/stockrag/pkg/ai"
	"github.com/OFFIS-RIT/stockrag/pkg/graph"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"
)

func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// EmbedSummaries embeds every summary with client in batches of batchSize.
func EmbedSummaries(
	ctx context.Context,
	client ai.GraphAIClient,
	summaries map[int]string,
	batchSize int,
) (map[int][]float32, error) {
	if client == nil {
		return nil, fmt.Errorf("ai client is nil")
	}
	ids := slices.Sorted(maps.Keys(summaries))
	out := make(map[int][]float32, len(ids))

	err := ChunkRange(len(ids), batchSize, func(start, end int) error {
		texts := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			texts = append(texts, summaries[id])
		}
		vecs, err := client.GenerateEmbeddings(ctx, texts)
		if err != nil {
			return err
		}
		for i, id := range ids[start:end] {
			if i < len(vecs) && len(vecs[i]) > 0 {
				out[id] = vecs[i]
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed summaries: %w", err)
	}
	return out, nil
}

// LoadStore reads graph id from s into a new in-memory store with the stored
// summaries as its cache.
func LoadStore(
	ctx context.Context,
	s GraphStorage,
	id string,
	llm ai.GraphAIClient,
	opts graph.Options,
) (*graph.Store, error) {
	nodes, relations, err := s.LoadGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	summaries, err := s.LoadSummaries(ctx, id)
	if err != nil {
		return nil, err
	}

	st := graph.NewStore(llm, opts)
	st.AddNodes(nodes...)
	st.AddRelations(relations...)
	st.SetSummaries(summaries)
	return st, nil
}

// PersistSummaries embeds the cached summaries of st, when an embedding
// client is given, and replaces the stored summaries of graph id.
func PersistSummaries(
	ctx context.Context,
	s GraphStorage,
	id string,
	st *graph.Store,
	embedder ai.GraphAIClient,
) error {
	summaries := st.Summaries()

	var embeddings map[int][]float32
	if embedder != nil && len(summaries) > 0 {
		var err error
		embeddings, err = EmbedSummaries(ctx, embedder, summaries, 64)
		if err != nil {
			logger.Warn("[Store] Saving summaries without embeddings", "graph", id, "err", err)
			embeddings = nil
		}
	}

	if err := s.SaveSummaries(ctx, id, summaries, embeddings); err != nil {
		return fmt.Errorf("failed to save summaries: %w", err)
	}
	return nil
}
