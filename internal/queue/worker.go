package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/stockrag/pkg/ai"
	"github.com/OFFIS-RIT/stockrag/pkg/graph"
	"github.com/OFFIS-RIT/stockrag/pkg/leaselock"
	"github.com/OFFIS-RIT/stockrag/pkg/loader"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"
	"github.com/OFFIS-RIT/stockrag/pkg/store"
)

// Locker runs fn while holding a distributed lease.
type Locker interface {
	WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// Worker processes the messages of the extract and community queues.
type Worker struct {
	AI        ai.GraphAIClient
	Storage   store.GraphStorage
	Locks     Locker
	Publisher Publisher

	// Documents loads uploaded documents, Web loads article urls.
	Documents loader.GraphFileLoader
	Web       loader.GraphFileLoader

	Graph         graph.Options
	Encoder       string
	MaxTokens     int
	ParallelFiles int
	ParallelUnits int
	MaxAIRetries  int
	LeaseTTL      time.Duration
}

func (w *Worker) leaseOptions() leaselock.Options {
	return leaselock.Options{TTL: w.LeaseTTL, Wait: true, WaitJitter: 250 * time.Millisecond}
}

// Process dispatches body to the handler of queueName.
func (w *Worker) Process(ctx context.Context, queueName string, body []byte) error {
	switch queueName {
	case ExtractQueue:
		return w.ProcessExtract(ctx, body)
	case CommunityQueue:
		return w.ProcessCommunities(ctx, body)
	}
	return fmt.Errorf("unknown queue %s", queueName)
}

func (w *Worker) files(docs []DocumentRef) []loader.GraphFile {
	files := make([]loader.GraphFile, 0, len(docs))
	for _, d := range docs {
		params := loader.NewGraphFileParams{
			ID:        d.ID,
			Name:      d.Name,
			MaxTokens: w.MaxTokens,
		}
		switch {
		case d.Text != "":
			files = append(files, loader.NewGraphTextFile(params, d.Text))
		case d.URL != "":
			params.FilePath = d.URL
			params.Loader = w.Web
			files = append(files, loader.NewGraphWebFile(params))
		default:
			params.FilePath = d.Key
			params.Loader = w.Documents
			files = append(files, loader.NewGraphDocumentFile(params))
		}
	}
	return files
}

// ProcessExtract ingests the documents of an ExtractMsg into the stored
// graph and queues a forced community rebuild.
func (w *Worker) ProcessExtract(ctx context.Context, body []byte) error {
	msg, err := decodeExtractMsg(body)
	if err != nil {
		return err
	}
	if len(msg.Documents) == 0 {
		logger.Warn("[Queue] Extract message without documents", "graph", msg.GraphID)
		return nil
	}

	ex := graph.NewExtractor(graph.NewExtractorParams{
		Client:     w.AI,
		Encoder:    w.Encoder,
		Parallel:   w.ParallelUnits,
		MaxRetries: w.MaxAIRetries,
		Strict:     msg.Strict,
	})

	var res graph.IngestResult
	var st *graph.Store
	err = w.Locks.WithLease(ctx, leaselock.GraphKey(msg.GraphID), w.leaseOptions(), func(ctx context.Context) error {
		loaded, err := store.LoadStore(ctx, w.Storage, msg.GraphID, w.AI, w.Graph)
		if err != nil {
			return err
		}
		ingested, err := loaded.Ingest(ctx, ex, w.ParallelFiles, w.files(msg.Documents)...)
		if err != nil {
			return err
		}
		st, res = loaded, ingested
		return w.Storage.SaveGraph(ctx, msg.GraphID, st.Nodes(), st.Relations())
	})
	if err != nil {
		return fmt.Errorf("failed to extract into graph %s: %w", msg.GraphID, err)
	}

	logger.Info(
		"[Queue] Extracted documents",
		"graph", msg.GraphID,
		"files", res.Files,
		"units", res.Units,
		"accepted", res.Accepted,
		"rejected", res.Rejected,
	)

	next, err := json.Marshal(CommunityMsg{GraphID: msg.GraphID, CorrelationID: msg.CorrelationID, Force: true})
	if err != nil {
		return err
	}
	if err := PublishFIFO(w.Publisher, CommunityQueue, next); err != nil {
		return fmt.Errorf("failed to queue community rebuild: %w", err)
	}

	w.notify(GraphEvent{
		GraphID:       msg.GraphID,
		CorrelationID: msg.CorrelationID,
		Kind:          "extracted",
		Nodes:         st.NodeCount(),
		Relations:     st.RelationCount(),
	})
	return nil
}

// ProcessCommunities builds the community summaries of a graph, unless
// summaries are stored and the message is not forced, and persists them with
// their embeddings.
func (w *Worker) ProcessCommunities(ctx context.Context, body []byte) error {
	msg, err := decodeCommunityMsg(body)
	if err != nil {
		return err
	}

	var summaries map[int]string
	err = w.Locks.WithLease(ctx, leaselock.CommunityBuildKey(msg.GraphID), w.leaseOptions(), func(ctx context.Context) error {
		st, err := store.LoadStore(ctx, w.Storage, msg.GraphID, w.AI, w.Graph)
		if err != nil {
			return err
		}
		if msg.Force {
			st.ResetSummaries()
		} else if cached := st.Summaries(); len(cached) > 0 {
			summaries = cached
			return nil
		}
		built, err := st.GetCommunitySummaries(ctx)
		if err != nil {
			return err
		}
		summaries = built
		return store.PersistSummaries(ctx, w.Storage, msg.GraphID, st, w.AI)
	})
	if err != nil {
		return fmt.Errorf("failed to build communities of graph %s: %w", msg.GraphID, err)
	}

	logger.Info("[Queue] Built communities", "graph", msg.GraphID, "communities", len(summaries), "forced", msg.Force)
	w.notify(GraphEvent{
		GraphID:       msg.GraphID,
		CorrelationID: msg.CorrelationID,
		Kind:          "communities",
		Communities:   len(summaries),
	})
	return nil
}

// notify publishes e on the topic exchange. Failures are logged only.
func (w *Worker) notify(e GraphEvent) {
	data, err := json.Marshal(e)
	if err == nil {
		err = PublishTopic(w.Publisher, e.Topic(), data)
	}
	if err != nil {
		logger.Warn("[Queue] Failed to publish graph event", "topic", e.Topic(), "err", err)
	}
}
