package graph

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/OFFIS-RIT/stockrag/pkg/ai"
	"github.com/OFFIS-RIT/stockrag/pkg/common"
	"github.com/OFFIS-RIT/stockrag/pkg/community"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"
	"github.com/OFFIS-RIT/stockrag/pkg/metrics"

	"golang.org/x/sync/errgroup"
)

// Partition runs the hierarchical partitioner over g with the store's
// cluster size, resolution and seed.
func (s *Store) Partition(ctx context.Context, g *GenericGraph) ([]community.HierarchicalCluster, error) {
	clusters, err := community.Hierarchical(ctx, g, community.Options{
		MaxClusterSize: s.opts.MaxClusterSize,
		Resolution:     s.opts.Resolution,
		Seed:           s.opts.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("partition graph: %w", err)
	}
	return clusters, nil
}

// CollectCommunityInfo renders the relations inside each final cluster as
// "node -> neighbor -> relationship -> description" lines. Every final
// cluster is a key of the result, even when it has no internal relation.
// Lines are ordered by node and then by neighbor.
func CollectCommunityInfo(g *GenericGraph, clusters []community.HierarchicalCluster) map[int][]string {
	final := community.FinalClusters(clusters)

	info := make(map[int][]string)
	for _, cluster := range final {
		if _, ok := info[cluster]; !ok {
			info[cluster] = []string{}
		}
	}

	for _, node := range g.NodeNames() {
		cluster, ok := final[node]
		if !ok {
			continue
		}
		for _, nb := range g.Neighbors(node) {
			if c, ok := final[nb]; !ok || c != cluster {
				continue
			}
			edge, _ := g.Edge(node, nb)
			info[cluster] = append(info[cluster], fmt.Sprintf(
				"%s -> %s -> %s -> %s",
				node, nb, edge.Relationship, edge.Description,
			))
		}
	}
	return info
}

// SummarizeCommunity asks the llm to summarize the relation lines of one
// community. A leading "assistant:" marker is removed from the reply.
func (s *Store) SummarizeCommunity(ctx context.Context, lines []string) (string, error) {
	if s.llm == nil {
		return "", ErrNoLLM
	}

	text := strings.Join(lines, "\n") + "."
	messages := []ai.ChatMessage{
		{Role: "system", Message: ai.CommunitySummaryPrompt},
		{Role: "user", Message: text},
	}

	start := time.Now()
	res, err := s.llm.GenerateChat(ctx, messages, ai.WithModel(s.opts.Model))
	metrics.SummaryLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("summarize community: %w", err)
	}

	return ai.StripAssistantPrefix(res), nil
}

// BuildCommunities partitions the current graph and summarizes every final
// cluster, writing each summary into the cache as soon as it is available.
// On error the summaries written so far stay in the cache.
func (s *Store) BuildCommunities(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	return s.build(ctx)
}

// GetCommunitySummaries returns a copy of the summary cache and builds it
// first when it is empty.
func (s *Store) GetCommunitySummaries(ctx context.Context) (map[int]string, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	s.mu.RLock()
	empty := len(s.summaries) == 0
	s.mu.RUnlock()

	if empty {
		if err := s.build(ctx); err != nil {
			return nil, err
		}
	}
	return s.Summaries(), nil
}

func (s *Store) build(ctx context.Context) (err error) {
	defer func() {
		metrics.CommunityBuilds.WithLabelValues(metrics.Status(err)).Inc()
	}()

	if s.llm == nil {
		return ErrNoLLM
	}

	g := s.ToGeneric()
	clusters, err := s.Partition(ctx, g)
	if err != nil {
		return err
	}

	info := CollectCommunityInfo(g, clusters)
	ids := make([]int, 0, len(info))
	for id := range info {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	metrics.CommunityClusters.Set(float64(len(ids)))
	logger.Info("[Graph] Partitioned graph", "nodes", g.NodeCount(), "edges", g.EdgeCount(), "clusters", len(ids))

	summarize := func(ctx context.Context, id int) error {
		summary, err := s.SummarizeCommunity(ctx, info[id])
		if err != nil {
			return fmt.Errorf("cluster %d: %w", id, err)
		}
		s.setSummary(id, summary)
		metrics.SummariesGenerated.Inc()
		logger.Debug("[Graph] Summarized community", "cluster", id, "lines", len(info[id]))
		return nil
	}

	if s.opts.ParallelAiRequests <= 1 {
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := summarize(ctx, id); err != nil {
				return err
			}
		}
		return nil
	}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.opts.ParallelAiRequests)
	for _, id := range ids {
		eg.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			return summarize(gCtx, id)
		})
	}
	return eg.Wait()
}

// Visualize returns the subgraph of the current graph whose node names
// contain filter, together with its relation records.
func (s *Store) Visualize(filter string) (*GenericGraph, []common.RelationRecord) {
	sub, records := FilterNodesByName(s.ToGeneric(), filter)
	for _, r := range records {
		logger.Debug("[Graph] Relation", "source", r.Source, "target", r.Target, "relationship", r.Relationship, "description", r.Description)
	}
	return sub, records
}
