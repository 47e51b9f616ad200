// Package query answers questions over the community summaries of a graph.
//
// A global query maps the question over the relevant community summaries,
// asking the llm for a partial answer per community, and reduces the partial
// answers into one final answer.
package query

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/OFFIS-RIT/stockrag/pkg/ai"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"
	"github.com/OFFIS-RIT/stockrag/pkg/metrics"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// CommunityRanker returns the ids of the communities of a graph whose
// summaries are nearest to embedding, nearest first.
type CommunityRanker interface {
	NearestCommunities(ctx context.Context, graphID string, embedding []float32, limit int) ([]int, error)
}

type queryOptions struct {
	Model    string
	TopK     int
	Parallel int
	Ranker   CommunityRanker
	Tracer   Tracer
}

// QueryOption is a functional option for configuring query behavior.
type QueryOption func(*queryOptions)

// WithModel returns a QueryOption that specifies which AI model to use
// for generating responses.
func WithModel(model string) QueryOption {
	return func(o *queryOptions) {
		o.Model = model
	}
}

// WithTopK limits the map step to the k communities most similar to the
// question. Zero uses every community.
func WithTopK(k int) QueryOption {
	return func(o *queryOptions) {
		o.TopK = k
	}
}

// WithParallel bounds the number of concurrent map requests.
func WithParallel(n int) QueryOption {
	return func(o *queryOptions) {
		o.Parallel = n
	}
}

// WithRanker ranks communities with r instead of comparing embeddings in
// memory.
func WithRanker(r CommunityRanker) QueryOption {
	return func(o *queryOptions) {
		o.Ranker = r
	}
}

func WithTracer(t Tracer) QueryOption {
	return func(o *queryOptions) {
		o.Tracer = t
	}
}

// Answer is the result of a global query.
type Answer struct {
	Answer      string         `json:"answer"`
	Communities []int          `json:"communities"`
	Partials    map[int]string `json:"partials,omitempty"`
}

// GlobalQueryClient runs global queries for one graph.
type GlobalQueryClient struct {
	aiClient ai.GraphAIClient
	graphID  string
	options  queryOptions
}

func NewGlobalQueryClient(aiC ai.GraphAIClient, graphID string, opts ...QueryOption) *GlobalQueryClient {
	c := GlobalQueryClient{
		aiClient: aiC,
		graphID:  graphID,
		options:  queryOptions{Parallel: 1},
	}
	for _, o := range opts {
		o(&c.options)
	}
	if c.options.Parallel <= 0 {
		c.options.Parallel = 1
	}
	return &c
}

func (c *GlobalQueryClient) generateOpts() []ai.GenerateOption {
	if c.options.Model == "" {
		return nil
	}
	return []ai.GenerateOption{ai.WithModel(c.options.Model)}
}

// QueryGlobal answers question from summaries. When no summary contributes,
// the answer says that no data is available.
func (c *GlobalQueryClient) QueryGlobal(
	ctx context.Context,
	summaries map[int]string,
	question string,
) (ans *Answer, err error) {
	defer func() {
		metrics.QueriesAnswered.WithLabelValues(metrics.Status(err)).Inc()
	}()

	ids, err := c.selectCommunities(ctx, summaries, question)
	if err != nil {
		return nil, fmt.Errorf("failed to select communities: %w", err)
	}
	recordCommunities(c.options.Tracer, TraceEventConsideredCommunities, ids...)

	partials := make([]string, len(ids))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.options.Parallel)
	for i, id := range ids {
		g.Go(func() error {
			start := time.Now()
			prompt := fmt.Sprintf(ai.QueryMapPrompt, summaries[id], question)
			res, err := c.aiClient.GenerateCompletion(gCtx, prompt, c.generateOpts()...)

			event := TraceEvent{Kind: TraceEventMapCall, Communities: []int{id}, DurationMs: time.Since(start).Milliseconds()}
			if err != nil {
				event.Error = err.Error()
			}
			if c.options.Tracer != nil {
				c.options.Tracer.Record(event)
			}
			if err != nil {
				return fmt.Errorf("community %d: %w", id, err)
			}
			partials[i] = strings.TrimSpace(ai.StripAssistantPrefix(res))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ans = &Answer{Communities: []int{}, Partials: make(map[int]string)}
	var parts []string
	for i, id := range ids {
		if partials[i] == "" {
			continue
		}
		ans.Communities = append(ans.Communities, id)
		ans.Partials[id] = partials[i]
		parts = append(parts, fmt.Sprintf("[%d] %s", id, partials[i]))
	}
	recordCommunities(c.options.Tracer, TraceEventUsedCommunities, ans.Communities...)

	switch len(parts) {
	case 0:
		ans.Answer, err = c.noData(ctx, question)
		return ans, err
	case 1:
		ans.Answer = ans.Partials[ans.Communities[0]]
		return ans, nil
	}

	prompt := fmt.Sprintf(ai.QueryReducePrompt, strings.Join(parts, "\n\n"), question)
	res, err := c.aiClient.GenerateCompletion(ctx, prompt, c.generateOpts()...)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce partial answers: %w", err)
	}
	ans.Answer = ai.StripAssistantPrefix(res)
	logger.Debug("[Query] Answered global query", "graph", c.graphID, "communities", len(ids), "used", len(ans.Communities))
	return ans, nil
}

// selectCommunities returns the ids to map over, in ascending order.
func (c *GlobalQueryClient) selectCommunities(
	ctx context.Context,
	summaries map[int]string,
	question string,
) ([]int, error) {
	ids := slices.Sorted(maps.Keys(summaries))
	k := c.options.TopK
	if k <= 0 || k >= len(ids) {
		return ids, nil
	}

	qv, err := c.aiClient.GenerateEmbedding(ctx, question)
	if err != nil {
		return nil, err
	}

	var ranked []int
	if c.options.Ranker != nil {
		ranked, err = c.options.Ranker.NearestCommunities(ctx, c.graphID, qv, k)
		if err != nil {
			return nil, err
		}
		ranked = slices.DeleteFunc(ranked, func(id int) bool {
			_, ok := summaries[id]
			return !ok
		})
	} else {
		texts := make([]string, len(ids))
		for i, id := range ids {
			texts[i] = summaries[id]
		}
		vecs, err := c.aiClient.GenerateEmbeddings(ctx, texts)
		if err != nil {
			return nil, err
		}
		ranked = RankBySimilarity(ids, vecs, qv, k)
	}

	slices.Sort(ranked)
	return ranked, nil
}

// RankBySimilarity returns up to k ids ordered by descending cosine
// similarity of their vector to query. Ties keep the lower id first.
func RankBySimilarity(ids []int, vecs [][]float32, query []float32, k int) []int {
	type scored struct {
		id    int
		score float64
	}
	all := make([]scored, 0, len(ids))
	for i, id := range ids {
		var v []float32
		if i < len(vecs) {
			v = vecs[i]
		}
		all = append(all, scored{id: id, score: Cosine(v, query)})
	}
	slices.SortStableFunc(all, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	if k > len(all) {
		k = len(all)
	}
	out := make([]int, k)
	for i := range out {
		out[i] = all[i].id
	}
	return out
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	fa, fb := toFloat64(a), toFloat64(b)
	na, nb := floats.Norm(fa, 2), floats.Norm(fb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(fa, fb) / (na * nb)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// noData generates a response in the user's language when no community
// contributes to the answer.
func (c *GlobalQueryClient) noData(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(ai.NoDataPrompt, question)
	res, err := c.aiClient.GenerateCompletion(ctx, prompt, c.generateOpts()...)
	if err != nil {
		logger.Error("[Query] Failed to generate no data response", "err", err)
		return "", err
	}
	return ai.StripAssistantPrefix(res), nil
}
