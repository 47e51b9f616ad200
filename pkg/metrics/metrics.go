package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Community metrics
	CommunityBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockrag_community_builds_total",
			Help: "Number of community builds by outcome",
		},
		[]string{"status"},
	)

	CommunityClusters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stockrag_community_clusters",
		Help: "Number of final clusters produced by the last partition",
	})

	SummariesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockrag_community_summaries_total",
		Help: "Number of community summaries generated",
	})

	SummaryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stockrag_community_summary_seconds",
		Help:    "Latency of one community summary request",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	// Extraction metrics
	TripletsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockrag_triplets_total",
			Help: "Number of extracted triplets by schema check result",
		},
		[]string{"result"},
	)

	UnitsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockrag_units_processed_total",
		Help: "Number of text units sent to extraction",
	})

	// Worker metrics
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockrag_jobs_total",
			Help: "Number of queue messages processed by queue and outcome",
		},
		[]string{"queue", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockrag_job_seconds",
			Help:    "Processing time of one queue message",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"queue"},
	)

	AITokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockrag_ai_tokens_total",
			Help: "Tokens consumed by AI requests by direction",
		},
		[]string{"direction"},
	)

	// Query metrics
	QueriesAnswered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockrag_queries_total",
			Help: "Number of global queries by outcome",
		},
		[]string{"status"},
	)
)

// Status returns the status label for err.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveTriplets records the schema check result of one extraction batch.
func ObserveTriplets(accepted, rejected int) {
	TripletsExtracted.WithLabelValues("accepted").Add(float64(accepted))
	TripletsExtracted.WithLabelValues("rejected").Add(float64(rejected))
}
