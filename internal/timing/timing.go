// Package timing measures and reports how long queue jobs and their AI
// requests take.
package timing

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/stockrag/pkg/ai"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"
	"github.com/OFFIS-RIT/stockrag/pkg/metrics"
)

// Clock formats d as HH:MM:SS. Hours are not wrapped.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// ObserveJob records the duration and outcome of a job on queue.
func ObserveJob(queue string, start time.Time, err error) time.Duration {
	d := time.Since(start)
	metrics.JobDuration.WithLabelValues(queue).Observe(d.Seconds())
	metrics.JobsProcessed.WithLabelValues(queue, metrics.Status(err)).Inc()
	logger.Info("Processing time", "queue", queue, "duration", Clock(d))
	return d
}

// ReportAI logs and records the AI usage collected since the last reset.
func ReportAI(m ai.ModelMetrics) {
	metrics.AITokens.WithLabelValues("input").Add(float64(m.InputTokens))
	metrics.AITokens.WithLabelValues("output").Add(float64(m.OutputTokens))
	logger.Info(
		"AI Metrics",
		"requests", m.Requests,
		"input_tokens", m.InputTokens,
		"output_tokens", m.OutputTokens,
		"total_tokens", m.TotalTokens,
		"duration", Clock(time.Duration(m.DurationMs)*time.Millisecond),
	)
}
