// Package metrics exposes run counters for the serve mode.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/pipeline"
)

var (
	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zpmon_runs_total",
		Help: "Completed curation runs.",
	})
	DegradedRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zpmon_degraded_runs_total",
		Help: "Runs that ranked without the learned model.",
	})
	ArticlesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zpmon_articles_processed_total",
		Help: "Articles ingested across runs.",
	})
	ArticlesDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zpmon_articles_duplicate_total",
		Help: "Articles dropped as near-duplicates.",
	})
	ArticlesNoise = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zpmon_articles_noise_total",
		Help: "Articles dropped as off-domain noise.",
	})
	ArticlesSelected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zpmon_articles_selected_total",
		Help: "Articles that made the shortlist.",
	})
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zpmon_run_duration_seconds",
		Help:    "Wall-clock duration of a curation run.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

// ObserveRun records one pipeline result.
func ObserveRun(result *pipeline.Result) {
	RunsTotal.Inc()
	if result.Degraded {
		DegradedRunsTotal.Inc()
	}
	ArticlesProcessed.Add(float64(result.Processed))
	ArticlesDuplicate.Add(float64(result.Duplicates))
	ArticlesNoise.Add(float64(result.Noise))
	ArticlesSelected.Add(float64(result.Selected))
	RunDuration.Observe(result.Elapsed.Seconds())
}
