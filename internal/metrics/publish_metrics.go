package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recompute counter vectors
var (
	RecomputeRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clever_parlay",
		Name:      "recompute_runs_total",
		Help:      "Total number of recompute runs by dataset and final state",
	}, []string{"dataset", "state"})
	PublishesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clever_parlay",
		Name:      "publishes_total",
		Help:      "Total number of canonical pointer publishes by dataset and mechanism",
	}, []string{"dataset", "mechanism"})
	PublishFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clever_parlay",
		Name:      "publish_fallbacks_total",
		Help:      "Total number of publishes that fell back from symlink to copy",
	})
	TriggersSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clever_parlay",
		Name:      "recompute_triggers_skipped_total",
		Help:      "Triggers rejected because a recompute was already running",
	}, []string{"dataset", "source"})
)

// Recompute histogram and gauge vectors
var (
	RecomputeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clever_parlay",
		Name:      "recompute_duration_seconds",
		Help:      "Duration of recompute runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	}, []string{"dataset"})
	LatestArtifactTimestamp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "clever_parlay",
		Name:      "latest_artifact_timestamp_seconds",
		Help:      "Unix time encoded in the name of the last published artifact",
	}, []string{"dataset"})
)

// RecordRecompute records a finished recompute run.
// state should be one of: "published", "failed"
func RecordRecompute(dataset, state string, durationSeconds float64) {
	RecomputeRunsTotal.WithLabelValues(dataset, state).Inc()
	RecomputeDuration.WithLabelValues(dataset).Observe(durationSeconds)
}

// RecordPublish records a canonical pointer publish.
func RecordPublish(dataset, mechanism string) {
	PublishesTotal.WithLabelValues(dataset, mechanism).Inc()
}

// RecordPublishFallback records a symlink publish that fell back to copy.
func RecordPublishFallback() {
	PublishFallbacksTotal.Inc()
}

// RecordTriggerSkipped records a trigger rejected while a run was in progress.
func RecordTriggerSkipped(dataset, source string) {
	TriggersSkippedTotal.WithLabelValues(dataset, source).Inc()
}

// UpdateLatestArtifactTimestamp sets the stamp of the last published artifact.
func UpdateLatestArtifactTimestamp(dataset string, ts time.Time) {
	LatestArtifactTimestamp.WithLabelValues(dataset).Set(float64(ts.Unix()))
}
