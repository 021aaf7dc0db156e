// Package metrics provides the centralized Prometheus metrics registry.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Suggestion metrics
var (
	SuggestionRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clever_parlay",
		Name:      "suggestion_requests_total",
		Help:      "Total number of parlay suggestion requests by outcome",
	}, []string{"outcome"})
	SuggestionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clever_parlay",
		Name:      "suggestion_duration_seconds",
		Help:      "Duration of parlay ranking in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
	CombinationsEnumerated = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clever_parlay",
		Name:      "combinations_enumerated",
		Help:      "Number of combinations priced per suggestion request",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})
	SuggestionCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clever_parlay",
		Name:      "suggestion_cache_hit_ratio",
		Help:      "Hit ratio of the suggestion result cache",
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		// Register suggestion metrics
		registry.MustRegister(SuggestionRequestsTotal)
		registry.MustRegister(SuggestionDuration)
		registry.MustRegister(CombinationsEnumerated)
		registry.MustRegister(SuggestionCacheHitRatio)

		// Register publish metrics
		registry.MustRegister(RecomputeRunsTotal)
		registry.MustRegister(RecomputeDuration)
		registry.MustRegister(PublishesTotal)
		registry.MustRegister(PublishFallbacksTotal)
		registry.MustRegister(TriggersSkippedTotal)
		registry.MustRegister(LatestArtifactTimestamp)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordSuggestion records a suggestion request outcome and its duration.
// outcome should be one of: "ranked", "cached", "rejected"
func RecordSuggestion(outcome string, durationSeconds float64) {
	SuggestionRequestsTotal.WithLabelValues(outcome).Inc()
	if outcome != "rejected" {
		SuggestionDuration.Observe(durationSeconds)
	}
}

// RecordCombinationsEnumerated records how many combinations a request priced.
func RecordCombinationsEnumerated(count int) {
	CombinationsEnumerated.Observe(float64(count))
}

// UpdateSuggestionCacheHitRatio updates the suggestion cache hit ratio gauge.
func UpdateSuggestionCacheHitRatio(ratio float64) {
	SuggestionCacheHitRatio.Set(ratio)
}
