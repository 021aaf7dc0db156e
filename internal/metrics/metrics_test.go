package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, InitRegistry())
}

func TestRecordSuggestion(t *testing.T) {
	InitRegistry()

	before := testutil.ToFloat64(SuggestionRequestsTotal.WithLabelValues("ranked"))
	RecordSuggestion("ranked", 0.002)
	assert.Equal(t, before+1, testutil.ToFloat64(SuggestionRequestsTotal.WithLabelValues("ranked")))

	rejected := testutil.ToFloat64(SuggestionRequestsTotal.WithLabelValues("rejected"))
	RecordSuggestion("rejected", 0)
	assert.Equal(t, rejected+1, testutil.ToFloat64(SuggestionRequestsTotal.WithLabelValues("rejected")))
}

func TestRecordCombinationsEnumerated(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordCombinationsEnumerated(63)
	})
}

func TestUpdateSuggestionCacheHitRatio(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name  string
		ratio float64
	}{
		{"cold cache", 0},
		{"half hits", 0.5},
		{"all hits", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			UpdateSuggestionCacheHitRatio(tt.ratio)
			assert.Equal(t, tt.ratio, testutil.ToFloat64(SuggestionCacheHitRatio))
		})
	}
}

func TestPublishMetrics(t *testing.T) {
	InitRegistry()

	dataset := "metrics_test_dataset"

	RecordRecompute(dataset, "published", 1.5)
	RecordRecompute(dataset, "failed", 0.1)
	RecordPublish(dataset, "symlink")
	RecordTriggerSkipped(dataset, "interval")

	assert.Equal(t, 1.0, testutil.ToFloat64(RecomputeRunsTotal.WithLabelValues(dataset, "published")))
	assert.Equal(t, 1.0, testutil.ToFloat64(RecomputeRunsTotal.WithLabelValues(dataset, "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(PublishesTotal.WithLabelValues(dataset, "symlink")))
	assert.Equal(t, 1.0, testutil.ToFloat64(TriggersSkippedTotal.WithLabelValues(dataset, "interval")))
}

func TestRecordPublishFallback(t *testing.T) {
	InitRegistry()

	before := testutil.ToFloat64(PublishFallbacksTotal)
	RecordPublishFallback()
	assert.Equal(t, before+1, testutil.ToFloat64(PublishFallbacksTotal))
}

func TestUpdateLatestArtifactTimestamp(t *testing.T) {
	InitRegistry()

	ts := time.Date(2025, 10, 26, 12, 0, 0, 0, time.UTC)
	UpdateLatestArtifactTimestamp("ts_dataset", ts)
	assert.Equal(t, float64(ts.Unix()), testutil.ToFloat64(LatestArtifactTimestamp.WithLabelValues("ts_dataset")))
}

func TestMetricsHandler(t *testing.T) {
	InitRegistry()
	RecordSuggestion("ranked", 0.001)

	handler := Handler()
	require.NotNil(t, handler)
	assert.Implements(t, (*http.Handler)(nil), handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clever_parlay_suggestion_requests_total")
}

func BenchmarkRecordSuggestion(b *testing.B) {
	InitRegistry()

	for i := 0; i < b.N; i++ {
		RecordSuggestion("ranked", 0.001)
	}
}
