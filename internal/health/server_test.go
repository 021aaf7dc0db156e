package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/clever-parlay/internal/models"
)

type stubTrigger struct {
	err      error
	datasets []string
}

func (s *stubTrigger) TriggerNow(ctx context.Context, dataset string) (<-chan bool, error) {
	s.datasets = append(s.datasets, dataset)
	if s.err != nil {
		return nil, s.err
	}
	done := make(chan bool, 1)
	done <- true
	close(done)
	return done, nil
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndLive(t *testing.T) {
	server := NewServer(Config{ServiceName: "recompute", Version: "1.2.3", Commit: "abc"})

	rec := get(t, server.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "recompute", health.Service)
	assert.Equal(t, "1.2.3", health.Version)

	rec = get(t, server.Handler(), "/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyRequiresSetReady(t *testing.T) {
	server := NewServer(Config{ServiceName: "recompute"})

	rec := get(t, server.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	server.SetReady(true)
	rec = get(t, server.Handler(), "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyRunsCheckers(t *testing.T) {
	dir := t.TempDir()
	server := NewServer(Config{
		ServiceName: "recompute",
		Checkers: []Checker{
			NewDirChecker("artifacts", dir),
			NewCheckFunc("scheduler", func(context.Context) error { return errors.New("not running") }),
		},
	})
	server.SetReady(true)

	rec := get(t, server.Handler(), "/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var ready ReadyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ready))
	assert.Equal(t, "not_ready", ready.Status)
	assert.Equal(t, "ok", ready.Checks["artifacts"])
	assert.Equal(t, "error: not running", ready.Checks["scheduler"])
}

func TestDirChecker(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, NewDirChecker("artifacts", dir).Check(context.Background()))
	assert.Error(t, NewDirChecker("artifacts", filepath.Join(dir, "missing")).Check(context.Background()))
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "clever_parlay_up 1")
	})
	server := NewServer(Config{MetricsPath: "/internal/metrics", MetricsHandler: metrics})

	rec := get(t, server.Handler(), "/internal/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clever_parlay_up")

	assert.Equal(t, http.StatusNotFound, get(t, server.Handler(), "/metrics").Code)
}

func TestTriggerRoute(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		state  string
	}{
		{"started", nil, http.StatusAccepted, "started"},
		{"in progress", fmt.Errorf("%w: projections", models.ErrRecomputeInProgress), http.StatusConflict, "in_progress"},
		{"unknown", fmt.Errorf("%w: %q", models.ErrUnknownDataset, "projections"), http.StatusNotFound, "unknown"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := &stubTrigger{err: tt.err}
			server := NewServer(Config{Trigger: trigger})

			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/recompute/projections", nil))

			assert.Equal(t, tt.status, rec.Code)
			var resp TriggerResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.state, resp.Status)
			assert.Equal(t, "projections", resp.Dataset)
			assert.Equal(t, []string{"projections"}, trigger.datasets)
		})
	}
}

func TestTriggerRouteAbsentWithoutTriggerer(t *testing.T) {
	server := NewServer(Config{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/recompute/projections", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
