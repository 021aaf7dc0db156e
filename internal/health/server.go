// Package health provides a lightweight HTTP server for container health checks,
// metrics exposition and on-demand recompute triggers.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/clever-parlay/internal/models"
)

// Triggerer starts recompute cycles on demand
type Triggerer interface {
	TriggerNow(ctx context.Context, dataset string) (<-chan bool, error)
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// TriggerResponse represents the JSON response for recompute triggers.
type TriggerResponse struct {
	Status  string `json:"status"`
	Dataset string `json:"dataset"`
	Error   string `json:"error,omitempty"`
}

// Server is a lightweight HTTP server for health check endpoints.
type Server struct {
	serviceName    string
	version        string
	commit         string
	port           string
	server         *http.Server
	logger         *logrus.Logger
	checkers       []Checker
	metricsPath    string
	metricsHandler http.Handler
	trigger        Triggerer
	router         chi.Router
	mu             sync.RWMutex
	ready          bool
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName    string
	Version        string
	Commit         string
	Port           string
	Logger         *logrus.Logger
	Checkers       []Checker
	MetricsPath    string
	MetricsHandler http.Handler
	Trigger        Triggerer
}

// NewServer creates a new health check server.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = os.Getenv("HEALTH_PORT")
	}
	if port == "" {
		port = "8080"
	}

	s := &Server{
		serviceName:    cfg.ServiceName,
		version:        cfg.Version,
		commit:         cfg.Commit,
		port:           port,
		logger:         cfg.Logger,
		checkers:       cfg.Checkers,
		metricsPath:    cfg.MetricsPath,
		metricsHandler: cfg.MetricsHandler,
		trigger:        cfg.Trigger,
		ready:          false,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)

	if s.metricsHandler != nil {
		path := s.metricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, s.metricsHandler)
	}

	if s.trigger != nil {
		r.Post("/recompute/{dataset}", s.handleTrigger)
	}

	return r
}

// Handler returns the server's router
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Start starts the health check server in the background.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"port":    s.port,
				"service": s.serviceName,
			}).Info("Health check server starting")
		}

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.WithError(err).Error("Health check server error")
			}
		}
	}()

	// Wait for context cancellation
	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully shuts down the health check server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	if s.logger != nil {
		s.logger.Info("Health check server shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles the /health endpoint - basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
		Commit:    s.commit,
	})
}

// handleLive handles the /live endpoint - kubernetes liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: s.serviceName,
	})
}

// handleReady handles the /ready endpoint - runs every registered checker.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	// Check if manually marked as not ready
	if !s.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	for _, checker := range s.checkers {
		if err := checker.Check(ctx); err != nil {
			allHealthy = false
			checks[checker.Name()] = fmt.Sprintf("error: %v", err)
		} else {
			checks[checker.Name()] = "ok"
		}
	}

	response := ReadyResponse{
		Service:  s.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}

	if allHealthy {
		response.Status = "ok"
		writeJSON(w, http.StatusOK, response)
		return
	}
	response.Status = "not_ready"
	writeJSON(w, http.StatusServiceUnavailable, response)
}

// handleTrigger handles POST /recompute/{dataset}
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")

	_, err := s.trigger.TriggerNow(r.Context(), dataset)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, TriggerResponse{Status: "started", Dataset: dataset})
	case errors.Is(err, models.ErrRecomputeInProgress):
		writeJSON(w, http.StatusConflict, TriggerResponse{Status: "in_progress", Dataset: dataset, Error: err.Error()})
	case errors.Is(err, models.ErrUnknownDataset):
		writeJSON(w, http.StatusNotFound, TriggerResponse{Status: "unknown", Dataset: dataset, Error: err.Error()})
	default:
		if s.logger != nil {
			s.logger.WithError(err).WithField("dataset", dataset).Error("Recompute trigger failed")
		}
		writeJSON(w, http.StatusInternalServerError, TriggerResponse{Status: "error", Dataset: dataset, Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
