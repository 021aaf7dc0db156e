package publish

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/clever-parlay/internal/artifact"
	"github.com/yourusername/clever-parlay/internal/logger"
	"github.com/yourusername/clever-parlay/internal/metrics"
	"github.com/yourusername/clever-parlay/internal/models"
)

// State is the coordinator's lifecycle position
type State string

// Coordinator states
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePublished State = "published"
	StateFailed    State = "failed"
)

// RunReport describes one recompute cycle
type RunReport struct {
	RunID      string           `json:"run_id"`
	Dataset    string           `json:"dataset"`
	State      State            `json:"state"`
	Artifact   *models.Artifact `json:"artifact,omitempty"`
	Canonical  string           `json:"canonical"`
	Mechanism  Mechanism        `json:"mechanism"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Error      string           `json:"error,omitempty"`
}

// Duration returns how long the run took
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// CoordinatorConfig names the dataset a coordinator maintains
type CoordinatorConfig struct {
	Dataset   string
	Extension string
}

// Coordinator regenerates one dataset and republishes its canonical pointer.
//
// It does not serialize runs itself: whoever triggers Recompute must ensure
// at most one run per dataset at a time (see the scheduler package).
// The mutex only guards the observable state.
type Coordinator struct {
	dataset   string
	ext       string
	store     *artifact.Store
	generator Generator
	publisher *Publisher
	logger    *logrus.Logger
	audit     *logger.PublishLogger

	mu    sync.RWMutex
	state State
	last  *RunReport
}

// NewCoordinator creates a coordinator for one dataset
func NewCoordinator(cfg CoordinatorConfig, store *artifact.Store, generator Generator, publisher *Publisher, log *logrus.Logger) (*Coordinator, error) {
	if cfg.Dataset == "" {
		return nil, fmt.Errorf("dataset is required")
	}
	if cfg.Extension == "" {
		return nil, fmt.Errorf("artifact extension is required")
	}
	if store == nil || generator == nil {
		return nil, fmt.Errorf("artifact store and generator are required")
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	if publisher == nil {
		publisher = NewPublisher(ModeSymlink, log)
	}

	return &Coordinator{
		dataset:   cfg.Dataset,
		ext:       cfg.Extension,
		store:     store,
		generator: generator,
		publisher: publisher,
		logger:    log,
		audit:     logger.NewPublishLogger(log),
		state:     StateIdle,
	}, nil
}

// Dataset returns the dataset name
func (c *Coordinator) Dataset() string {
	return c.dataset
}

// CanonicalName returns the canonical pointer file name
func (c *Coordinator) CanonicalName() string {
	return artifact.CanonicalName(c.dataset, c.ext)
}

// State returns the current state
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastReport returns the report of the most recent finished run, if any
func (c *Coordinator) LastReport() *RunReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil
	}
	report := *c.last
	return &report
}

// Recompute runs one cycle and reports success. Failures are logged, never
// raised, so an interval trigger keeps firing after a bad run.
func (c *Coordinator) Recompute(ctx context.Context) bool {
	report, err := c.Run(ctx)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"run_id":  report.RunID,
			"dataset": c.dataset,
		}).WithError(err).Error("Recompute failed")
		return false
	}
	return true
}

// Run generates new artifacts and republishes the newest one.
// An empty generation run is a successful no-op.
func (c *Coordinator) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		Dataset:   c.dataset,
		Canonical: c.CanonicalName(),
		Mechanism: MechanismNone,
		StartedAt: time.Now(),
	}
	c.setState(StateRunning)
	c.audit.LogRecomputeStarted(report.RunID, c.dataset)

	if err := c.generator.Generate(ctx); err != nil {
		err = fmt.Errorf("%w: %v", models.ErrGenerationFailed, err)
		c.audit.LogGenerationFailed(report.RunID, c.dataset, err)
		return c.fail(report, err)
	}

	latest, err := c.store.LatestFor(c.dataset, c.ext)
	if err != nil {
		return c.fail(report, fmt.Errorf("failed to resolve latest %s artifact: %w", c.dataset, err))
	}
	if latest == nil {
		c.audit.LogNothingToPublish(report.RunID, c.dataset)
		return c.finish(report), nil
	}
	report.Artifact = latest

	mechanism, err := c.publisher.Publish(c.store.Dir(), latest.Name, report.Canonical)
	report.Mechanism = mechanism
	if err != nil {
		err = fmt.Errorf("%w: %v", models.ErrPublishFailed, err)
		c.audit.LogPublishFailed(report.RunID, c.dataset, report.Canonical, err)
		return c.fail(report, err)
	}

	metrics.RecordPublish(c.dataset, string(mechanism))
	if ts, ok := latest.Timestamp(); ok {
		metrics.UpdateLatestArtifactTimestamp(c.dataset, ts)
	}
	c.audit.LogPublished(report.RunID, c.dataset, latest.Name, report.Canonical, string(mechanism))
	return c.finish(report), nil
}

func (c *Coordinator) finish(report *RunReport) *RunReport {
	report.State = StatePublished
	report.FinishedAt = time.Now()
	c.record(report)
	metrics.RecordRecompute(c.dataset, string(StatePublished), report.Duration().Seconds())
	c.audit.LogRecomputeFinished(report.RunID, c.dataset, string(report.State), report.Duration())
	return report
}

func (c *Coordinator) fail(report *RunReport, err error) (*RunReport, error) {
	report.State = StateFailed
	report.Error = err.Error()
	report.FinishedAt = time.Now()
	c.record(report)
	metrics.RecordRecompute(c.dataset, string(StateFailed), report.Duration().Seconds())
	c.audit.LogRecomputeFinished(report.RunID, c.dataset, string(report.State), report.Duration())
	return report, err
}

func (c *Coordinator) setState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

func (c *Coordinator) record(report *RunReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = report.State
	saved := *report
	c.last = &saved
}
