// Package scheduler fires recompute cycles on an interval or on demand and
// keeps at most one cycle per dataset in flight.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/clever-parlay/internal/logger"
	"github.com/yourusername/clever-parlay/internal/metrics"
	"github.com/yourusername/clever-parlay/internal/models"
)

// Trigger sources
const (
	SourceSchedule = "schedule"
	SourceManual   = "manual"
)

// MinInterval is the shortest accepted recompute interval
const MinInterval = 5 * time.Second

// Job is one dataset's recompute cycle
type Job interface {
	Dataset() string
	Recompute(ctx context.Context) bool
}

// guard serializes runs of one dataset
type guard struct {
	job     Job
	running atomic.Bool
}

func (g *guard) acquire() bool {
	return g.running.CompareAndSwap(false, true)
}

func (g *guard) release() {
	g.running.Store(false)
}

// Scheduler manages recompute triggers
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Logger
	audit           *logger.PublishLogger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	guards          map[string]*guard
	runTimeout      time.Duration
	gracefulTimeout time.Duration
	inflight        sync.WaitGroup
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRunTimeout bounds each recompute cycle
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.runTimeout = d
	}
}

// WithGracefulTimeout bounds how long Stop waits for running cycles
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.gracefulTimeout = d
	}
}

// NewScheduler creates a new scheduler
func NewScheduler(log *logrus.Logger, opts ...Option) *Scheduler {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	s := &Scheduler{
		logger:          log,
		audit:           logger.NewPublishLogger(log),
		jobIDs:          make([]cron.EntryID, 0),
		guards:          make(map[string]*guard),
		runTimeout:      30 * time.Minute,
		gracefulTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.PrintfLogger(log))),
	)
	return s
}

// Register makes a job available to TriggerNow without scheduling it
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.register(job)
}

func (s *Scheduler) register(job Job) *guard {
	if g, ok := s.guards[job.Dataset()]; ok {
		return g
	}
	g := &guard{job: job}
	s.guards[job.Dataset()] = g
	return g
}

// ScheduleRecompute schedules a job with a cron expression or an @every interval
func (s *Scheduler) ScheduleRecompute(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	g := s.register(job)
	entryID, err := s.cron.AddFunc(spec, func() {
		s.execute(context.Background(), g, SourceSchedule)
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"dataset": job.Dataset(),
		"spec":    spec,
	}).Info("Scheduled recompute job")

	return nil
}

// ScheduleInterval schedules a job every interval, never more often than MinInterval
func (s *Scheduler) ScheduleInterval(interval time.Duration, job Job) error {
	if interval < MinInterval {
		interval = MinInterval
	}
	return s.ScheduleRecompute("@every "+interval.String(), job)
}

// TriggerNow starts a cycle for dataset in the background. The returned
// channel receives the cycle's outcome. It fails with ErrRecomputeInProgress
// when that dataset is already running.
func (s *Scheduler) TriggerNow(ctx context.Context, dataset string) (<-chan bool, error) {
	s.mu.RLock()
	g, ok := s.guards[dataset]
	if !ok {
		s.mu.RUnlock()
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownDataset, dataset)
	}
	if !g.acquire() {
		s.mu.RUnlock()
		s.skipped(dataset, SourceManual)
		return nil, fmt.Errorf("%w: %s", models.ErrRecomputeInProgress, dataset)
	}
	s.inflight.Add(1)
	s.mu.RUnlock()

	done := make(chan bool, 1)
	go func() {
		defer s.inflight.Done()
		defer close(done)
		done <- s.run(context.WithoutCancel(ctx), g, SourceManual)
	}()

	return done, nil
}

// execute runs a scheduled cycle unless one is already in flight
func (s *Scheduler) execute(ctx context.Context, g *guard, source string) {
	if !g.acquire() {
		s.skipped(g.job.Dataset(), source)
		return
	}
	s.inflight.Add(1)
	defer s.inflight.Done()
	s.run(ctx, g, source)
}

// run executes an acquired cycle and releases the guard, even on panic
func (s *Scheduler) run(ctx context.Context, g *guard, source string) (ok bool) {
	defer g.release()
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logrus.Fields{
				"dataset": g.job.Dataset(),
				"source":  source,
				"panic":   r,
			}).Error("Recompute job panicked")
			ok = false
		}
	}()

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	return g.job.Recompute(ctx)
}

func (s *Scheduler) skipped(dataset, source string) {
	metrics.RecordTriggerSkipped(dataset, source)
	s.audit.LogTriggerSkipped(dataset, source)
}

// InProgress reports whether a cycle is running for dataset
func (s *Scheduler) InProgress(dataset string) bool {
	s.mu.RLock()
	g, ok := s.guards[dataset]
	s.mu.RUnlock()
	return ok && g.running.Load()
}

// Datasets returns the registered dataset names in order
func (s *Scheduler) Datasets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.guards))
	for name := range s.guards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops firing new cycles and waits for running ones up to the
// graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	<-s.cron.Stop().Done()
	s.isRunning = false

	drained := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("timed out after %s waiting for running recompute jobs", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(jobID cron.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot remove job while scheduler is running")
	}

	s.cron.Remove(jobID)
	for i, id := range s.jobIDs {
		if id == jobID {
			s.jobIDs = append(s.jobIDs[:i], s.jobIDs[i+1:]...)
			break
		}
	}
	s.logger.WithField("job_id", jobID).Info("Removed job")

	return nil
}
