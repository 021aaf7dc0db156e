package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// PublishLogger records the recompute and publish audit trail.
type PublishLogger struct {
	*logrus.Entry
}

// NewPublishLogger creates a new publish logger.
func NewPublishLogger(baseLogger *logrus.Logger) *PublishLogger {
	return &PublishLogger{
		Entry: baseLogger.WithField("component", "publish"),
	}
}

// LogRecomputeStarted logs the start of a recompute run.
func (pl *PublishLogger) LogRecomputeStarted(runID, dataset string) {
	pl.WithFields(logrus.Fields{
		"run_id":  runID,
		"dataset": dataset,
	}).Info("Recompute started")
}

// LogGenerationFailed logs a failed generation step.
func (pl *PublishLogger) LogGenerationFailed(runID, dataset string, err error) {
	pl.WithFields(logrus.Fields{
		"run_id":  runID,
		"dataset": dataset,
	}).WithError(err).Error("Artifact generation failed")
}

// LogNothingToPublish logs a run that produced no artifact.
func (pl *PublishLogger) LogNothingToPublish(runID, dataset string) {
	pl.WithFields(logrus.Fields{
		"run_id":  runID,
		"dataset": dataset,
	}).Info("No artifact to publish")
}

// LogPublished logs a canonical pointer update.
func (pl *PublishLogger) LogPublished(runID, dataset, artifactName, canonical, mechanism string) {
	pl.WithFields(logrus.Fields{
		"run_id":    runID,
		"dataset":   dataset,
		"artifact":  artifactName,
		"canonical": canonical,
		"mechanism": mechanism,
	}).Info("Canonical pointer published")
}

// LogPublishFailed logs a publish that could not complete.
func (pl *PublishLogger) LogPublishFailed(runID, dataset, canonical string, err error) {
	pl.WithFields(logrus.Fields{
		"run_id":    runID,
		"dataset":   dataset,
		"canonical": canonical,
	}).WithError(err).Error("Canonical publish failed")
}

// LogRecomputeFinished logs the final state of a run.
func (pl *PublishLogger) LogRecomputeFinished(runID, dataset, state string, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"run_id":      runID,
		"dataset":     dataset,
		"state":       state,
		"duration_ms": duration.Milliseconds(),
	}).Info("Recompute finished")
}

// LogTriggerSkipped logs a trigger rejected because a run is in progress.
func (pl *PublishLogger) LogTriggerSkipped(dataset, source string) {
	pl.WithFields(logrus.Fields{
		"dataset": dataset,
		"source":  source,
	}).Warn("Recompute already running, trigger skipped")
}
