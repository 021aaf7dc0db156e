package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/clever-parlay/internal/artifact"
	"github.com/yourusername/clever-parlay/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestCoordinator(t *testing.T, dir string, generator Generator, publisher *Publisher) *Coordinator {
	t.Helper()
	coordinator, err := NewCoordinator(
		CoordinatorConfig{Dataset: "projections", Extension: "csv"},
		artifact.NewStore(dir),
		generator,
		publisher,
		quietLogger(),
	)
	require.NoError(t, err)
	return coordinator
}

func writingGenerator(dir string, names ...string) GeneratorFunc {
	return func(ctx context.Context) error {
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestNewCoordinatorValidation(t *testing.T) {
	store := artifact.NewStore(t.TempDir())
	noop := GeneratorFunc(func(context.Context) error { return nil })

	_, err := NewCoordinator(CoordinatorConfig{Extension: "csv"}, store, noop, nil, nil)
	assert.Error(t, err)

	_, err = NewCoordinator(CoordinatorConfig{Dataset: "projections"}, store, noop, nil, nil)
	assert.Error(t, err)

	_, err = NewCoordinator(CoordinatorConfig{Dataset: "projections", Extension: "csv"}, store, nil, nil, nil)
	assert.Error(t, err)
}

func TestRecomputePublishesNewestArtifact(t *testing.T) {
	dir := t.TempDir()
	generator := writingGenerator(dir, "projections_20251026_090000.csv", "projections_20251026_120000.csv")
	coordinator := newTestCoordinator(t, dir, generator, nil)

	assert.Equal(t, StateIdle, coordinator.State())
	assert.True(t, coordinator.Recompute(context.Background()))
	assert.Equal(t, StatePublished, coordinator.State())

	target, err := os.Readlink(filepath.Join(dir, "projections_latest.csv"))
	require.NoError(t, err)
	assert.Equal(t, "projections_20251026_120000.csv", target)

	report := coordinator.LastReport()
	require.NotNil(t, report)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, MechanismSymlink, report.Mechanism)
	assert.Equal(t, "projections_latest.csv", report.Canonical)
	require.NotNil(t, report.Artifact)
	assert.Equal(t, "projections_20251026_120000.csv", report.Artifact.Name)
}

func TestRecomputeGenerationFailure(t *testing.T) {
	dir := t.TempDir()
	generator := GeneratorFunc(func(context.Context) error {
		return errors.New("exit status 1")
	})
	coordinator := newTestCoordinator(t, dir, generator, nil)

	assert.False(t, coordinator.Recompute(context.Background()))
	assert.Equal(t, StateFailed, coordinator.State())

	report, err := coordinator.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrGenerationFailed)
	assert.Equal(t, StateFailed, report.State)
	assert.Contains(t, report.Error, "exit status 1")

	_, statErr := os.Lstat(filepath.Join(dir, "projections_latest.csv"))
	assert.True(t, os.IsNotExist(statErr), "nothing may be published after a failed generation")
}

func TestRecomputeFailureKeepsPreviousPointer(t *testing.T) {
	dir := t.TempDir()
	coordinator := newTestCoordinator(t, dir, writingGenerator(dir, "projections_20251026_120000.csv"), nil)
	require.True(t, coordinator.Recompute(context.Background()))

	failing := newTestCoordinator(t, dir, GeneratorFunc(func(context.Context) error {
		return errors.New("boom")
	}), nil)
	assert.False(t, failing.Recompute(context.Background()))

	target, err := os.Readlink(filepath.Join(dir, "projections_latest.csv"))
	require.NoError(t, err)
	assert.Equal(t, "projections_20251026_120000.csv", target)
}

func TestRecomputeEmptyGenerationIsSuccess(t *testing.T) {
	dir := t.TempDir()
	coordinator := newTestCoordinator(t, dir, GeneratorFunc(func(context.Context) error { return nil }), nil)

	report, err := coordinator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatePublished, report.State)
	assert.Equal(t, MechanismNone, report.Mechanism)
	assert.Nil(t, report.Artifact)

	_, statErr := os.Lstat(filepath.Join(dir, "projections_latest.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRecomputeIdempotentWithoutNewArtifacts(t *testing.T) {
	dir := t.TempDir()
	calls := 0
	generator := GeneratorFunc(func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return writingGenerator(dir, "projections_20251026_120000.csv")(ctx)
		}
		return nil
	})
	coordinator := newTestCoordinator(t, dir, generator, nil)

	first, err := coordinator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MechanismSymlink, first.Mechanism)

	second, err := coordinator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MechanismUnchanged, second.Mechanism)

	target, err := os.Readlink(filepath.Join(dir, "projections_latest.csv"))
	require.NoError(t, err)
	assert.Equal(t, "projections_20251026_120000.csv", target)
}

func TestRecomputeRepointsAfterNewArtifact(t *testing.T) {
	dir := t.TempDir()
	batches := [][]string{
		{"projections_20251026_120000.csv"},
		{"projections_20251027_080000.csv"},
	}
	calls := 0
	generator := GeneratorFunc(func(ctx context.Context) error {
		batch := batches[calls]
		calls++
		return writingGenerator(dir, batch...)(ctx)
	})
	coordinator := newTestCoordinator(t, dir, generator, nil)

	require.True(t, coordinator.Recompute(context.Background()))
	require.True(t, coordinator.Recompute(context.Background()))

	target, err := os.Readlink(filepath.Join(dir, "projections_latest.csv"))
	require.NoError(t, err)
	assert.Equal(t, "projections_20251027_080000.csv", target)
}

func TestRecomputeCopyFallback(t *testing.T) {
	dir := t.TempDir()
	publisher := NewPublisher(ModeSymlink, quietLogger())
	publisher.symlink = failingSymlink
	coordinator := newTestCoordinator(t, dir, writingGenerator(dir, "projections_20251026_120000.csv"), publisher)

	report, err := coordinator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MechanismCopy, report.Mechanism)
	assert.Equal(t, "projections_20251026_120000.csv", readCanonical(t, dir, "projections_latest.csv"))
}

func TestRecomputePublishFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	// a non-empty directory squatting on the canonical name defeats both mechanisms
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "projections_latest.csv"), 0o755))
	writeArtifact(t, filepath.Join(dir, "projections_latest.csv"), "keep", "x")

	coordinator := newTestCoordinator(t, dir, writingGenerator(dir, "projections_20251026_120000.csv"), nil)

	report, err := coordinator.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrPublishFailed)
	assert.Equal(t, StateFailed, report.State)
	assert.False(t, coordinator.Recompute(context.Background()))
}

func TestCoordinatorCanonicalName(t *testing.T) {
	coordinator := newTestCoordinator(t, t.TempDir(), GeneratorFunc(func(context.Context) error { return nil }), nil)
	assert.Equal(t, "projections", coordinator.Dataset())
	assert.Equal(t, "projections_latest.csv", coordinator.CanonicalName())
	assert.Nil(t, coordinator.LastReport())
}
