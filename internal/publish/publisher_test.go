package publish

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func readCanonical(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func failingSymlink(oldname, newname string) error {
	return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: errors.New("operation not supported")}
}

func TestPublisherSymlink(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "projections_20251026_120000.csv", "a,b\n1,2\n")

	publisher := NewPublisher(ModeSymlink, nil)
	mechanism, err := publisher.Publish(dir, "projections_20251026_120000.csv", "projections_latest.csv")
	require.NoError(t, err)
	assert.Equal(t, MechanismSymlink, mechanism)

	target, err := os.Readlink(filepath.Join(dir, "projections_latest.csv"))
	require.NoError(t, err)
	assert.Equal(t, "projections_20251026_120000.csv", target)
	assert.Equal(t, "a,b\n1,2\n", readCanonical(t, dir, "projections_latest.csv"))
}

func TestPublisherRepointsToNewerArtifact(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "projections_20251026_120000.csv", "old")
	writeArtifact(t, dir, "projections_20251027_120000.csv", "new")

	publisher := NewPublisher(ModeSymlink, nil)
	_, err := publisher.Publish(dir, "projections_20251026_120000.csv", "projections_latest.csv")
	require.NoError(t, err)
	_, err = publisher.Publish(dir, "projections_20251027_120000.csv", "projections_latest.csv")
	require.NoError(t, err)

	assert.Equal(t, "new", readCanonical(t, dir, "projections_latest.csv"))
	assertNoTempFiles(t, dir)
}

func TestPublisherUnchangedTarget(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "projections_20251026_120000.csv", "data")

	publisher := NewPublisher(ModeSymlink, nil)
	_, err := publisher.Publish(dir, "projections_20251026_120000.csv", "projections_latest.csv")
	require.NoError(t, err)

	mechanism, err := publisher.Publish(dir, "projections_20251026_120000.csv", "projections_latest.csv")
	require.NoError(t, err)
	assert.Equal(t, MechanismUnchanged, mechanism)
}

func TestPublisherReplacesCopiedFileWithLink(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "projections_20251026_120000.csv", "data")
	writeArtifact(t, dir, "projections_latest.csv", "stale copy")

	publisher := NewPublisher(ModeSymlink, nil)
	mechanism, err := publisher.Publish(dir, "projections_20251026_120000.csv", "projections_latest.csv")
	require.NoError(t, err)
	assert.Equal(t, MechanismSymlink, mechanism)
	assert.Equal(t, "data", readCanonical(t, dir, "projections_latest.csv"))
}

func TestPublisherFallsBackToCopy(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "projections_20251026_120000.csv", "copied bytes")

	publisher := NewPublisher(ModeSymlink, nil)
	publisher.symlink = failingSymlink

	mechanism, err := publisher.Publish(dir, "projections_20251026_120000.csv", "projections_latest.csv")
	require.NoError(t, err)
	assert.Equal(t, MechanismCopy, mechanism)

	info, err := os.Lstat(filepath.Join(dir, "projections_latest.csv"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
	assert.Equal(t, "copied bytes", readCanonical(t, dir, "projections_latest.csv"))
	assertNoTempFiles(t, dir)
}

func TestPublisherCopyMode(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "projections_20251026_120000.csv", "one")
	writeArtifact(t, dir, "projections_20251027_120000.csv", "two")

	publisher := NewPublisher(ModeCopy, nil)
	assert.Equal(t, ModeCopy, publisher.Mode())

	_, err := publisher.Publish(dir, "projections_20251026_120000.csv", "projections_latest.csv")
	require.NoError(t, err)
	mechanism, err := publisher.Publish(dir, "projections_20251027_120000.csv", "projections_latest.csv")
	require.NoError(t, err)

	assert.Equal(t, MechanismCopy, mechanism)
	assert.Equal(t, "two", readCanonical(t, dir, "projections_latest.csv"))
}

func TestPublisherCopyFailureIsHard(t *testing.T) {
	dir := t.TempDir()

	publisher := NewPublisher(ModeSymlink, nil)
	publisher.symlink = failingSymlink

	mechanism, err := publisher.Publish(dir, "projections_missing.csv", "projections_latest.csv")
	assert.Error(t, err)
	assert.Equal(t, MechanismNone, mechanism)

	_, statErr := os.Lstat(filepath.Join(dir, "projections_latest.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewPublisherDefaultsToSymlink(t *testing.T) {
	assert.Equal(t, ModeSymlink, NewPublisher("", nil).Mode())
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp-")
	}
}
