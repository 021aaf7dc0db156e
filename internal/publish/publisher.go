package publish

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/clever-parlay/internal/artifact"
	"github.com/yourusername/clever-parlay/internal/metrics"
)

// Mode selects how the canonical pointer is published
type Mode string

// Publish modes
const (
	ModeSymlink Mode = "symlink"
	ModeCopy    Mode = "copy"
)

// Mechanism records how a publish was actually carried out
type Mechanism string

// Publish mechanisms
const (
	MechanismNone      Mechanism = "none"
	MechanismUnchanged Mechanism = "unchanged"
	MechanismSymlink   Mechanism = "symlink"
	MechanismCopy      Mechanism = "copy"
)

// Publisher repoints a canonical name at a new artifact.
//
// In symlink mode a link to the artifact is created under a temporary name
// and renamed over the canonical name, so readers always resolve either the
// previous or the new artifact. When links are not supported it falls back
// to copying the artifact's bytes into a temp file renamed over the
// canonical name. The copy is still swapped in whole, but the canonical file
// is then a duplicate rather than a reference: it does not follow the
// artifact and costs a full copy per publish.
type Publisher struct {
	mode    Mode
	logger  *logrus.Logger
	symlink func(oldname, newname string) error
}

// NewPublisher creates a publisher; an empty mode means symlink
func NewPublisher(mode Mode, logger *logrus.Logger) *Publisher {
	if mode == "" {
		mode = ModeSymlink
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Publisher{
		mode:    mode,
		logger:  logger,
		symlink: os.Symlink,
	}
}

// Mode returns the configured publish mode
func (p *Publisher) Mode() Mode {
	return p.mode
}

// Publish points dir/canonicalName at dir/targetName
func (p *Publisher) Publish(dir, targetName, canonicalName string) (Mechanism, error) {
	canonical := filepath.Join(dir, canonicalName)

	if p.mode == ModeSymlink {
		if current, err := os.Readlink(canonical); err == nil && current == targetName {
			return MechanismUnchanged, nil
		}

		err := p.swapSymlink(dir, targetName, canonical)
		if err == nil {
			return MechanismSymlink, nil
		}

		metrics.RecordPublishFallback()
		p.logger.WithFields(logrus.Fields{
			"canonical": canonicalName,
			"target":    targetName,
		}).WithError(err).Warn("Symlink publish unavailable, falling back to copy")
	}

	if err := copyInto(filepath.Join(dir, targetName), canonical); err != nil {
		return MechanismNone, fmt.Errorf("copy publish of %s failed: %w", canonicalName, err)
	}
	return MechanismCopy, nil
}

func (p *Publisher) swapSymlink(dir, targetName, canonical string) error {
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(canonical), uuid.NewString()))

	if err := p.symlink(targetName, tmp); err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}
	if err := os.Rename(tmp, canonical); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to swap link into place: %w", err)
	}
	return nil
}

func copyInto(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat artifact: %w", err)
	}
	return artifact.WriteAtomic(dst, in, info.Mode().Perm())
}
