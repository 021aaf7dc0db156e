// Package artifact stores and resolves timestamped output files.
//
// Artifacts are named <dataset>_<YYYYMMDD_HHMMSS|suffix>.<ext>. The stamp
// layout sorts lexicographically in chronological order, so the newest
// artifact is the last name in sorted order.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/clever-parlay/internal/models"
)

var timestampedName = regexp.MustCompile(`^(.+)_(\d{8}_\d{6})\.([^.]+)$`)

// Store resolves and writes artifacts inside one directory
type Store struct {
	dir    string
	now    func() time.Time
	logger *logrus.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the wall clock used to stamp saved artifacts
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the store logger
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a store rooted at dir
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir: dir,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.New()
		s.logger.SetOutput(os.Stderr)
		s.logger.SetLevel(logrus.WarnLevel)
	}
	return s
}

// Dir returns the artifact directory
func (s *Store) Dir() string {
	return s.dir
}

// Path joins name onto the artifact directory
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// CanonicalName returns the canonical pointer name for a dataset
func CanonicalName(dataset, ext string) string {
	return fmt.Sprintf("%s_%s.%s", dataset, models.CanonicalStamp, strings.TrimPrefix(ext, "."))
}

// Pattern returns the glob matching every artifact of a dataset
func Pattern(dataset, ext string) string {
	return fmt.Sprintf("%s_*.%s", dataset, strings.TrimPrefix(ext, "."))
}

// Latest returns the lexicographically greatest artifact whose name matches
// the glob pattern. Canonical pointers are never returned. It returns nil
// without error when nothing matches or the directory does not exist yet.
func (s *Store) Latest(pattern string) (*models.Artifact, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid artifact pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list artifact directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if matched, _ := filepath.Match(pattern, name); !matched {
			continue
		}
		if ParseName(name).IsCanonical() {
			continue
		}
		names = append(names, name)
	}

	if len(names) == 0 {
		return nil, nil
	}

	sort.Strings(names)
	latest := ParseName(names[len(names)-1])
	latest.Path = s.Path(latest.Name)
	return &latest, nil
}

// LatestFor returns the newest artifact of a dataset
func (s *Store) LatestFor(dataset, ext string) (*models.Artifact, error) {
	return s.Latest(Pattern(dataset, ext))
}

// Save JSON-encodes data into <name>_<stamp>.json and returns its path.
// The stamp is the current time at second resolution unless suffix is set,
// so two saves of one name within the same second replace each other.
// The file appears under its final name in a single rename.
func (s *Store) Save(name string, data any, suffix string) (string, error) {
	stamp := suffix
	if stamp == "" {
		stamp = s.now().Format(models.ArtifactTimestampLayout)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal artifact %s: %w", name, err)
	}

	path := s.Path(fmt.Sprintf("%s_%s.json", name, stamp))
	if err := WriteFileAtomic(path, payload, 0o644); err != nil {
		return "", err
	}

	s.logger.WithFields(logrus.Fields{
		"artifact": filepath.Base(path),
		"bytes":    len(payload),
	}).Debug("Artifact saved")

	return path, nil
}

// Load decodes a JSON artifact into v. An existing path is read directly;
// anything else is treated as a glob and the latest match is read.
// It returns false without error when nothing matches.
func (s *Store) Load(pathOrPattern string, v any) (bool, error) {
	path := pathOrPattern
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		latest, err := s.Latest(filepath.Base(pathOrPattern))
		if err != nil {
			return false, err
		}
		if latest == nil {
			return false, nil
		}
		path = latest.Path
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode artifact %s: %w", path, err)
	}
	return true, nil
}

// ParseName splits an artifact file name into dataset, stamp and extension
func ParseName(name string) models.Artifact {
	a := models.Artifact{Name: name}

	if m := timestampedName.FindStringSubmatch(name); m != nil {
		a.Dataset, a.Stamp, a.Ext = m[1], m[2], m[3]
		return a
	}

	base := name
	if dot := strings.LastIndex(name, "."); dot > 0 {
		base, a.Ext = name[:dot], name[dot+1:]
	}
	if us := strings.LastIndex(base, "_"); us > 0 {
		a.Dataset, a.Stamp = base[:us], base[us+1:]
	} else {
		a.Dataset = base
	}
	return a
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place, so readers of path see either the old or the new content
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteAtomic(path, bytes.NewReader(data), perm)
}

// WriteAtomic streams r into a temp file next to path and renames it into place
func WriteAtomic(path string, r io.Reader, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
