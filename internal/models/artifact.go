package models

import "time"

// ArtifactTimestampLayout is the stamp embedded in artifact file names.
// Lexicographic order of stamps in this layout is chronological order.
const ArtifactTimestampLayout = "20060102_150405"

// CanonicalStamp is the stamp reserved for canonical pointers
const CanonicalStamp = "latest"

// Artifact is an immutable generated file named <dataset>_<stamp>.<ext>
type Artifact struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Dataset string `json:"dataset"`
	Stamp   string `json:"stamp"`
	Ext     string `json:"ext"`
}

// IsCanonical reports whether the artifact is a canonical pointer
func (a Artifact) IsCanonical() bool {
	return a.Stamp == CanonicalStamp
}

// Timestamp parses the stamp; the second return is false for explicit suffixes
func (a Artifact) Timestamp() (time.Time, bool) {
	t, err := time.ParseInLocation(ArtifactTimestampLayout, a.Stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
