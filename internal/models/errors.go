package models

import "errors"

// Custom errors
var (
	ErrInvalidRequest      = errors.New("invalid suggestion request")
	ErrTooManySelections   = errors.New("too many selections for one request")
	ErrArtifactNotFound    = errors.New("artifact not found")
	ErrRecomputeInProgress = errors.New("recompute already in progress")
	ErrGenerationFailed    = errors.New("artifact generation failed")
	ErrPublishFailed       = errors.New("canonical publish failed")
	ErrUnknownDataset      = errors.New("unknown dataset")
)
