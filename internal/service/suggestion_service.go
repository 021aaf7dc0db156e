// Package service applies request defaults, operator limits and memoization
// around the parlay ranking engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/clever-parlay/internal/artifact"
	"github.com/yourusername/clever-parlay/internal/logger"
	"github.com/yourusername/clever-parlay/internal/metrics"
	"github.com/yourusername/clever-parlay/internal/models"
	"github.com/yourusername/clever-parlay/internal/parlay"
)

// Suggestion outcomes recorded in metrics
const (
	OutcomeRanked   = "ranked"
	OutcomeCached   = "cached"
	OutcomeRejected = "rejected"
)

// ResultArtifactName is the artifact name used by SaveResult
const ResultArtifactName = "parlays"

// SuggestionConfig holds the operator limits for suggestion requests
type SuggestionConfig struct {
	DefaultMaxLegs int
	DefaultTopK    int
	MaxLegsLimit   int // 0 disables the clamp
	MaxSelections  int // 0 disables the limit
	CacheTTL       time.Duration
	CacheMaxSize   int
}

// DefaultSuggestionConfig returns the default limits
func DefaultSuggestionConfig() SuggestionConfig {
	return SuggestionConfig{
		DefaultMaxLegs: models.DefaultMaxLegs,
		DefaultTopK:    models.DefaultTopK,
		MaxLegsLimit:   6,
		MaxSelections:  40,
		CacheTTL:       5 * time.Minute,
		CacheMaxSize:   1000,
	}
}

// SuggestResponse carries a ranked result and how it was produced
type SuggestResponse struct {
	RequestID string              `json:"request_id"`
	Result    models.RankedResult `json:"result"`
	MaxLegs   int                 `json:"max_legs"`
	TopK      int                 `json:"top_k"`
	Cached    bool                `json:"cached"`
}

// SuggestionService ranks parlay suggestions for caller requests
type SuggestionService struct {
	cfg      SuggestionConfig
	validate *validator.Validate
	cache    *SuggestionCache
	store    *artifact.Store
	logger   *logrus.Logger
	audit    *logger.SuggestionLogger
}

// NewSuggestionService creates a suggestion service. The store is optional
// and only needed by SaveResult; a zero CacheTTL disables memoization.
func NewSuggestionService(cfg SuggestionConfig, store *artifact.Store, log *logrus.Logger) *SuggestionService {
	if cfg.DefaultMaxLegs == 0 {
		cfg.DefaultMaxLegs = models.DefaultMaxLegs
	}
	if cfg.DefaultTopK == 0 {
		cfg.DefaultTopK = models.DefaultTopK
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	var memo *SuggestionCache
	if cfg.CacheTTL > 0 {
		memo = NewSuggestionCache(cfg.CacheTTL, cfg.CacheMaxSize)
	}

	return &SuggestionService{
		cfg:      cfg,
		validate: validator.New(),
		cache:    memo,
		store:    store,
		logger:   log,
		audit:    logger.NewSuggestionLogger(log),
	}
}

// Cache returns the memo cache, or nil when memoization is disabled
func (s *SuggestionService) Cache() *SuggestionCache {
	return s.cache
}

// Suggest validates the request, applies defaults and limits, and ranks it
func (s *SuggestionService) Suggest(ctx context.Context, req models.SuggestRequest) (*SuggestResponse, error) {
	started := time.Now()
	requestID := uuid.NewString()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.validate.Struct(req); err != nil {
		return nil, s.reject(requestID, len(req.Selections), started, fmt.Errorf("%w: %v", models.ErrInvalidRequest, formatValidationError(err)))
	}
	if s.cfg.MaxSelections > 0 && len(req.Selections) > s.cfg.MaxSelections {
		return nil, s.reject(requestID, len(req.Selections), started,
			fmt.Errorf("%w: %d selections, limit is %d", models.ErrTooManySelections, len(req.Selections), s.cfg.MaxSelections))
	}

	maxLegs := s.cfg.DefaultMaxLegs
	if req.MaxLegs != nil {
		maxLegs = *req.MaxLegs
	}
	if s.cfg.MaxLegsLimit > 0 && maxLegs > s.cfg.MaxLegsLimit {
		s.audit.LogLegsClamped(requestID, maxLegs, s.cfg.MaxLegsLimit)
		maxLegs = s.cfg.MaxLegsLimit
	}
	topK := s.cfg.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	resp := &SuggestResponse{
		RequestID: requestID,
		MaxLegs:   maxLegs,
		TopK:      topK,
	}

	key := cacheKey{Selections: req.Selections, MaxLegs: maxLegs, TopK: topK}
	fingerprint, err := key.Fingerprint()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to fingerprint suggestion request, skipping cache")
	}

	if s.cache != nil && fingerprint != "" {
		if cached, ok := s.cache.Get(fingerprint); ok {
			resp.Result = cached
			resp.Cached = true
			s.finish(resp, len(req.Selections), 0, started, OutcomeCached)
			return resp, nil
		}
	}

	resp.Result = parlay.Suggest(req.Selections, maxLegs, topK)
	enumerated := parlay.CountCombinations(len(req.Selections), maxLegs)
	metrics.RecordCombinationsEnumerated(enumerated)

	if s.cache != nil && fingerprint != "" {
		s.cache.Set(fingerprint, resp.Result)
	}

	s.finish(resp, len(req.Selections), enumerated, started, OutcomeRanked)
	return resp, nil
}

// SaveResult persists a ranked result as a timestamped JSON artifact and
// returns its path
func (s *SuggestionService) SaveResult(result models.RankedResult) (string, error) {
	if s.store == nil {
		return "", errors.New("no artifact store configured")
	}
	path, err := s.store.Save(ResultArtifactName, result, "")
	if err != nil {
		return "", fmt.Errorf("failed to save suggestions: %w", err)
	}
	return path, nil
}

// LatestResult loads the most recently saved result
func (s *SuggestionService) LatestResult() (*models.RankedResult, error) {
	if s.store == nil {
		return nil, errors.New("no artifact store configured")
	}
	var result models.RankedResult
	found, err := s.store.Load(artifact.Pattern(ResultArtifactName, "json"), &result)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrArtifactNotFound
	}
	return &result, nil
}

func (s *SuggestionService) reject(requestID string, selections int, started time.Time, err error) error {
	metrics.RecordSuggestion(OutcomeRejected, time.Since(started).Seconds())
	s.audit.LogRejected(requestID, selections, err.Error())
	return err
}

func (s *SuggestionService) finish(resp *SuggestResponse, selections, enumerated int, started time.Time, outcome string) {
	elapsed := time.Since(started)
	metrics.RecordSuggestion(outcome, elapsed.Seconds())

	bestEV := 0.0
	if len(resp.Result.ParlaySuggestions) > 0 {
		bestEV = resp.Result.ParlaySuggestions[0].EVPerUnit
	}
	s.audit.LogSuggestion(resp.RequestID, selections, resp.MaxLegs, resp.TopK, enumerated,
		len(resp.Result.ParlaySuggestions), bestEV, resp.Cached, float64(elapsed.Microseconds())/1000.0)
}

func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	msg := "validation failed:"
	for _, fe := range validationErrors {
		msg += fmt.Sprintf(" %s (%s)", fe.Namespace(), fe.Tag())
	}
	return msg
}
