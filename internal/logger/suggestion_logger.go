package logger

import (
	"github.com/sirupsen/logrus"
)

// SuggestionLogger provides dedicated logging for parlay suggestion requests.
type SuggestionLogger struct {
	*logrus.Entry
}

// NewSuggestionLogger creates a new suggestion logger.
func NewSuggestionLogger(baseLogger *logrus.Logger) *SuggestionLogger {
	return &SuggestionLogger{
		Entry: baseLogger.WithField("component", "parlay"),
	}
}

// LogSuggestion logs a completed suggestion request.
func (sl *SuggestionLogger) LogSuggestion(requestID string, selections, maxLegs, topK, enumerated, returned int, bestEV float64, cached bool, durationMs float64) {
	sl.WithFields(logrus.Fields{
		"request_id":  requestID,
		"selections":  selections,
		"max_legs":    maxLegs,
		"top_k":       topK,
		"enumerated":  enumerated,
		"returned":    returned,
		"best_ev":     bestEV,
		"cached":      cached,
		"duration_ms": durationMs,
	}).Info("Parlay suggestions ranked")
}

// LogRejected logs a request refused before ranking.
func (sl *SuggestionLogger) LogRejected(requestID string, selections int, reason string) {
	sl.WithFields(logrus.Fields{
		"request_id": requestID,
		"selections": selections,
		"reason":     reason,
	}).Warn("Parlay suggestion request rejected")
}

// LogLegsClamped logs a max_legs value reduced to the operator limit.
func (sl *SuggestionLogger) LogLegsClamped(requestID string, requested, limit int) {
	sl.WithFields(logrus.Fields{
		"request_id": requestID,
		"requested":  requested,
		"limit":      limit,
	}).Debug("Requested max_legs clamped to limit")
}
