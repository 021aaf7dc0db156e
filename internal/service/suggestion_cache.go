package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/clever-parlay/internal/metrics"
	"github.com/yourusername/clever-parlay/internal/models"
)

// cacheKey identifies a normalized suggestion request
type cacheKey struct {
	Selections []models.Selection `json:"selections"`
	MaxLegs    int                `json:"max_legs"`
	TopK       int                `json:"top_k"`
}

// Fingerprint returns a stable digest of the key. Selection order is part of
// the key because it decides tie order in the result.
func (k cacheKey) Fingerprint() (string, error) {
	raw, err := json.Marshal(k)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// SuggestionCache memoizes ranked results for identical requests
type SuggestionCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewSuggestionCache creates a new suggestion cache
func NewSuggestionCache(ttl time.Duration, maxSize int) *SuggestionCache {
	return &SuggestionCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get returns a private copy of the cached result for the fingerprint
func (sc *SuggestionCache) Get(fingerprint string) (models.RankedResult, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if value, found := sc.cache.Get(fingerprint); found {
		if result, ok := value.(models.RankedResult); ok {
			sc.hitCount++
			sc.updateMetrics()
			return result.Clone(), true
		}
	}

	sc.missCount++
	sc.updateMetrics()
	return models.RankedResult{}, false
}

// Set stores a copy of result. When the cache is full, expired entries are dropped
// first and the new entry is skipped if that frees nothing.
func (sc *SuggestionCache) Set(fingerprint string, result models.RankedResult) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.maxSize > 0 && sc.cache.ItemCount() >= sc.maxSize {
		sc.cache.DeleteExpired()
		if sc.cache.ItemCount() >= sc.maxSize {
			return
		}
	}

	sc.cache.Set(fingerprint, result.Clone(), sc.ttl)
}

// Clear removes all entries
func (sc *SuggestionCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache.Flush()
}

// Size returns the number of cached entries
func (sc *SuggestionCache) Size() int {
	return sc.cache.ItemCount()
}

// Stats returns cache statistics
func (sc *SuggestionCache) Stats() CacheStats {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return CacheStats{
		Hits:    sc.hitCount,
		Misses:  sc.missCount,
		Size:    sc.cache.ItemCount(),
		HitRate: sc.hitRate(),
	}
}

// CacheStats represents cache statistics
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Size    int
	HitRate float64
}

func (sc *SuggestionCache) hitRate() float64 {
	total := sc.hitCount + sc.missCount
	if total == 0 {
		return 0
	}
	return float64(sc.hitCount) / float64(total)
}

func (sc *SuggestionCache) updateMetrics() {
	metrics.UpdateSuggestionCacheHitRatio(sc.hitRate())
}
