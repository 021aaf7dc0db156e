package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// HTTPGeneratorConfig configures a remote generation trigger
type HTTPGeneratorConfig struct {
	URL          string
	Token        string
	Dataset      string
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	RateLimit    float64 // requests per second
	// Consecutive failed runs that open the breaker, and how long it stays open
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// DefaultHTTPGeneratorConfig returns recommended defaults
func DefaultHTTPGeneratorConfig() HTTPGeneratorConfig {
	return HTTPGeneratorConfig{
		Timeout:         10 * time.Minute,
		MaxRetries:      3,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    10 * time.Second,
		RateLimit:       1.0,
		BreakerFailures: 5,
		BreakerTimeout:  5 * time.Minute,
	}
}

// HTTPGenerator asks a remote job runner to regenerate a dataset and waits
// for it to answer. Artifacts are expected on storage shared with the store.
type HTTPGenerator struct {
	client  *retryablehttp.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cfg     HTTPGeneratorConfig
	logger  *logrus.Logger
}

type generationRequest struct {
	Dataset     string    `json:"dataset"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewHTTPGenerator creates a rate-limited, retrying remote generator
func NewHTTPGenerator(cfg HTTPGeneratorConfig, logger *logrus.Logger) (*HTTPGenerator, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("generation trigger url is required")
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1.0
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = cfg.Timeout
	client.RetryMax = cfg.MaxRetries
	client.RetryWaitMin = cfg.RetryWaitMin
	client.RetryWaitMax = cfg.RetryWaitMax
	client.CheckRetry = retryablehttp.DefaultRetryPolicy
	client.Logger = logger

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fmt.Sprintf("generator-%s", cfg.Dataset),
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Warn("Generation trigger circuit breaker state changed")
		},
	})

	return &HTTPGenerator{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		breaker: breaker,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Generate posts a generation request and treats any 2xx answer as success.
// While the breaker is open it fails fast with gobreaker.ErrOpenState.
func (g *HTTPGenerator) Generate(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, g.post(ctx)
	})
	if err != nil {
		return fmt.Errorf("generation trigger for %s: %w", g.cfg.Dataset, err)
	}
	return nil
}

func (g *HTTPGenerator) post(ctx context.Context) error {
	body, err := json.Marshal(generationRequest{
		Dataset:     g.cfg.Dataset,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal generation request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("generation request returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	g.logger.WithFields(logrus.Fields{
		"dataset": g.cfg.Dataset,
		"status":  resp.StatusCode,
	}).Debug("Remote generation completed")
	return nil
}

// Close releases idle connections
func (g *HTTPGenerator) Close() error {
	g.client.HTTPClient.CloseIdleConnections()
	return nil
}
