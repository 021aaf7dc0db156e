package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/clever-parlay/internal/artifact"
	"github.com/yourusername/clever-parlay/internal/config"
	"github.com/yourusername/clever-parlay/internal/publish"
)

// newStore opens the configured artifact directory
func newStore() *artifact.Store {
	return artifact.NewStore(cfg.Artifacts.OutputDir, artifact.WithLogger(appLog))
}

// newGenerator builds the configured generation step. A missing API key is
// logged and the command runs without it.
func newGenerator(ctx context.Context) (publish.Generator, error) {
	if cfg.Recompute.TriggerURL != "" {
		httpCfg := publish.DefaultHTTPGeneratorConfig()
		httpCfg.URL = cfg.Recompute.TriggerURL
		httpCfg.Token = cfg.Recompute.TriggerToken
		httpCfg.Dataset = cfg.Recompute.Dataset
		if timeout := cfg.RecomputeTimeout(); timeout > 0 {
			httpCfg.Timeout = timeout
		}
		return publish.NewHTTPGenerator(httpCfg, appLog)
	}

	var env []string
	key, err := config.ResolveAPIKey(ctx, cfg)
	switch {
	case err == nil:
		env = append(env, fmt.Sprintf("%s=%s", cfg.Secrets.APIKeyEnv, key))
	case errors.Is(err, config.ErrAPIKeyNotFound):
		appLog.WithField("env", cfg.Secrets.APIKeyEnv).Warn("No odds API key found, generation runs without one")
	default:
		return nil, fmt.Errorf("failed to resolve odds API key: %w", err)
	}

	return publish.NewCommandGenerator(publish.CommandConfig{
		Command: cfg.GenerationCommand(),
		Dir:     cfg.WorkingDir(),
		Env:     env,
		Timeout: cfg.RecomputeTimeout(),
	}, appLog)
}

// newCoordinator wires store, generator and publisher for the configured dataset
func newCoordinator(ctx context.Context) (*publish.Coordinator, error) {
	generator, err := newGenerator(ctx)
	if err != nil {
		return nil, err
	}

	return publish.NewCoordinator(
		publish.CoordinatorConfig{
			Dataset:   cfg.Recompute.Dataset,
			Extension: cfg.Recompute.Extension,
		},
		newStore(),
		generator,
		publish.NewPublisher(publish.Mode(cfg.Recompute.PublishMode), appLog),
		appLog,
	)
}
