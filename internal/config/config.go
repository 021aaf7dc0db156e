// Package config provides configuration management for the Clever Parlay application.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// DefaultGenerationCommand regenerates projections when no command or trigger URL is configured
var DefaultGenerationCommand = []string{"python3", "scripts/generate_projections.py"}

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Parlay    ParlayConfig    `mapstructure:"parlay" validate:"required"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts" validate:"required"`
	Recompute RecomputeConfig `mapstructure:"recompute" validate:"required"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// ParlayConfig holds request defaults and operator limits for suggestions
type ParlayConfig struct {
	DefaultMaxLegs  int `mapstructure:"default_max_legs" validate:"required,gt=0"`
	DefaultTopK     int `mapstructure:"default_top_k" validate:"required,gt=0"`
	MaxLegsLimit    int `mapstructure:"max_legs_limit" validate:"gte=0"`
	MaxSelections   int `mapstructure:"max_selections" validate:"gte=0"`
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	CacheMaxSize    int `mapstructure:"cache_max_size" validate:"gte=0"`
}

// ArtifactsConfig locates the artifact directory
type ArtifactsConfig struct {
	OutputDir string `mapstructure:"output_dir" validate:"required"`
}

// RecomputeConfig describes how a dataset is regenerated and published
type RecomputeConfig struct {
	Dataset         string   `mapstructure:"dataset" validate:"required"`
	Extension       string   `mapstructure:"extension" validate:"required"`
	Command         []string `mapstructure:"command"`
	WorkingDir      string   `mapstructure:"working_dir"`
	TriggerURL      string   `mapstructure:"trigger_url" validate:"omitempty,url"`
	TriggerToken    string   `mapstructure:"trigger_token"`
	IntervalMinutes int      `mapstructure:"interval_minutes" validate:"gte=0"`
	Cron            string   `mapstructure:"cron"`
	TimeoutMinutes  int      `mapstructure:"timeout_minutes" validate:"gte=0"`
	PublishMode     string   `mapstructure:"publish_mode" validate:"required,publishmode"`
	RunOnStart      bool     `mapstructure:"run_on_start"`
}

// SecretsConfig describes where the odds API key comes from
type SecretsConfig struct {
	APIKeyEnv     string `mapstructure:"api_key_env"`
	APIKeyFile    string `mapstructure:"api_key_file"`
	AWSEnabled    bool   `mapstructure:"aws_enabled"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSSecretName string `mapstructure:"aws_secret_name"`
}

// MetricsConfig represents monitoring and metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// HealthConfig configures the ops HTTP server
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// CacheTTL returns the suggestion cache TTL
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Parlay.CacheTTLSeconds) * time.Second
}

// RecomputeTimeout returns the per-cycle timeout, zero meaning none
func (c *Config) RecomputeTimeout() time.Duration {
	return time.Duration(c.Recompute.TimeoutMinutes) * time.Minute
}

// RecomputeSchedule returns the cron spec for the recompute trigger.
// An explicit cron expression wins over the interval.
func (c *Config) RecomputeSchedule() string {
	if c.Recompute.Cron != "" {
		return c.Recompute.Cron
	}
	return fmt.Sprintf("@every %dm", c.Recompute.IntervalMinutes)
}

// GenerationCommand returns the local generation command, or nil when a
// remote trigger URL is configured instead
func (c *Config) GenerationCommand() []string {
	if c.Recompute.TriggerURL != "" {
		return nil
	}
	if len(c.Recompute.Command) == 0 {
		return DefaultGenerationCommand
	}
	return c.Recompute.Command
}

// WorkingDir returns the directory the generation command runs in
func (c *Config) WorkingDir() string {
	if c.Recompute.WorkingDir != "" {
		return c.Recompute.WorkingDir
	}
	return filepath.Dir(filepath.Clean(c.Artifacts.OutputDir))
}

// MetricsPath returns the metrics exposition path
func (c *Config) MetricsPath() string {
	if c.Metrics.Path == "" {
		return "/metrics"
	}
	return c.Metrics.Path
}
