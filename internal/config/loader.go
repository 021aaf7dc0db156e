// Package config provides configuration management for the Clever Parlay application.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "CLEVER_PARLAY"
	defaultConfigPath = "config/config.yaml"
)

// newViper creates a viper instance bound to CLEVER_PARLAY_* environment variables
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set environment variable prefix
	v.SetEnvPrefix(envPrefix)

	// Enable automatic binding of environment variables
	v.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return v
}

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// Read the configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()

	// Read the expanded configuration
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Unmarshal configuration into Config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults registers the values used when neither file nor environment sets them
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "clever-parlay")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("parlay.default_max_legs", 6)
	v.SetDefault("parlay.default_top_k", 20)
	v.SetDefault("parlay.max_legs_limit", 6)
	v.SetDefault("parlay.max_selections", 40)
	v.SetDefault("parlay.cache_ttl_seconds", 300)
	v.SetDefault("parlay.cache_max_size", 1000)

	v.SetDefault("artifacts.output_dir", "outputs")

	v.SetDefault("recompute.dataset", "projections")
	v.SetDefault("recompute.extension", "csv")
	v.SetDefault("recompute.interval_minutes", 15)
	v.SetDefault("recompute.timeout_minutes", 30)
	v.SetDefault("recompute.publish_mode", "symlink")

	v.SetDefault("secrets.api_key_env", "ODDS_API_KEY")
	v.SetDefault("secrets.api_key_file", "backend/.odds_api_key")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", 8080)
}

// LoadWithDefaults loads configuration with default values for optional fields
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	// Read and expand the configuration file if it exists
	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	// If file doesn't exist, continue with defaults and environment variables

	// Unmarshal configuration into Config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}
