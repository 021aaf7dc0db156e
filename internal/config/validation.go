// Package config provides configuration management for the Clever Parlay application.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("publishmode", validatePublishMode)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validatePublishMode validates the canonical pointer publish mode
func validatePublishMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "symlink", "copy":
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Parlay.MaxLegsLimit > 0 && cfg.Parlay.DefaultMaxLegs > cfg.Parlay.MaxLegsLimit {
		return fmt.Errorf("default_max_legs cannot exceed max_legs_limit")
	}

	if cfg.Parlay.CacheTTLSeconds > 0 && cfg.Parlay.CacheMaxSize == 0 {
		return fmt.Errorf("cache_max_size must be set when the suggestion cache is enabled")
	}

	if len(cfg.Recompute.Command) > 0 && cfg.Recompute.TriggerURL != "" {
		return fmt.Errorf("recompute command and trigger_url are mutually exclusive")
	}

	if cfg.Recompute.Cron != "" {
		if _, err := cron.ParseStandard(cfg.Recompute.Cron); err != nil {
			return fmt.Errorf("invalid recompute cron expression %q: %w", cfg.Recompute.Cron, err)
		}
	} else if cfg.Recompute.IntervalMinutes <= 0 {
		return fmt.Errorf("recompute requires either cron or a positive interval_minutes")
	}

	if cfg.Secrets.AWSEnabled && (cfg.Secrets.AWSRegion == "" || cfg.Secrets.AWSSecretName == "") {
		return fmt.Errorf("aws_region and aws_secret_name are required when aws_enabled is set")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "publishmode":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: symlink, copy\n", field)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() {
		if cfg.App.LogLevel == "debug" {
			return fmt.Errorf("production environment should not log at debug level")
		}
		if cfg.Recompute.PublishMode == "copy" {
			return fmt.Errorf("production environment requires symlink publishing")
		}
	}

	return nil
}
