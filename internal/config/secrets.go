// Package config provides configuration management for the Clever Parlay application.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const (
	errLoadAWSConfig           = "failed to load AWS config: %w"
	errGetSecretFromAWSSecrets = "failed to get secret from AWS Secrets Manager: %w"
	errParseSecretJSON         = "failed to parse secret JSON: %w"
	errParseSecretBinary       = "failed to parse secret binary: %w"
)

var errNoSecretDataFound = errors.New("no secret data found in AWS Secrets Manager")

// ErrAPIKeyNotFound is returned when no source provides the odds API key
var ErrAPIKeyNotFound = errors.New("odds api key not found")

// SecretsOverlay represents the structure of secrets stored in AWS Secrets Manager
type SecretsOverlay struct {
	OddsAPIKey string `json:"odds_api_key"`
}

// SecretsFetcher retrieves the secrets document
type SecretsFetcher func(ctx context.Context, region, secretName string) (*SecretsOverlay, error)

// fetchSecretsFromAWS retrieves secrets from AWS Secrets Manager
func fetchSecretsFromAWS(ctx context.Context, region string, secretName string) (*SecretsOverlay, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf(errLoadAWSConfig, err)
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	}

	result, err := client.GetSecretValue(ctx, input)
	if err != nil {
		return nil, fmt.Errorf(errGetSecretFromAWSSecrets, err)
	}

	return parseSecretData(result)
}

// parseSecretData parses secret data from AWS response
func parseSecretData(result *secretsmanager.GetSecretValueOutput) (*SecretsOverlay, error) {
	var secrets SecretsOverlay
	if result.SecretString != nil {
		if err := json.Unmarshal([]byte(*result.SecretString), &secrets); err != nil {
			return nil, fmt.Errorf(errParseSecretJSON, err)
		}
	} else if result.SecretBinary != nil {
		if err := json.Unmarshal(result.SecretBinary, &secrets); err != nil {
			return nil, fmt.Errorf(errParseSecretBinary, err)
		}
	} else {
		return nil, errNoSecretDataFound
	}
	return &secrets, nil
}

// KeyResolver finds the odds API key: environment variable first, then the
// key file, then AWS Secrets Manager when enabled
type KeyResolver struct {
	cfg   SecretsConfig
	fetch SecretsFetcher
}

// NewKeyResolver creates a resolver backed by AWS Secrets Manager
func NewKeyResolver(cfg SecretsConfig) *KeyResolver {
	return &KeyResolver{cfg: cfg, fetch: fetchSecretsFromAWS}
}

// NewKeyResolverWithFetcher creates a resolver with a custom secrets source
func NewKeyResolverWithFetcher(cfg SecretsConfig, fetch SecretsFetcher) *KeyResolver {
	return &KeyResolver{cfg: cfg, fetch: fetch}
}

// Resolve returns the API key or ErrAPIKeyNotFound
func (r *KeyResolver) Resolve(ctx context.Context) (string, error) {
	if r.cfg.APIKeyEnv != "" {
		if val := os.Getenv(r.cfg.APIKeyEnv); val != "" {
			return val, nil
		}
	}

	if r.cfg.APIKeyFile != "" {
		data, err := os.ReadFile(r.cfg.APIKeyFile)
		switch {
		case err == nil:
			if key := strings.TrimSpace(string(data)); key != "" {
				return key, nil
			}
		case !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("failed to read api key file: %w", err)
		}
	}

	if r.cfg.AWSEnabled && r.fetch != nil {
		secrets, err := r.fetch(ctx, r.cfg.AWSRegion, r.cfg.AWSSecretName)
		if err != nil {
			return "", err
		}
		if secrets.OddsAPIKey != "" {
			return secrets.OddsAPIKey, nil
		}
	}

	return "", ErrAPIKeyNotFound
}

// ResolveAPIKey resolves the odds API key for cfg
func ResolveAPIKey(ctx context.Context, cfg *Config) (string, error) {
	return NewKeyResolver(cfg.Secrets).Resolve(ctx)
}

// GetSecretsFromAWS retrieves raw secrets from AWS Secrets Manager without applying them
func GetSecretsFromAWS(ctx context.Context, region string, secretName string) (*SecretsOverlay, error) {
	return fetchSecretsFromAWS(ctx, region, secretName)
}
