// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (GEMINI_MCP_* plus GEMINI_API_KEY)
//  2. Config file (~/.gemini-mcp/config.yaml)
//  3. Default values
//
// The API key is read exclusively from the GEMINI_API_KEY environment
// variable and is never written to disk or logged. The process fails
// fast at startup when it is absent.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the default model name is malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTimeout indicates the request timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid request timeout")
)

// Defaults applied when neither the environment nor the config file
// provides a value.
const (
	DefaultRequestTimeout = 300 * time.Second

	envPrefix = "GEMINI_MCP"
	apiKeyEnv = "GEMINI_API_KEY"
)

// Config stores application configuration.
//
// SECURITY: APIKey is deliberately excluded from serialization.
type Config struct {
	// APIKey authenticates against the Gemini API. Environment only.
	APIKey string `mapstructure:"-" json:"-"`

	// DefaultModel overrides the per-tool nominal model when set.
	// Resolved through the fallback table like any other identifier.
	DefaultModel string `mapstructure:"default_model" json:"default_model"`

	// PaidTier widens the client-side rate-limit budget.
	PaidTier bool `mapstructure:"paid_tier" json:"paid_tier"`

	// RequestTimeout bounds a single upstream generate call.
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`

	// Logging configuration.
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load reads configuration from the environment and the optional config
// file, applies defaults, and validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("default_model", "")
	v.SetDefault("paid_tier", false)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".gemini-mcp"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// A missing config file is fine; anything else is not.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.APIKey = os.Getenv(apiKeyEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration values. Returns sentinel errors that can
// be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.APIKey == "" {
		return fmt.Errorf("%w: %s environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey, apiKeyEnv)
	}

	// Model identifiers are lowercase with dashes/dots; a leading dash or
	// whitespace means a mangled override.
	if c.DefaultModel != "" {
		if strings.TrimSpace(c.DefaultModel) != c.DefaultModel || strings.HasPrefix(c.DefaultModel, "-") {
			return fmt.Errorf("%w: %q", ErrInvalidModelName, c.DefaultModel)
		}
	}

	if c.RequestTimeout < time.Second || c.RequestTimeout > time.Hour {
		return fmt.Errorf("%w: must be between 1s and 1h, got %s", ErrInvalidTimeout, c.RequestTimeout)
	}

	return nil
}
