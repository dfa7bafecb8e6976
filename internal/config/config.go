// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrGoogleAPIKeyRequired is returned when GOOGLE_API_KEY is not set.
	ErrGoogleAPIKeyRequired = errors.New("config: GOOGLE_API_KEY is required")
	// ErrVeoAccessTokenRequired is returned when VEO_ACCESS_TOKEN is not set.
	ErrVeoAccessTokenRequired = errors.New("config: VEO_ACCESS_TOKEN is required")
	// ErrVeoProjectIDRequired is returned when VEO_PROJECT_ID is not set.
	ErrVeoProjectIDRequired = errors.New("config: VEO_PROJECT_ID is required")
	// ErrOpenAIAPIKeyRequired is returned when the OpenAI vision provider is
	// selected but OPENAI_API_KEY is not set.
	ErrOpenAIAPIKeyRequired = errors.New("config: OPENAI_API_KEY is required for the openai vision provider")
	// ErrUnknownVisionProvider is returned for an unrecognized VISION_PROVIDER value.
	ErrUnknownVisionProvider = errors.New("config: unknown vision provider")
	// ErrUnknownRetryStrategy is returned for an unrecognized RETRY_STRATEGY value.
	ErrUnknownRetryStrategy = errors.New("config: unknown retry strategy")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Vision model settings
	GoogleAPIKey   string `env:"GOOGLE_API_KEY, required" json:"-"` // Masked in JSON
	VisionProvider string `env:"VISION_PROVIDER, default=gemini" json:"vision_provider"`
	VisionModel    string `env:"VISION_MODEL, default=gemini-2.5-pro" json:"vision_model"`
	OpenAIAPIKey   string `env:"OPENAI_API_KEY" json:"-"` // Masked in JSON

	// Veo long-running operation settings
	VeoAccessToken string `env:"VEO_ACCESS_TOKEN, required" json:"-"` // Masked in JSON
	VeoProjectID   string `env:"VEO_PROJECT_ID, required" json:"veo_project_id"`
	VeoLocation    string `env:"VEO_LOCATION, default=us-central1" json:"veo_location"`
	VeoModel       string `env:"VEO_MODEL, default=veo-2.0-generate-001" json:"veo_model"`
	VeoStorageURI  string `env:"VEO_STORAGE_URI" json:"veo_storage_uri,omitempty"`

	// Polling settings
	PollInterval time.Duration `env:"POLL_INTERVAL, default=1s" json:"poll_interval"`
	PollBudget   time.Duration `env:"POLL_BUDGET, default=5m" json:"poll_budget"`

	// Scene analysis retry settings
	MinSceneWords      int    `env:"MIN_SCENE_WORDS, default=50" json:"min_scene_words"`
	MaxAnalyzeAttempts int    `env:"MAX_ANALYZE_ATTEMPTS, default=5" json:"max_analyze_attempts"`
	RetryStrategy      string `env:"RETRY_STRATEGY, default=same_prompt" json:"retry_strategy"`

	// Record store settings
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/studio-api" json:"temp_dir"`

	// Optional S3 settings for archived media
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// PostgresEnabled returns true if a database URL is provided.
func (c *Config) PostgresEnabled() bool {
	return c.DatabaseURL != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "GOOGLE_API_KEY") {
			return nil, ErrGoogleAPIKeyRequired
		}
		if strings.Contains(err.Error(), "VEO_ACCESS_TOKEN") {
			return nil, ErrVeoAccessTokenRequired
		}
		if strings.Contains(err.Error(), "VEO_PROJECT_ID") {
			return nil, ErrVeoProjectIDRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and consistent.
func (c *Config) Validate() error {
	if c.GoogleAPIKey == "" {
		return ErrGoogleAPIKeyRequired
	}
	if c.VeoAccessToken == "" {
		return ErrVeoAccessTokenRequired
	}
	if c.VeoProjectID == "" {
		return ErrVeoProjectIDRequired
	}

	switch strings.ToLower(c.VisionProvider) {
	case "gemini":
	case "openai":
		if c.OpenAIAPIKey == "" {
			return ErrOpenAIAPIKeyRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVisionProvider, c.VisionProvider)
	}

	switch strings.ToLower(c.RetryStrategy) {
	case "same_prompt", "augment_prompt":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRetryStrategy, c.RetryStrategy)
	}

	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, VisionProvider: %s, VisionModel: %s, VeoProjectID: %s, VeoLocation: %s, VeoModel: %s, PollInterval: %s, PollBudget: %s, MinSceneWords: %d, MaxAnalyzeAttempts: %d, RetryStrategy: %s, TempDir: %s, S3Bucket: %s, S3Region: %s, Postgres: %t, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.VisionProvider,
		c.VisionModel,
		c.VeoProjectID,
		c.VeoLocation,
		c.VeoModel,
		c.PollInterval,
		c.PollBudget,
		c.MinSceneWords,
		c.MaxAnalyzeAttempts,
		c.RetryStrategy,
		c.TempDir,
		c.S3Bucket,
		c.S3Region,
		c.PostgresEnabled(),
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
