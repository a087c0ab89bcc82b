// Package config loads application configuration from file and
// environment. Configuration is read from ./config.yaml or
// ~/.lewa/config.yaml, with LEWA_-prefixed environment variables taking
// precedence. Every knob has a default so the client runs with no config
// file at all.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Validation sentinel errors.
var (
	ErrBackendURLRequired = errors.New("backend.url is required")
	ErrInvalidResultCount = errors.New("retrieval.result_count must be positive")
	ErrInvalidTimeout     = errors.New("timeout must be positive")
	ErrInvalidRetries     = errors.New("tutor.retry.max_retries must not be negative")
	ErrInvalidThreshold   = errors.New("circuit breaker thresholds must be positive")
	ErrInvalidRate        = errors.New("tutor.rate.requests_per_second must be positive")
	ErrInvalidLogLevel    = errors.New("log.level must be one of debug, info, warn, error")
	ErrInvalidDefaultMode = errors.New("chat.default_mode must be OL, AL, or empty")
	ErrTracingEndpoint    = errors.New("tracing.endpoint is required when tracing is enabled")
	ErrInvalidSampleRatio = errors.New("tracing.sample_ratio must be between 0 and 1")
)

// Config is the root configuration.
type Config struct {
	Backend   BackendConfig   `mapstructure:"backend"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Tutor     TutorConfig     `mapstructure:"tutor"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// ChatConfig holds interactive chat defaults.
type ChatConfig struct {
	// DefaultMode preselects the proficiency mode ("OL" or "AL") when the
	// chat command is run without a mode flag. Empty means ask the user.
	DefaultMode string `mapstructure:"default_mode"`
}

// BackendConfig locates the tutoring backend.
type BackendConfig struct {
	URL string `mapstructure:"url"`
}

// RetrievalConfig configures the retrieval service client.
type RetrievalConfig struct {
	// URL of the retrieval service. Empty means the backend URL is used:
	// the research and messenger endpoints are served by the same process
	// in the default deployment.
	URL         string        `mapstructure:"url"`
	ResultCount int           `mapstructure:"result_count"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

// TutorConfig configures the tutoring client's resilience layer.
type TutorConfig struct {
	Retry   RetryConfig   `mapstructure:"retry"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Rate    RateConfig    `mapstructure:"rate"`
}

// RetryConfig configures exponential backoff.
type RetryConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// RateConfig configures proactive rate limiting.
type RateConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load reads configuration from file and environment. A missing config
// file is not an error; invalid values are.
func Load(homeDir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if homeDir != "" {
		v.AddConfigPath(filepath.Join(homeDir, ".lewa"))
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.url", "http://127.0.0.1:8000")

	v.SetDefault("retrieval.url", "")
	v.SetDefault("retrieval.result_count", 3)
	v.SetDefault("retrieval.timeout", 10*time.Second)
	v.SetDefault("retrieval.cache_ttl", 5*time.Minute)

	v.SetDefault("tutor.retry.max_retries", 3)
	v.SetDefault("tutor.retry.initial_interval", 500*time.Millisecond)
	v.SetDefault("tutor.retry.max_interval", 10*time.Second)
	v.SetDefault("tutor.breaker.failure_threshold", 5)
	v.SetDefault("tutor.breaker.success_threshold", 2)
	v.SetDefault("tutor.breaker.timeout", 30*time.Second)
	v.SetDefault("tutor.rate.requests_per_second", 10.0)
	v.SetDefault("tutor.rate.burst", 30)

	v.SetDefault("chat.default_mode", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "lewa")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

func bindEnvVariables(v *viper.Viper) {
	v.SetEnvPrefix("LEWA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Validate fails fast on invalid configuration so a bad deployment is
// caught at startup, not on the first send.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return ErrBackendURLRequired
	}
	if c.Retrieval.ResultCount <= 0 {
		return ErrInvalidResultCount
	}
	if c.Retrieval.Timeout <= 0 {
		return fmt.Errorf("retrieval: %w", ErrInvalidTimeout)
	}
	if c.Tutor.Retry.MaxRetries < 0 {
		return ErrInvalidRetries
	}
	if c.Tutor.Retry.InitialInterval <= 0 || c.Tutor.Retry.MaxInterval <= 0 {
		return fmt.Errorf("tutor.retry: %w", ErrInvalidTimeout)
	}
	if c.Tutor.Breaker.FailureThreshold <= 0 || c.Tutor.Breaker.SuccessThreshold <= 0 {
		return ErrInvalidThreshold
	}
	if c.Tutor.Breaker.Timeout <= 0 {
		return fmt.Errorf("tutor.breaker: %w", ErrInvalidTimeout)
	}
	if c.Tutor.Rate.RequestsPerSecond <= 0 {
		return ErrInvalidRate
	}

	switch c.Chat.DefaultMode {
	case "", "OL", "AL":
	default:
		return fmt.Errorf("%w, got %q", ErrInvalidDefaultMode, c.Chat.DefaultMode)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w, got %q", ErrInvalidLogLevel, c.Log.Level)
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return ErrTracingEndpoint
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	return nil
}

// RetrievalURL returns the effective retrieval service URL.
func (c *Config) RetrievalURL() string {
	if c.Retrieval.URL != "" {
		return c.Retrieval.URL
	}
	return c.Backend.URL
}
