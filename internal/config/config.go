// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.helpdesk/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, model selection, temperature, token budgets
//   - Storage: PostgreSQL connection for the knowledge index (see storage.go)
//   - Guardrail: rate-limit window and vocabulary overrides (see guardrail.go)
//   - Scraper: knowledge ingestion settings
//   - Telemetry: OTLP trace export
//
// Security: sensitive values (the database password) are masked in
// MarshalJSON and never logged.
//
// Error handling uses sentinel errors so callers can check with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates a token budget is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidRateLimit indicates the guardrail rate-limit settings are invalid.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// DefaultEmbedderModel is the default Gemini embedder model.
// text-embedding-004 produces 768-dimensional vectors, matching the
// documents schema.
const DefaultEmbedderModel = "text-embedding-004"

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// AI model configuration
	ModelName      string  `mapstructure:"model_name" json:"model_name"`
	Temperature    float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens" json:"max_tokens"`
	VoiceMaxTokens int     `mapstructure:"voice_max_tokens" json:"voice_max_tokens"` // Shorter budget for voice replies

	// Knowledge index configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Guardrail configuration (see guardrail.go)
	Guardrail GuardrailConfig `mapstructure:"guardrail" json:"guardrail"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server configuration (see server defaults in setDefaults)
	Server ServerConfig `mapstructure:"server" json:"server"`

	// Ingestion configuration
	Scraper ScraperConfig `mapstructure:"scraper" json:"scraper"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`
}

// ServerConfig holds HTTP server settings. The rate limit here is
// transport-level back-pressure across all clients; the per-user guardrail
// window is configured separately.
type ServerConfig struct {
	Addr            string  `mapstructure:"addr" json:"addr"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`
}

// ScraperConfig holds knowledge-ingestion scraper settings.
type ScraperConfig struct {
	Parallelism int    `mapstructure:"parallelism" json:"parallelism"`
	DelayMS     int    `mapstructure:"delay_ms" json:"delay_ms"`
	TimeoutMS   int    `mapstructure:"timeout_ms" json:"timeout_ms"`
	UserAgent   string `mapstructure:"user_agent" json:"user_agent"`
}

// TelemetryConfig holds OTLP trace export settings.
// Traces are exported to a local collector over OTLP HTTP.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".helpdesk")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 1000)
	v.SetDefault("voice_max_tokens", 500)
	v.SetDefault("embedder_model", DefaultEmbedderModel)

	// Guardrail defaults
	v.SetDefault("guardrail.rate_limit_window_seconds", DefaultRateLimitWindowSeconds)
	v.SetDefault("guardrail.rate_limit_max_requests", DefaultRateLimitMaxRequests)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "helpdesk")
	v.SetDefault("postgres_password", "helpdesk_dev_password")
	v.SetDefault("postgres_db_name", "helpdesk")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.rate_limit_per_sec", 10.0)
	v.SetDefault("server.rate_limit_burst", 20)

	// Scraper defaults
	v.SetDefault("scraper.parallelism", 2)
	v.SetDefault("scraper.delay_ms", 1000)
	v.SetDefault("scraper.timeout_ms", 30000)
	v.SetDefault("scraper.user_agent", "helpdesk-ingest/1.0")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.service_name", "helpdesk")
	v.SetDefault("telemetry.environment", "dev")
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via Viper; its presence is
// checked in Validate().
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "HELPDESK_MODEL_NAME")
	mustBind("max_tokens", "HELPDESK_MAX_TOKENS")
	mustBind("guardrail.rate_limit_window_seconds", "HELPDESK_RATE_LIMIT_WINDOW_SECONDS")
	mustBind("guardrail.rate_limit_max_requests", "HELPDESK_RATE_LIMIT_MAX_REQUESTS")
	mustBind("server.addr", "HELPDESK_SERVER_ADDR")
	mustBind("telemetry.enabled", "HELPDESK_TELEMETRY_ENABLED")
	mustBind("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// MarshalJSON implements json.Marshaler with sensitive field masking.
// The password never appears in serialized output, regardless of length.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // Avoid recursion
	masked := alias(*c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = maskedValue
	}
	return json.Marshal(masked)
}
