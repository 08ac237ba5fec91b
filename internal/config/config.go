// Package config provides application configuration with multi-source
// priority.
//
// Sources, highest to lowest:
//  1. Environment variables
//  2. Config file (~/.brainstorm/config.yaml)
//  3. Defaults
//
// Configuration is validated immediately after loading (fail-fast); a process
// with an invalid config never starts serving. Sensitive fields are masked in
// MarshalJSON, which String delegates to, so a Config can be logged safely.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidTimeout indicates the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid request timeout")

	// ErrInvalidAddr indicates the listen address is empty.
	ErrInvalidAddr = errors.New("invalid listen address")

	// ErrInvalidRateLimit indicates a rate limit value is negative.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidLogLevel indicates the log level string is unknown.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

const (
	// DefaultModel is the generation model used when none is configured.
	DefaultModel = "gemini-2.5-flash"

	// MaxAllowedTokens caps max_tokens to the model output ceiling.
	MaxAllowedTokens = 65536
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON. When
// adding a secret field, update MarshalJSON as well.
type Config struct {
	// Generation settings.
	APIKey       string  `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	ModelName    string  `mapstructure:"model_name" json:"model_name"`
	Temperature  float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens" json:"max_tokens"`
	SystemPrompt string  `mapstructure:"system_prompt" json:"system_prompt"`

	// RequestTimeout bounds a single generation request end to end.
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`

	// Serve mode settings.
	Addr             string `mapstructure:"addr" json:"addr"`
	SubmitsPerMinute int    `mapstructure:"submits_per_minute" json:"submits_per_minute"`
	SubmitBurst      int    `mapstructure:"submit_burst" json:"submit_burst"`

	// Logging.
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Observability (see observability.go).
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration from environment, file, and defaults, validating
// the result.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".brainstorm")
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
		// A missing config file is fine, defaults apply.
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
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", DefaultModel)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("system_prompt",
		"You are a creative brainstorming partner for marketing campaigns. "+
			"Offer concrete, varied ideas and build on the user's direction.")
	v.SetDefault("request_timeout", 2*time.Minute)

	v.SetDefault("addr", ":8080")
	v.SetDefault("submits_per_minute", 30)
	v.SetDefault("submit_burst", 5)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.environment", "dev")
	v.SetDefault("tracing.service_name", "brainstorm")
}

// bindEnvVariables binds environment overrides explicitly. Hardcoded keys
// cannot fail to bind; a panic here is a bug.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("api_key", "GEMINI_API_KEY")
	mustBind("model_name", "BRAINSTORM_MODEL")
	mustBind("system_prompt", "BRAINSTORM_SYSTEM_PROMPT")
	mustBind("addr", "BRAINSTORM_ADDR")
	mustBind("log_level", "BRAINSTORM_LOG_LEVEL")
	mustBind("log_json", "BRAINSTORM_LOG_JSON")
	mustBind("tracing.enabled", "BRAINSTORM_TRACING")
	mustBind("tracing.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// maskedValue uses full-width blocks so no substring of a real secret ever
// appears in masked output.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
