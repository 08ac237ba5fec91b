package config

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		APIKey:           "test-api-key-1234567890",
		ModelName:        DefaultModel,
		Temperature:      0.7,
		MaxTokens:        2048,
		RequestTimeout:   2 * time.Minute,
		Addr:             ":8080",
		SubmitsPerMinute: 30,
		SubmitBurst:      5,
		LogLevel:         "info",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.APIKey = "  " },
			wantErr: ErrMissingAPIKey,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "temperature negative",
			mutate:  func(c *Config) { c.Temperature = -0.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "max tokens zero",
			mutate:  func(c *Config) { c.MaxTokens = 0 },
			wantErr: ErrInvalidMaxTokens,
		},
		{
			name:    "max tokens over ceiling",
			mutate:  func(c *Config) { c.MaxTokens = MaxAllowedTokens + 1 },
			wantErr: ErrInvalidMaxTokens,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.RequestTimeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "empty addr",
			mutate:  func(c *Config) { c.Addr = "" },
			wantErr: ErrInvalidAddr,
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.SubmitsPerMinute = -1 },
			wantErr: ErrInvalidRateLimit,
		},
		{
			name:    "negative burst",
			mutate:  func(c *Config) { c.SubmitBurst = -1 },
			wantErr: ErrInvalidRateLimit,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: ErrInvalidLogLevel,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty stays empty", input: "", want: ""},
		{name: "short fully masked", input: "hunter2", want: maskedValue},
		{name: "boundary fully masked", input: "12345678", want: maskedValue},
		{name: "long keeps edges", input: "my_long_secret_key_123", want: "my<" + maskedValue + ">23"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.input); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMarshalJSON_MasksAPIKey(t *testing.T) {
	cfg := validConfig()

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), cfg.APIKey) {
		t.Errorf("marshalled config leaks the API key: %s", data)
	}
	if !strings.Contains(string(data), maskedValue) {
		t.Errorf("marshalled config has no mask: %s", data)
	}
}

func TestString_MasksAPIKey(t *testing.T) {
	cfg := validConfig()

	s := cfg.String()
	if strings.Contains(s, cfg.APIKey) {
		t.Errorf("String() leaks the API key: %s", s)
	}
}
