package config

import (
	"fmt"
	"strings"

	"github.com/brightpath/brainstorm/internal/log"
)

// Validate checks every field and returns the first violation. Called by
// Load so an invalid configuration never reaches the rest of the program.
func (c *Config) Validate() error {
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateServe(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateGeneration() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model_name must not be empty", ErrInvalidModelName)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v not in [0, 2]", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens <= 0 || c.MaxTokens > MaxAllowedTokens {
		return fmt.Errorf("%w: %d not in (0, %d]", ErrInvalidMaxTokens, c.MaxTokens, MaxAllowedTokens)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: %v must be positive", ErrInvalidTimeout, c.RequestTimeout)
	}
	return nil
}

func (c *Config) validateServe() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidAddr)
	}
	if c.SubmitsPerMinute < 0 {
		return fmt.Errorf("%w: submits_per_minute %d is negative", ErrInvalidRateLimit, c.SubmitsPerMinute)
	}
	if c.SubmitBurst < 0 {
		return fmt.Errorf("%w: submit_burst %d is negative", ErrInvalidRateLimit, c.SubmitBurst)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLogLevel, err)
	}
	return nil
}
