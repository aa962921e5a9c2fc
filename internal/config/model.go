package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvModelBaseURL     = "LUCID_MODEL_BASE_URL"
	EnvModelAPIKey      = "LUCID_MODEL_API_KEY"
	EnvModelName        = "LUCID_MODEL_NAME"
	EnvModelMaxTokens   = "LUCID_MODEL_MAX_TOKENS"
	EnvModelTemperature = "LUCID_MODEL_TEMPERATURE"
	EnvModelCallTimeout = "LUCID_MODEL_CALL_TIMEOUT"
)

// ModelConfig holds language model provider parameters.
type ModelConfig struct {
	BaseURL     string  `toml:"base_url"`
	APIKey      string  `toml:"api_key"`
	Name        string  `toml:"name"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	CallTimeout string  `toml:"call_timeout"`
}

// CallTimeoutDuration returns CallTimeout as a time.Duration.
func (c *ModelConfig) CallTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.CallTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ModelConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ModelConfig) Merge(overlay *ModelConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if overlay.MaxTokens != 0 {
		c.MaxTokens = overlay.MaxTokens
	}
	if overlay.Temperature != 0 {
		c.Temperature = overlay.Temperature
	}
	if overlay.CallTimeout != "" {
		c.CallTimeout = overlay.CallTimeout
	}
}

func (c *ModelConfig) loadDefaults() {
	if c.Name == "" {
		c.Name = "gpt-4o-mini"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Temperature == 0 {
		c.Temperature = 0.2
	}
	if c.CallTimeout == "" {
		c.CallTimeout = "2m"
	}
}

func (c *ModelConfig) loadEnv() {
	if v := os.Getenv(EnvModelBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvModelAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvModelName); v != "" {
		c.Name = v
	}
	if v := os.Getenv(EnvModelMaxTokens); v != "" {
		if tokens, err := strconv.Atoi(v); err == nil {
			c.MaxTokens = tokens
		}
	}
	if v := os.Getenv(EnvModelTemperature); v != "" {
		if temp, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = temp
		}
	}
	if v := os.Getenv(EnvModelCallTimeout); v != "" {
		c.CallTimeout = v
	}
}

func (c *ModelConfig) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key required")
	}
	if c.Name == "" {
		return fmt.Errorf("name required")
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if _, err := time.ParseDuration(c.CallTimeout); err != nil {
		return fmt.Errorf("invalid call_timeout: %w", err)
	}
	return nil
}
