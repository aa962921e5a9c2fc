package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/lucid/engine"
)

const (
	EnvEngineWorkers         = "LUCID_ENGINE_WORKERS"
	EnvEngineJobTimeout      = "LUCID_ENGINE_JOB_TIMEOUT"
	EnvEngineStepTimeout     = "LUCID_ENGINE_STEP_TIMEOUT"
	EnvEngineMaxAttempts     = "LUCID_ENGINE_MAX_ATTEMPTS"
	EnvEngineInitialDelay    = "LUCID_ENGINE_INITIAL_DELAY"
	EnvEngineBackoffFactor   = "LUCID_ENGINE_BACKOFF_FACTOR"
	EnvEngineMaxDelay        = "LUCID_ENGINE_MAX_DELAY"
	EnvEngineUnresolvedClass = "LUCID_ENGINE_UNRESOLVED_CLASS"
	EnvEngineProgressTTL     = "LUCID_ENGINE_PROGRESS_TTL"
)

// EngineConfig holds pipeline execution parameters.
type EngineConfig struct {
	Workers         int     `toml:"workers"`
	JobTimeout      string  `toml:"job_timeout"`
	StepTimeout     string  `toml:"step_timeout"`
	MaxAttempts     int     `toml:"max_attempts"`
	InitialDelay    string  `toml:"initial_delay"`
	BackoffFactor   float64 `toml:"backoff_factor"`
	MaxDelay        string  `toml:"max_delay"`
	UnresolvedClass string  `toml:"unresolved_class"`
	ProgressTTL     string  `toml:"progress_ttl"`
}

// JobTimeoutDuration returns JobTimeout as a time.Duration.
func (c *EngineConfig) JobTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.JobTimeout)
	return d
}

// StepTimeoutDuration returns StepTimeout as a time.Duration.
func (c *EngineConfig) StepTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StepTimeout)
	return d
}

// ProgressTTLDuration returns ProgressTTL as a time.Duration.
func (c *EngineConfig) ProgressTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.ProgressTTL)
	return d
}

// RetryPolicy builds the engine retry policy from the configured values.
func (c *EngineConfig) RetryPolicy() engine.RetryPolicy {
	initial, _ := time.ParseDuration(c.InitialDelay)
	max, _ := time.ParseDuration(c.MaxDelay)
	return engine.RetryPolicy{
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: initial,
		Factor:       c.BackoffFactor,
		MaxDelay:     max,
		Jitter:       true,
	}
}

// UnresolvedPolicy returns the configured unresolved class policy.
func (c *EngineConfig) UnresolvedPolicy() engine.UnresolvedPolicy {
	return engine.UnresolvedPolicy(c.UnresolvedClass)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *EngineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *EngineConfig) Merge(overlay *EngineConfig) {
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.JobTimeout != "" {
		c.JobTimeout = overlay.JobTimeout
	}
	if overlay.StepTimeout != "" {
		c.StepTimeout = overlay.StepTimeout
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.InitialDelay != "" {
		c.InitialDelay = overlay.InitialDelay
	}
	if overlay.BackoffFactor != 0 {
		c.BackoffFactor = overlay.BackoffFactor
	}
	if overlay.MaxDelay != "" {
		c.MaxDelay = overlay.MaxDelay
	}
	if overlay.UnresolvedClass != "" {
		c.UnresolvedClass = overlay.UnresolvedClass
	}
	if overlay.ProgressTTL != "" {
		c.ProgressTTL = overlay.ProgressTTL
	}
}

func (c *EngineConfig) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.JobTimeout == "" {
		c.JobTimeout = "30m"
	}
	if c.StepTimeout == "" {
		c.StepTimeout = "2m"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay == "" {
		c.InitialDelay = "500ms"
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = 2.0
	}
	if c.MaxDelay == "" {
		c.MaxDelay = "30s"
	}
	if c.UnresolvedClass == "" {
		c.UnresolvedClass = string(engine.UnresolvedFallback)
	}
	if c.ProgressTTL == "" {
		c.ProgressTTL = "1h"
	}
}

func (c *EngineConfig) loadEnv() {
	if v := os.Getenv(EnvEngineWorkers); v != "" {
		if workers, err := strconv.Atoi(v); err == nil {
			c.Workers = workers
		}
	}
	if v := os.Getenv(EnvEngineJobTimeout); v != "" {
		c.JobTimeout = v
	}
	if v := os.Getenv(EnvEngineStepTimeout); v != "" {
		c.StepTimeout = v
	}
	if v := os.Getenv(EnvEngineMaxAttempts); v != "" {
		if attempts, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = attempts
		}
	}
	if v := os.Getenv(EnvEngineInitialDelay); v != "" {
		c.InitialDelay = v
	}
	if v := os.Getenv(EnvEngineBackoffFactor); v != "" {
		if factor, err := strconv.ParseFloat(v, 64); err == nil {
			c.BackoffFactor = factor
		}
	}
	if v := os.Getenv(EnvEngineMaxDelay); v != "" {
		c.MaxDelay = v
	}
	if v := os.Getenv(EnvEngineUnresolvedClass); v != "" {
		c.UnresolvedClass = v
	}
	if v := os.Getenv(EnvEngineProgressTTL); v != "" {
		c.ProgressTTL = v
	}
}

func (c *EngineConfig) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive")
	}
	if c.BackoffFactor < 1 {
		return fmt.Errorf("backoff_factor must be at least 1")
	}
	switch engine.UnresolvedPolicy(c.UnresolvedClass) {
	case engine.UnresolvedFail, engine.UnresolvedFallback:
	default:
		return fmt.Errorf("invalid unresolved_class: %s", c.UnresolvedClass)
	}
	for name, value := range map[string]string{
		"job_timeout":   c.JobTimeout,
		"step_timeout":  c.StepTimeout,
		"initial_delay": c.InitialDelay,
		"max_delay":     c.MaxDelay,
		"progress_ttl":  c.ProgressTTL,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}
