package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvEngineWorkers             = "PARLEY_ENGINE_WORKERS"
	EnvEnginePollInterval        = "PARLEY_ENGINE_POLL_INTERVAL"
	EnvEngineClaimBatch          = "PARLEY_ENGINE_CLAIM_BATCH"
	EnvEngineMaxAttempts         = "PARLEY_ENGINE_MAX_ATTEMPTS"
	EnvEngineBackoffBase         = "PARLEY_ENGINE_BACKOFF_BASE"
	EnvEngineConfidenceThreshold = "PARLEY_ENGINE_CONFIDENCE_THRESHOLD"
	EnvEngineForceHITL           = "PARLEY_ENGINE_FORCE_HITL"
	EnvEngineDispatchEndpoint    = "PARLEY_ENGINE_DISPATCH_ENDPOINT"
	EnvEngineDispatchToken       = "PARLEY_ENGINE_DISPATCH_TOKEN"
)

// EngineConfig holds worker pool, retry, triage policy, and dispatch
// settings for the workflow engine.
type EngineConfig struct {
	Workers             int      `toml:"workers"`
	PollInterval        string   `toml:"poll_interval"`
	ClaimBatch          int      `toml:"claim_batch"`
	MaxAttempts         int      `toml:"max_attempts"`
	BackoffBase         string   `toml:"backoff_base"`
	ConfidenceThreshold float64  `toml:"confidence_threshold"`
	SafeIntents         []string `toml:"safe_intents"`
	CriticalFlags       []string `toml:"critical_flags"`
	ForceHITL           bool     `toml:"force_hitl"`
	DispatchEndpoint    string   `toml:"dispatch_endpoint"`
	DispatchToken       string   `toml:"dispatch_token"`
}

// PollIntervalDuration returns PollInterval as a time.Duration.
func (c *EngineConfig) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	return d
}

// BackoffBaseDuration returns BackoffBase as a time.Duration.
func (c *EngineConfig) BackoffBaseDuration() time.Duration {
	d, _ := time.ParseDuration(c.BackoffBase)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
// Triage policy defaults (threshold, safe intents, critical flags) are left
// zero here; the triage package owns them.
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
	if overlay.PollInterval != "" {
		c.PollInterval = overlay.PollInterval
	}
	if overlay.ClaimBatch != 0 {
		c.ClaimBatch = overlay.ClaimBatch
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.BackoffBase != "" {
		c.BackoffBase = overlay.BackoffBase
	}
	if overlay.ConfidenceThreshold != 0 {
		c.ConfidenceThreshold = overlay.ConfidenceThreshold
	}
	if len(overlay.SafeIntents) > 0 {
		c.SafeIntents = overlay.SafeIntents
	}
	if len(overlay.CriticalFlags) > 0 {
		c.CriticalFlags = overlay.CriticalFlags
	}
	if overlay.ForceHITL {
		c.ForceHITL = true
	}
	if overlay.DispatchEndpoint != "" {
		c.DispatchEndpoint = overlay.DispatchEndpoint
	}
	if overlay.DispatchToken != "" {
		c.DispatchToken = overlay.DispatchToken
	}
}

func (c *EngineConfig) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.PollInterval == "" {
		c.PollInterval = "2s"
	}
	if c.ClaimBatch == 0 {
		c.ClaimBatch = 10
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase == "" {
		c.BackoffBase = "1s"
	}
}

func (c *EngineConfig) loadEnv() {
	if v := os.Getenv(EnvEngineWorkers); v != "" {
		if workers, err := strconv.Atoi(v); err == nil {
			c.Workers = workers
		}
	}
	if v := os.Getenv(EnvEnginePollInterval); v != "" {
		c.PollInterval = v
	}
	if v := os.Getenv(EnvEngineClaimBatch); v != "" {
		if batch, err := strconv.Atoi(v); err == nil {
			c.ClaimBatch = batch
		}
	}
	if v := os.Getenv(EnvEngineMaxAttempts); v != "" {
		if attempts, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = attempts
		}
	}
	if v := os.Getenv(EnvEngineBackoffBase); v != "" {
		c.BackoffBase = v
	}
	if v := os.Getenv(EnvEngineConfidenceThreshold); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			c.ConfidenceThreshold = threshold
		}
	}
	if v := os.Getenv(EnvEngineForceHITL); v != "" {
		c.ForceHITL = strings.EqualFold(v, "true")
	}
	if v := os.Getenv(EnvEngineDispatchEndpoint); v != "" {
		c.DispatchEndpoint = v
	}
	if v := os.Getenv(EnvEngineDispatchToken); v != "" {
		c.DispatchToken = v
	}
}

func (c *EngineConfig) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("invalid workers: %d", c.Workers)
	}
	if _, err := time.ParseDuration(c.PollInterval); err != nil {
		return fmt.Errorf("invalid poll_interval: %w", err)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("invalid max_attempts: %d", c.MaxAttempts)
	}
	if _, err := time.ParseDuration(c.BackoffBase); err != nil {
		return fmt.Errorf("invalid backoff_base: %w", err)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("invalid confidence_threshold: %f", c.ConfidenceThreshold)
	}
	return nil
}
