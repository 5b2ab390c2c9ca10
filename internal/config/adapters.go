package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvAdaptersToken           = "PARLEY_ADAPTERS_TOKEN"
	EnvAdaptersBaseURL         = "PARLEY_ADAPTERS_BASE_URL"
	EnvAdaptersClassifierModel = "PARLEY_ADAPTERS_CLASSIFIER_MODEL"
	EnvAdaptersDrafterModel    = "PARLEY_ADAPTERS_DRAFTER_MODEL"
	EnvAdaptersVerifierModel   = "PARLEY_ADAPTERS_VERIFIER_MODEL"
	EnvAdaptersRequestTimeout  = "PARLEY_ADAPTERS_REQUEST_TIMEOUT"
	EnvAdaptersMaxTokens       = "PARLEY_ADAPTERS_MAX_TOKENS"
)

// AdaptersConfig holds model service settings for the classifier, drafter,
// and verifier adapters. An empty token selects the static adapters.
type AdaptersConfig struct {
	Token           string `toml:"token"`
	BaseURL         string `toml:"base_url"`
	ClassifierModel string `toml:"classifier_model"`
	DrafterModel    string `toml:"drafter_model"`
	VerifierModel   string `toml:"verifier_model"`
	RequestTimeout  string `toml:"request_timeout"`
	MaxTokens       int    `toml:"max_tokens"`
}

// RequestTimeoutDuration returns RequestTimeout as a time.Duration.
func (c *AdaptersConfig) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AdaptersConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AdaptersConfig) Merge(overlay *AdaptersConfig) {
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.ClassifierModel != "" {
		c.ClassifierModel = overlay.ClassifierModel
	}
	if overlay.DrafterModel != "" {
		c.DrafterModel = overlay.DrafterModel
	}
	if overlay.VerifierModel != "" {
		c.VerifierModel = overlay.VerifierModel
	}
	if overlay.RequestTimeout != "" {
		c.RequestTimeout = overlay.RequestTimeout
	}
	if overlay.MaxTokens != 0 {
		c.MaxTokens = overlay.MaxTokens
	}
}

func (c *AdaptersConfig) loadDefaults() {
	if c.ClassifierModel == "" {
		c.ClassifierModel = "gpt-4o-mini"
	}
	if c.DrafterModel == "" {
		c.DrafterModel = "gpt-4o"
	}
	if c.VerifierModel == "" {
		c.VerifierModel = "gpt-4o-mini"
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "30s"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1024
	}
}

func (c *AdaptersConfig) loadEnv() {
	if v := os.Getenv(EnvAdaptersToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvAdaptersBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvAdaptersClassifierModel); v != "" {
		c.ClassifierModel = v
	}
	if v := os.Getenv(EnvAdaptersDrafterModel); v != "" {
		c.DrafterModel = v
	}
	if v := os.Getenv(EnvAdaptersVerifierModel); v != "" {
		c.VerifierModel = v
	}
	if v := os.Getenv(EnvAdaptersRequestTimeout); v != "" {
		c.RequestTimeout = v
	}
	if v := os.Getenv(EnvAdaptersMaxTokens); v != "" {
		if tokens, err := strconv.Atoi(v); err == nil {
			c.MaxTokens = tokens
		}
	}
}

func (c *AdaptersConfig) validate() error {
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %w", err)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("invalid max_tokens: %d", c.MaxTokens)
	}
	return nil
}
