package config

import (
	"fmt"
	"os"

	"github.com/parleyhq/parley/pkg/formatting"
	"github.com/parleyhq/parley/pkg/middleware"
	"github.com/parleyhq/parley/pkg/openapi"
	"github.com/parleyhq/parley/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "PARLEY_CORS_ENABLED",
	Origins:          "PARLEY_CORS_ORIGINS",
	AllowedMethods:   "PARLEY_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "PARLEY_CORS_ALLOWED_HEADERS",
	AllowCredentials: "PARLEY_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "PARLEY_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "PARLEY_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "PARLEY_PAGINATION_MAX_PAGE_SIZE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "PARLEY_OPENAPI_TITLE",
	Description: "PARLEY_OPENAPI_DESCRIPTION",
}

// APIConfig holds API routing, CORS, pagination, and intake limits.
type APIConfig struct {
	BasePath       string                `toml:"base_path"`
	MaxContentSize string                `toml:"max_content_size"`
	EventBuffer    int                   `toml:"event_buffer"`
	CORS           middleware.CORSConfig `toml:"cors"`
	Pagination     pagination.Config     `toml:"pagination"`
	OpenAPI        openapi.Config        `toml:"openapi"`
}

// MaxContentSizeBytes returns the largest accepted message content size.
func (c *APIConfig) MaxContentSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxContentSize)
	if err != nil {
		return 16 * 1024 // 16KB fallback
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxContentSize != "" {
		c.MaxContentSize = overlay.MaxContentSize
	}
	if overlay.EventBuffer != 0 {
		c.EventBuffer = overlay.EventBuffer
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxContentSize == "" {
		c.MaxContentSize = "16KB"
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = 64
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("PARLEY_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("PARLEY_API_MAX_CONTENT_SIZE"); v != "" {
		c.MaxContentSize = v
	}
}
