// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/infrastructure"
	"github.com/parleyhq/parley/pkg/middleware"
	"github.com/parleyhq/parley/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The returned Domain carries the workflow runtime so the server can start
// the background worker pool alongside the HTTP listener.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, *Domain, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, cfg, runtime); err != nil {
		return nil, nil, err
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, domain, nil
}
