package api

import (
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/infrastructure"
	"github.com/parleyhq/parley/pkg/events"
	"github.com/parleyhq/parley/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration and the
// shared state-change broadcaster.
type Runtime struct {
	*infrastructure.Infrastructure
	Config     *config.Config
	Pagination pagination.Config
	Feed       *events.Broadcaster
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
		},
		Config:     cfg,
		Pagination: cfg.API.Pagination,
		Feed:       events.New(cfg.API.EventBuffer),
	}
}
