package api

import (
	"fmt"
	"net/http"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/workflow"
	"github.com/parleyhq/parley/pkg/openapi"
	"github.com/parleyhq/parley/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) error {
	approvalsHandler := domain.Approvals.Handler()

	routes.Register(
		mux,
		domain.Messages.Handler().WithFeed(runtime.Feed).Routes(),
		workflow.NewHandler(domain.Workflow, runtime.Logger).Routes(),
		domain.Classifications.Handler().Routes(),
		approvalsHandler.Routes(),
		approvalsHandler.MetricsRoutes(),
	)

	spec, err := openapi.MarshalJSON(buildSpec(cfg))
	if err != nil {
		return fmt.Errorf("marshal openapi spec: %w", err)
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))

	return nil
}
