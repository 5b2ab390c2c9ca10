package main

import (
	"time"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/infrastructure"
	"github.com/parleyhq/parley/internal/workflow"
)

type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	pool    *workflow.Pool
	http    *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
	)

	return &Server{
		infra:   infra,
		modules: modules,
		pool:    workflow.NewPool(modules.Domain.Workflow),
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	// Workers stop when the lifecycle context cancels; mid-step messages
	// park in retry_pending and a restarted pool resumes them.
	go func() {
		if err := s.pool.Start(s.infra.Lifecycle.Context()); err != nil {
			s.infra.Logger.Error("worker pool stopped with error", "error", err)
		}
	}()

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
