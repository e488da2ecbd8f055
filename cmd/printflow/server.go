package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/printforge/printflow/agents"
	"github.com/printforge/printflow/api/handlers"
	"github.com/printforge/printflow/comm"
	"github.com/printforge/printflow/config"
	"github.com/printforge/printflow/internal/metrics"
	"github.com/printforge/printflow/internal/telemetry"
	"github.com/printforge/printflow/orchestrator"
)

// Server wires the engine together: bus + agents → communicator →
// orchestrator → HTTP front door and metrics endpoint.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	orch      *orchestrator.Orchestrator
	bus       *comm.Bus
	providers *telemetry.Providers

	httpServer    *http.Server
	metricsServer *http.Server
}

// NewServer creates an unstarted server.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Run starts all components and blocks until SIGINT/SIGTERM.
func (s *Server) Run() error {
	providers, err := telemetry.Init(s.cfg.Telemetry, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		s.providers = providers
	}

	collector := metrics.NewCollector("printflow", prometheus.DefaultRegisterer, s.logger)

	s.bus = comm.NewBus(s.logger)
	s.bus.Register(agents.NewResearchAgent(s.logger))
	s.bus.Register(agents.NewCADAgent(s.logger))
	s.bus.Register(agents.NewSlicerAgent(s.logger))
	s.bus.Register(agents.NewPrinterAgent(s.logger))

	communicator := comm.NewCommunicator(s.bus, s.logger)

	s.orch = orchestrator.New(communicator, orchestrator.Config{
		MaxConcurrentWorkflows: s.cfg.Orchestrator.MaxConcurrentWorkflows,
		MaxRequestLength:       s.cfg.Orchestrator.MaxRequestLength,
		StepTimeout:            s.cfg.Orchestrator.StepTimeout,
		Retry: orchestrator.RetryPolicy{
			MaxRetries:   s.cfg.Orchestrator.MaxRetries,
			InitialDelay: s.cfg.Orchestrator.RetryInitialDelay,
			MaxDelay:     s.cfg.Orchestrator.RetryMaxDelay,
		},
	}, collector, s.logger)

	s.startHTTP()
	s.startMetrics()

	s.logger.Info("printflow ready",
		zap.Int("port", s.cfg.Server.Port),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Int("max_concurrent_workflows", s.cfg.Orchestrator.MaxConcurrentWorkflows),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	s.logger.Info("shutting down", zap.String("signal", sig.String()))

	return s.shutdown()
}

func (s *Server) startHTTP() {
	workflowHandler := handlers.NewWorkflowHandler(s.orch, s.logger)
	healthHandler := handlers.NewHealthHandler(s.orch)

	mux := http.NewServeMux()
	mux.Handle("/v1/workflows", workflowHandler)
	mux.Handle("/v1/workflows/", workflowHandler)
	mux.Handle("/healthz", healthHandler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      Chain(mux, Recovery(s.logger), RequestLogger(s.logger)),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()
}

func (s *Server) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.MetricsPort),
		Handler: mux,
	}

	go func() {
		if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("http server shutdown", zap.Error(err))
	}
	if err := s.metricsServer.Shutdown(ctx); err != nil {
		s.logger.Warn("metrics server shutdown", zap.Error(err))
	}
	if err := s.orch.Shutdown(ctx); err != nil {
		s.logger.Warn("orchestrator shutdown", zap.Error(err))
	}
	s.bus.Shutdown()
	if err := s.providers.Shutdown(ctx); err != nil {
		s.logger.Warn("telemetry shutdown", zap.Error(err))
	}

	s.logger.Info("shutdown complete")
	return nil
}
