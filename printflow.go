// Package printflow provides a top-level convenience entry point for
// embedding the print workflow engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/printforge/printflow"
//
//	engine, err := printflow.New()
//	engine, err := printflow.New(printflow.WithMaxConcurrentWorkflows(5))
//
// This wires the in-process bus, the four pipeline workers, the
// communicator, and the orchestrator together. Use the individual
// packages directly when you need to swap workers or the transport.
package printflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/printforge/printflow/agents"
	"github.com/printforge/printflow/comm"
	"github.com/printforge/printflow/orchestrator"
)

// Engine bundles the orchestrator with the transport it runs on.
type Engine struct {
	*orchestrator.Orchestrator

	bus *comm.Bus
}

// Option configures the engine created by [New].
type Option func(*options)

type options struct {
	cfg    orchestrator.Config
	logger *zap.Logger
}

// WithMaxConcurrentWorkflows sets the concurrency gate capacity.
func WithMaxConcurrentWorkflows(n int) Option {
	return func(o *options) { o.cfg.MaxConcurrentWorkflows = n }
}

// WithStepTimeout sets the per-step worker response timeout.
func WithStepTimeout(d time.Duration) Option {
	return func(o *options) { o.cfg.StepTimeout = d }
}

// WithRetryPolicy sets the step retry policy.
func WithRetryPolicy(p orchestrator.RetryPolicy) Option {
	return func(o *options) { o.cfg.Retry = p }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a ready-to-use engine with the built-in workers registered.
func New(opts ...Option) (*Engine, error) {
	o := options{
		cfg:    orchestrator.DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	bus := comm.NewBus(o.logger)
	bus.Register(agents.NewResearchAgent(o.logger))
	bus.Register(agents.NewCADAgent(o.logger))
	bus.Register(agents.NewSlicerAgent(o.logger))
	bus.Register(agents.NewPrinterAgent(o.logger))

	communicator := comm.NewCommunicator(bus, o.logger)
	orch := orchestrator.New(communicator, o.cfg, nil, o.logger)

	return &Engine{Orchestrator: orch, bus: bus}, nil
}

// Close shuts down the orchestrator and drains in-flight bus work.
func (e *Engine) Close(ctx context.Context) error {
	err := e.Orchestrator.Shutdown(ctx)
	e.bus.Shutdown()
	return err
}
