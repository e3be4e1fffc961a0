// Package canvasflow provides a top-level convenience entry point for
// embedding the workflow engine without running the HTTP server.
//
// Usage:
//
//	import "github.com/BaSui01/canvasflow"
//
//	engine := canvasflow.New()
//	engine.Store.AddNode(...)
//	report, err := engine.Run(ctx)
//
// This is a thin wrapper that wires a graph store, the builtin agent
// registry and an execution coordinator together. Use the individual
// packages directly when you need custom wiring.
package canvasflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/canvasflow/agents"
	"github.com/BaSui01/canvasflow/workflow"
)

// Engine bundles the pieces needed to build and run a workflow in-process.
type Engine struct {
	Store       *workflow.Store
	Registry    *agents.Registry
	Coordinator *workflow.Coordinator
}

// Option configures the engine created by [New].
type Option func(*options)

type options struct {
	logger    *zap.Logger
	stepDelay time.Duration
	agents    []agents.Agent
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStepDelay inserts a pause between node executions, useful when
// demonstrating runs against a live canvas.
func WithStepDelay(d time.Duration) Option {
	return func(o *options) { o.stepDelay = d }
}

// WithAgent registers an additional agent, replacing any builtin agent
// with the same type.
func WithAgent(a agents.Agent) Option {
	return func(o *options) { o.agents = append(o.agents, a) }
}

// New creates an engine with the builtin agents registered.
func New(opts ...Option) *Engine {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store := workflow.NewStore(o.logger)
	registry := agents.NewBuiltinRegistry(o.logger)
	for _, a := range o.agents {
		registry.Register(a)
	}

	coordinator := workflow.NewCoordinator(store, registry, agents.Stringify, o.logger)
	coordinator.SetStepDelay(o.stepDelay)

	return &Engine{
		Store:       store,
		Registry:    registry,
		Coordinator: coordinator,
	}
}

// Run executes the whole graph in dependency order.
func (e *Engine) Run(ctx context.Context) (*workflow.RunReport, error) {
	return e.Coordinator.Run(ctx)
}
