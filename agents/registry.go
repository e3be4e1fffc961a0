package agents

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/canvasflow/types"
)

// Agent produces output for one agent type. Implementations must be safe
// for concurrent use; the registry does not serialize calls.
type Agent interface {
	Type() types.AgentType
	Run(ctx context.Context, input string) (any, error)
}

// Registry dispatches agent invocations by type. It satisfies the engine's
// Invoker interface, so a populated registry plugs straight into the
// coordinator.
type Registry struct {
	mu     sync.RWMutex
	agents map[types.AgentType]Agent
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		agents: make(map[types.AgentType]Agent),
		logger: logger.With(zap.String("component", "agent_registry")),
	}
}

// NewBuiltinRegistry creates a registry pre-populated with the five builtin
// marketing agents.
func NewBuiltinRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	for _, a := range builtinAgents() {
		r.Register(a)
	}
	return r
}

// Register adds an agent, replacing any previous agent of the same type.
func (r *Registry) Register(agent Agent) {
	r.mu.Lock()
	_, replaced := r.agents[agent.Type()]
	r.agents[agent.Type()] = agent
	r.mu.Unlock()

	if replaced {
		r.logger.Info("agent replaced", zap.String("agent_type", string(agent.Type())))
	}
}

// Types returns the registered agent types in sorted order.
func (r *Registry) Types() []types.AgentType {
	r.mu.RLock()
	out := make([]types.AgentType, 0, len(r.agents))
	for t := range r.agents {
		out = append(out, t)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Invoke dispatches to the agent registered for agentType. An unregistered
// type is an UNKNOWN_AGENT_TYPE error.
func (r *Registry) Invoke(ctx context.Context, agentType types.AgentType, input string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	agent, ok := r.agents[agentType]
	r.mu.RUnlock()

	if !ok {
		return nil, types.NewError(types.ErrUnknownAgentType,
			fmt.Sprintf("unknown agent type: %s", agentType))
	}

	r.logger.Debug("invoking agent",
		zap.String("agent_type", string(agentType)),
		zap.Int("input_len", len(input)),
	)
	return agent.Run(ctx, input)
}
