package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/canvasflow/types"
)

// fakeInvoker records every call and answers via fn, or echoes the input
// prefixed with the agent type when fn is nil.
type fakeInvoker struct {
	mu    sync.Mutex
	calls []fakeCall
	fn    func(agentType types.AgentType, input string) (any, error)
}

type fakeCall struct {
	AgentType types.AgentType
	Input     string
}

func (f *fakeInvoker) Invoke(ctx context.Context, agentType types.AgentType, input string) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{AgentType: agentType, Input: input})
	f.mu.Unlock()

	if f.fn != nil {
		return f.fn(agentType, input)
	}
	return fmt.Sprintf("%s:%s", agentType, input), nil
}

func (f *fakeInvoker) callInputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Input
	}
	return out
}

func TestCoordinatorRunSingleNode(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	n := testNode("solo", types.AgentStrategy)
	n.Data.Input = "launch a coffee brand"
	require.NoError(t, s.AddNode(n))

	inv := &fakeInvoker{}
	c := NewCoordinator(s, inv, nil, nil)

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusCompleted, report.Status)
	assert.Equal(t, 1, report.NodesExecuted)
	assert.Equal(t, 1, report.NodesTotal)

	// A node with no upstream receives its own input verbatim.
	require.Equal(t, []string{"launch a coffee brand"}, inv.callInputs())

	got, _ := s.Node("solo")
	assert.Equal(t, types.StatusSuccess, got.Data.Status)
	assert.Equal(t, "strategy:launch a coffee brand", got.Data.Output)
	require.NotNil(t, got.Data.LastRun)
}

func TestCoordinatorRunChainAggregatesInput(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	a := testNode("a", types.AgentStrategy)
	a.Data.Input = "brief"
	b := testNode("b", types.AgentCopywriting)
	b.Data.Input = "write the tagline"
	require.NoError(t, s.AddNode(a))
	require.NoError(t, s.AddNode(b))
	require.NoError(t, s.Connect(types.Edge{ID: "e1", Source: "a", Target: "b"}))

	inv := &fakeInvoker{fn: func(agentType types.AgentType, input string) (any, error) {
		if agentType == types.AgentStrategy {
			return "X", nil
		}
		return "done", nil
	}}
	c := NewCoordinator(s, inv, nil, nil)

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	// Upstream output comes first, blank line, then the node's own input.
	require.Len(t, inv.calls, 2)
	assert.Equal(t, "brief", inv.calls[0].Input)
	assert.Equal(t, "X\n\nwrite the tagline", inv.calls[1].Input)
}

func TestCoordinatorRunFanInJoinOrder(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))
	require.NoError(t, s.AddNode(testNode("b", types.AgentResearch)))
	sink := testNode("sink", types.AgentCopywriting)
	sink.Data.Input = "own"
	require.NoError(t, s.AddNode(sink))
	require.NoError(t, s.Connect(types.Edge{ID: "e1", Source: "a", Target: "sink"}))
	require.NoError(t, s.Connect(types.Edge{ID: "e2", Source: "b", Target: "sink"}))

	inv := &fakeInvoker{fn: func(agentType types.AgentType, input string) (any, error) {
		switch agentType {
		case types.AgentStrategy:
			return "from-a", nil
		case types.AgentResearch:
			return "from-b", nil
		}
		return "ok", nil
	}}
	c := NewCoordinator(s, inv, nil, nil)

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	// Upstream outputs join in edge order, then the node's own input.
	require.Len(t, inv.calls, 3)
	assert.Equal(t, "from-a\n\nfrom-b\n\nown", inv.calls[2].Input)
}

func TestCoordinatorRunStructuredOutputStringified(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	strat := testNode("s", types.AgentStrategy)
	strat.Data.Input = "coffee brand"
	copyN := testNode("c", types.AgentCopywriting)
	copyN.Data.Input = "three slogans"
	require.NoError(t, s.AddNode(strat))
	require.NoError(t, s.AddNode(copyN))
	require.NoError(t, s.Connect(types.Edge{ID: "e1", Source: "s", Target: "c"}))

	inv := &fakeInvoker{fn: func(agentType types.AgentType, input string) (any, error) {
		if agentType == types.AgentStrategy {
			return map[string]any{"tagline": "Brew Better"}, nil
		}
		return "slogans", nil
	}}
	stringify := func(v any) string {
		if m, ok := v.(map[string]any); ok {
			return fmt.Sprintf("tagline: %v", m["tagline"])
		}
		return fmt.Sprintf("%v", v)
	}
	c := NewCoordinator(s, inv, stringify, nil)

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	// The downstream node sees the stringified form; the store keeps the
	// structured value untouched.
	require.Len(t, inv.calls, 2)
	assert.Equal(t, "tagline: Brew Better\n\nthree slogans", inv.calls[1].Input)

	got, _ := s.Node("s")
	assert.Equal(t, map[string]any{"tagline": "Brew Better"}, got.Data.Output)
}

func TestCoordinatorRunFailFast(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))
	require.NoError(t, s.AddNode(testNode("b", types.AgentCopywriting)))
	require.NoError(t, s.AddNode(testNode("c", types.AgentVisual)))
	require.NoError(t, s.Connect(types.Edge{ID: "e1", Source: "a", Target: "b"}))
	require.NoError(t, s.Connect(types.Edge{ID: "e2", Source: "b", Target: "c"}))

	boom := errors.New("model unavailable")
	inv := &fakeInvoker{fn: func(agentType types.AgentType, input string) (any, error) {
		if agentType == types.AgentCopywriting {
			return nil, boom
		}
		return "ok", nil
	}}
	c := NewCoordinator(s, inv, nil, nil)

	report, err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrAgentInvocation))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "b", report.FailedNodeID)
	assert.Equal(t, ExecutionStatusFailed, report.Status)
	assert.Equal(t, 1, report.NodesExecuted)

	gotA, _ := s.Node("a")
	assert.Equal(t, types.StatusSuccess, gotA.Data.Status)

	gotB, _ := s.Node("b")
	assert.Equal(t, types.StatusError, gotB.Data.Status)
	assert.Equal(t, "Error: model unavailable", gotB.Data.Output)

	// Downstream of the failure never started.
	gotC, _ := s.Node("c")
	assert.Equal(t, types.StatusIdle, gotC.Data.Status)
	assert.Nil(t, gotC.Data.Output)
	require.Len(t, inv.calls, 2)
}

func TestCoordinatorRunResetsStaleResults(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))
	require.NoError(t, s.AddNode(testNode("b", types.AgentCopywriting)))
	require.NoError(t, s.Connect(types.Edge{ID: "e1", Source: "a", Target: "b"}))

	stale := types.StatusError
	staleOut := any("Error: old failure")
	s.UpdateNode("b", NodePatch{Status: &stale, Output: &staleOut})

	inv := &fakeInvoker{}
	c := NewCoordinator(s, inv, nil, nil)

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	got, _ := s.Node("b")
	assert.Equal(t, types.StatusSuccess, got.Data.Status)
	assert.NotContains(t, fmt.Sprintf("%v", got.Data.Output), "old failure")
}

func TestCoordinatorRunEmptyGraph(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(NewStore(nil), &fakeInvoker{}, nil, nil)

	report, err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrEmptyGraph))
	assert.Nil(t, report)
}

func TestCoordinatorRunCyclicGraph(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))
	require.NoError(t, s.AddNode(testNode("b", types.AgentCopywriting)))
	require.NoError(t, s.AddNode(testNode("c", types.AgentVisual)))
	require.NoError(t, s.Connect(types.Edge{ID: "e1", Source: "a", Target: "b"}))
	require.NoError(t, s.Connect(types.Edge{ID: "e2", Source: "b", Target: "c"}))
	require.NoError(t, s.Connect(types.Edge{ID: "e3", Source: "c", Target: "b"}))

	inv := &fakeInvoker{}
	c := NewCoordinator(s, inv, nil, nil)

	// A partially resolvable graph is rejected whole; no node runs.
	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrCyclicGraph))
	assert.Empty(t, inv.calls)

	// A fully cyclic graph reports no executable nodes.
	s.Clear()
	require.NoError(t, s.AddNode(testNode("x", types.AgentStrategy)))
	require.NoError(t, s.AddNode(testNode("y", types.AgentCopywriting)))
	require.NoError(t, s.Connect(types.Edge{ID: "e1", Source: "x", Target: "y"}))
	require.NoError(t, s.Connect(types.Edge{ID: "e2", Source: "y", Target: "x"}))

	_, err = c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrNoExecutableNodes))
}

func TestCoordinatorRunSingleFlight(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))

	started := make(chan struct{})
	release := make(chan struct{})
	inv := &fakeInvoker{fn: func(agentType types.AgentType, input string) (any, error) {
		close(started)
		<-release
		return "ok", nil
	}}
	c := NewCoordinator(s, inv, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background())
		done <- err
	}()

	<-started
	assert.True(t, c.Running())

	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrRunInProgress))

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.Running())
}

func TestCoordinatorRunCancelledContext(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := &fakeInvoker{}
	c := NewCoordinator(s, inv, nil, nil)

	report, err := c.Run(ctx)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrAgentInvocation))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ExecutionStatusFailed, report.Status)
	assert.Empty(t, inv.calls)

	// The node named as failed is also marked failed in the graph.
	assert.Equal(t, "a", report.FailedNodeID)
	node, _ := s.Node("a")
	assert.Equal(t, types.StatusError, node.Data.Status)
	assert.Equal(t, "Error: run cancelled", node.Data.Output)
}

type memorySink struct {
	mu        sync.Mutex
	histories []*ExecutionHistory
}

func (m *memorySink) SaveHistory(ctx context.Context, h *ExecutionHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories = append(m.histories, h)
	return nil
}

func TestCoordinatorRunRecordsHistory(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	s.SetName("History Demo")
	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))
	require.NoError(t, s.AddNode(testNode("b", types.AgentCopywriting)))
	require.NoError(t, s.Connect(types.Edge{ID: "e1", Source: "a", Target: "b"}))

	sink := &memorySink{}
	c := NewCoordinator(s, &fakeInvoker{}, nil, nil)
	c.SetHistorySink(sink)

	report, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.histories, 1)
	h := sink.histories[0]
	assert.Equal(t, report.ExecutionID, h.ExecutionID)
	assert.Equal(t, "History Demo", h.WorkflowName)
	assert.Equal(t, ExecutionStatusCompleted, h.Status)
	require.Len(t, h.GetNodes(), 2)

	rec := h.GetNodeByID("a")
	require.NotNil(t, rec)
	assert.Equal(t, types.AgentStrategy, rec.AgentType)
	assert.Equal(t, ExecutionStatusCompleted, rec.Status)
}

type recordingMetrics struct {
	mu           sync.Mutex
	runs         []string
	lastExecuted int
	nodeStatuses []string
}

func (m *recordingMetrics) RecordRun(status string, d time.Duration, nodesExecuted int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, status)
	m.lastExecuted = nodesExecuted
}

func (m *recordingMetrics) RecordNodeExecution(agentType, status string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodeStatuses = append(m.nodeStatuses, status)
}

func TestCoordinatorRunRecordsMetrics(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))

	m := &recordingMetrics{}
	c := NewCoordinator(s, &fakeInvoker{}, nil, nil)
	c.SetMetrics(m)

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.runs, 1)
	assert.Equal(t, string(ExecutionStatusCompleted), m.runs[0])
	assert.Equal(t, 1, m.lastExecuted)
	require.Len(t, m.nodeStatuses, 1)
	assert.Equal(t, "success", m.nodeStatuses[0])
}
