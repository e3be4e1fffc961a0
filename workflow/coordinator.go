package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/canvasflow/types"
)

// inputSeparator joins upstream outputs and the node's own input.
const inputSeparator = "\n\n"

// runningPlaceholder is the transient output shown while a node's agent
// call is in flight, so observers see immediate feedback.
const runningPlaceholder = "Processing..."

// Invoker is the external agent call. The coordinator treats the result as
// opaque: plain text or a structured value, never interpreted beyond
// stringification for downstream input concatenation.
type Invoker interface {
	Invoke(ctx context.Context, agentType types.AgentType, input string) (any, error)
}

// MetricsRecorder receives execution metrics. Optional.
type MetricsRecorder interface {
	RecordRun(status string, duration time.Duration, nodesExecuted int)
	RecordNodeExecution(agentType, status string, duration time.Duration)
}

// RunReport summarizes one full run.
type RunReport struct {
	ExecutionID   string          `json:"execution_id"`
	WorkflowName  string          `json:"workflow_name"`
	Status        ExecutionStatus `json:"status"`
	NodesTotal    int             `json:"nodes_total"`
	NodesExecuted int             `json:"nodes_executed"`
	FailedNodeID  string          `json:"failed_node_id,omitempty"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	Duration      time.Duration   `json:"duration"`
}

// Coordinator drives a full run of the graph: it asks the scheduler for an
// order, walks it sequentially, aggregates upstream outputs into each
// node's input, invokes the external agent call, and updates node status
// through the store. One node's failure aborts the whole pass.
type Coordinator struct {
	store     *Store
	invoker   Invoker
	logger    *zap.Logger
	stringify func(any) string
	history   HistorySink
	metrics   MetricsRecorder
	stepDelay time.Duration
	running   atomic.Bool
}

// NewCoordinator creates a coordinator bound to a store and an agent
// invoker. stringify converts structured agent outputs to text for input
// concatenation; nil falls back to fmt.Sprintf("%v", ...).
func NewCoordinator(store *Store, invoker Invoker, stringify func(any) string, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stringify == nil {
		stringify = func(v any) string { return fmt.Sprintf("%v", v) }
	}
	return &Coordinator{
		store:     store,
		invoker:   invoker,
		stringify: stringify,
		logger:    logger.With(zap.String("component", "coordinator")),
	}
}

// SetHistorySink registers a sink for completed execution histories.
// Wiring setters are not synchronized with Run; call them before the
// first Run.
func (c *Coordinator) SetHistorySink(sink HistorySink) {
	c.history = sink
}

// SetMetrics registers a metrics recorder. Call before the first Run.
func (c *Coordinator) SetMetrics(m MetricsRecorder) {
	c.metrics = m
}

// SetStepDelay sets the inter-step pacing delay. It exists purely for
// observability and defaults to zero. Call before the first Run.
func (c *Coordinator) SetStepDelay(d time.Duration) {
	c.stepDelay = d
}

// Running reports whether a run is currently in flight.
func (c *Coordinator) Running() bool {
	return c.running.Load()
}

// Run executes the whole graph in dependency order.
//
// At most one run may be in flight at a time; a concurrent call fails with
// RUN_IN_PROGRESS. An empty graph fails with EMPTY_GRAPH. A graph whose
// scheduler order is empty fails with NO_EXECUTABLE_NODES, and a partially
// resolvable graph (cycles) is rejected whole with CYCLIC_GRAPH rather
// than silently executing the resolvable prefix.
//
// Before the first step every node in the order is reset to idle with a
// nil output, so a re-run never shows mixed old and new results. Nodes run
// strictly one at a time; when an agent call fails the node is marked
// error, the run aborts, and nodes not yet started remain idle.
func (c *Coordinator) Run(ctx context.Context) (*RunReport, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, types.NewError(types.ErrRunInProgress, "a workflow run is already in flight")
	}
	defer c.running.Store(false)

	nodes, edges := c.store.Snapshot()
	if len(nodes) == 0 {
		return nil, types.NewError(types.ErrEmptyGraph, "workflow has no nodes")
	}

	order := ExecutionOrder(nodes, edges)
	if len(order) == 0 {
		return nil, types.NewError(types.ErrNoExecutableNodes, "no executable nodes: every node depends on a cycle")
	}
	if len(order) < len(nodes) {
		return nil, types.NewError(types.ErrCyclicGraph,
			fmt.Sprintf("graph contains a cycle: %d of %d nodes unresolvable", len(nodes)-len(order), len(nodes)))
	}

	executionID := "exec_" + uuid.NewString()
	history := NewExecutionHistory(executionID, c.store.Name())
	report := &RunReport{
		ExecutionID:  executionID,
		WorkflowName: c.store.Name(),
		NodesTotal:   len(order),
		StartTime:    history.StartTime,
	}

	c.logger.Info("starting workflow run",
		zap.String("execution_id", executionID),
		zap.String("workflow", report.WorkflowName),
		zap.Int("nodes", len(order)),
	)

	// Reset pass: clear stale results from a prior run before any node
	// starts, so observers never see mixed old/new output.
	idle := types.StatusIdle
	var nilOutput any
	for _, n := range order {
		c.store.UpdateNode(n.ID, NodePatch{Status: &idle, Output: &nilOutput})
	}

	for i, n := range order {
		if err := ctx.Err(); err != nil {
			// Mark the node that was about to run, so the graph agrees
			// with the report's failed_node_id.
			failed := types.StatusError
			msg := any("Error: run cancelled")
			c.store.UpdateNode(n.ID, NodePatch{Status: &failed, Output: &msg})
			return c.finish(ctx, report, history, n.ID,
				types.NewError(types.ErrAgentInvocation, "run cancelled").WithNodeID(n.ID).WithCause(err))
		}

		combined := c.gatherInput(n.ID)

		running := types.StatusRunning
		placeholder := any(runningPlaceholder)
		c.store.UpdateNode(n.ID, NodePatch{Status: &running, Output: &placeholder})

		rec := history.RecordNodeStart(n.ID, n.Data.AgentType, combined)
		start := time.Now()

		result, err := c.invoker.Invoke(ctx, n.Data.AgentType, combined)
		elapsed := time.Since(start)

		if err != nil {
			failed := types.StatusError
			msg := any("Error: " + err.Error())
			c.store.UpdateNode(n.ID, NodePatch{Status: &failed, Output: &msg})
			history.RecordNodeEnd(rec, nil, err)
			if c.metrics != nil {
				c.metrics.RecordNodeExecution(string(n.Data.AgentType), "error", elapsed)
			}
			c.logger.Error("node execution failed",
				zap.String("execution_id", executionID),
				zap.String("node_id", n.ID),
				zap.String("agent_type", string(n.Data.AgentType)),
				zap.Duration("duration", elapsed),
				zap.Error(err),
			)
			return c.finish(ctx, report, history, n.ID,
				types.NewError(types.ErrAgentInvocation,
					fmt.Sprintf("agent %s failed on node %s", n.Data.AgentType, n.ID)).
					WithNodeID(n.ID).WithCause(err))
		}

		now := time.Now()
		success := types.StatusSuccess
		out := result
		c.store.UpdateNode(n.ID, NodePatch{Status: &success, Output: &out, LastRun: &now})
		history.RecordNodeEnd(rec, result, nil)
		report.NodesExecuted++
		if c.metrics != nil {
			c.metrics.RecordNodeExecution(string(n.Data.AgentType), "success", elapsed)
		}

		c.logger.Debug("node execution completed",
			zap.String("execution_id", executionID),
			zap.String("node_id", n.ID),
			zap.Duration("duration", elapsed),
		)

		if c.stepDelay > 0 && i < len(order)-1 {
			select {
			case <-time.After(c.stepDelay):
			case <-ctx.Done():
			}
		}
	}

	return c.finish(ctx, report, history, "", nil)
}

// gatherInput collects the current outputs of every upstream node feeding
// id, in edge-discovery order, re-read from the store rather than the run's
// initial snapshot. Missing or empty upstream output is skipped with a
// warning. Upstream text is prepended to the node's own authored input.
func (c *Coordinator) gatherInput(id string) string {
	node, ok := c.store.Node(id)
	if !ok {
		return ""
	}

	_, edges := c.store.Snapshot()
	var upstream []string
	for _, e := range edges {
		if e.Target != id {
			continue
		}
		source, ok := c.store.Node(e.Source)
		if !ok || source.Data.Output == nil {
			c.logger.Warn("upstream output missing, skipping",
				zap.String("node_id", id),
				zap.String("source_id", e.Source),
			)
			continue
		}
		text := c.stringify(source.Data.Output)
		if strings.TrimSpace(text) == "" {
			c.logger.Warn("upstream output empty, skipping",
				zap.String("node_id", id),
				zap.String("source_id", e.Source),
			)
			continue
		}
		upstream = append(upstream, text)
	}

	if len(upstream) == 0 {
		return node.Data.Input
	}
	return strings.Join(upstream, inputSeparator) + inputSeparator + node.Data.Input
}

// finish completes the history, persists it, records metrics, and shapes
// the final report. err is nil on success.
func (c *Coordinator) finish(ctx context.Context, report *RunReport, history *ExecutionHistory, failedNodeID string, err error) (*RunReport, error) {
	history.Complete(err)
	report.EndTime = history.EndTime
	report.Duration = history.Duration
	report.Status = history.Status
	report.FailedNodeID = failedNodeID

	if c.metrics != nil {
		c.metrics.RecordRun(string(report.Status), report.Duration, report.NodesExecuted)
	}
	if c.history != nil {
		if saveErr := c.history.SaveHistory(ctx, history); saveErr != nil {
			c.logger.Warn("failed to persist execution history",
				zap.String("execution_id", history.ExecutionID),
				zap.Error(saveErr),
			)
		}
	}

	if err != nil {
		c.logger.Error("workflow run failed",
			zap.String("execution_id", history.ExecutionID),
			zap.Int("nodes_executed", report.NodesExecuted),
			zap.Error(err),
		)
		return report, err
	}

	c.logger.Info("workflow run completed",
		zap.String("execution_id", history.ExecutionID),
		zap.Int("nodes_executed", report.NodesExecuted),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}
