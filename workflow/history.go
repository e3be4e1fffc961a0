package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/canvasflow/types"
)

// ExecutionStatus represents the status of one full run.
type ExecutionStatus string

const (
	// ExecutionStatusRunning indicates the run is in progress.
	ExecutionStatusRunning ExecutionStatus = "running"
	// ExecutionStatusCompleted indicates the run completed successfully.
	ExecutionStatusCompleted ExecutionStatus = "completed"
	// ExecutionStatusFailed indicates the run failed.
	ExecutionStatusFailed ExecutionStatus = "failed"
)

// NodeExecution records the execution of a single node.
type NodeExecution struct {
	NodeID    string          `json:"node_id"`
	AgentType types.AgentType `json:"agent_type"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Duration  time.Duration   `json:"duration"`
	Status    ExecutionStatus `json:"status"`
	Input     string          `json:"input,omitempty"`
	Output    any             `json:"output,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// ExecutionHistory records the complete execution path of one run.
type ExecutionHistory struct {
	ExecutionID  string           `json:"execution_id"`
	WorkflowName string           `json:"workflow_name"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
	Duration     time.Duration    `json:"duration"`
	Status       ExecutionStatus  `json:"status"`
	Nodes        []*NodeExecution `json:"nodes"`
	Error        string           `json:"error,omitempty"`
	mu           sync.RWMutex
}

// NewExecutionHistory creates a history in the running state.
func NewExecutionHistory(executionID, workflowName string) *ExecutionHistory {
	return &ExecutionHistory{
		ExecutionID:  executionID,
		WorkflowName: workflowName,
		StartTime:    time.Now(),
		Status:       ExecutionStatusRunning,
		Nodes:        make([]*NodeExecution, 0),
	}
}

// RecordNodeStart records the start of a node execution.
func (h *ExecutionHistory) RecordNodeStart(nodeID string, agentType types.AgentType, input string) *NodeExecution {
	h.mu.Lock()
	defer h.mu.Unlock()

	node := &NodeExecution{
		NodeID:    nodeID,
		AgentType: agentType,
		StartTime: time.Now(),
		Status:    ExecutionStatusRunning,
		Input:     input,
	}
	h.Nodes = append(h.Nodes, node)
	return node
}

// RecordNodeEnd records the end of a node execution.
func (h *ExecutionHistory) RecordNodeEnd(node *NodeExecution, output any, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	node.EndTime = time.Now()
	node.Duration = node.EndTime.Sub(node.StartTime)
	node.Output = output

	if err != nil {
		node.Status = ExecutionStatusFailed
		node.Error = err.Error()
	} else {
		node.Status = ExecutionStatusCompleted
	}
}

// Complete marks the run as finished.
func (h *ExecutionHistory) Complete(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.EndTime = time.Now()
	h.Duration = h.EndTime.Sub(h.StartTime)

	if err != nil {
		h.Status = ExecutionStatusFailed
		h.Error = err.Error()
	} else {
		h.Status = ExecutionStatusCompleted
	}
}

// GetNodes returns a copy of the node execution records.
func (h *ExecutionHistory) GetNodes() []*NodeExecution {
	h.mu.RLock()
	defer h.mu.RUnlock()

	nodes := make([]*NodeExecution, len(h.Nodes))
	copy(nodes, h.Nodes)
	return nodes
}

// GetNodeByID returns the execution record for a specific node.
func (h *ExecutionHistory) GetNodeByID(nodeID string) *NodeExecution {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, node := range h.Nodes {
		if node.NodeID == nodeID {
			return node
		}
	}
	return nil
}

// HistorySink receives completed execution histories for durable storage.
type HistorySink interface {
	SaveHistory(ctx context.Context, history *ExecutionHistory) error
}
