package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	t.Parallel()
	err := NewError(ErrEmptyGraph, "workflow has no nodes")
	assert.Equal(t, "[EMPTY_GRAPH] workflow has no nodes", err.Error())
}

func TestError_ErrorWithCause(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection refused")
	err := NewError(ErrAgentInvocation, "strategy agent failed").WithCause(cause)
	assert.Equal(t, "[AGENT_INVOCATION] strategy agent failed: connection refused", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestError_WithNodeID(t *testing.T) {
	t.Parallel()
	err := NewError(ErrAgentInvocation, "boom").WithNodeID("node_3")
	assert.Equal(t, "node_3", err.NodeID)
}

func TestAsError(t *testing.T) {
	t.Parallel()
	base := NewError(ErrNotFound, "no snapshot")
	wrapped := fmt.Errorf("load: %w", base)

	got := AsError(wrapped)
	assert.NotNil(t, got)
	assert.Equal(t, ErrNotFound, got.Code)

	assert.Nil(t, AsError(errors.New("plain")))
	assert.Nil(t, AsError(nil))
}

func TestIsErrorCode(t *testing.T) {
	t.Parallel()
	err := NewError(ErrCyclicGraph, "2 nodes unresolvable")
	assert.True(t, IsErrorCode(err, ErrCyclicGraph))
	assert.False(t, IsErrorCode(err, ErrEmptyGraph))
	assert.False(t, IsErrorCode(errors.New("plain"), ErrCyclicGraph))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()
	assert.True(t, IsNotFound(NewError(ErrNotFound, "empty slot")))
	assert.False(t, IsNotFound(NewError(ErrEmptyGraph, "no nodes")))
}

func TestNodeStatus_Valid(t *testing.T) {
	t.Parallel()
	for _, s := range []NodeStatus{StatusIdle, StatusRunning, StatusSuccess, StatusError} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, NodeStatus("pending").Valid())
}

func TestNewNode_Defaults(t *testing.T) {
	t.Parallel()
	n := NewNode("node_0", AgentStrategy, "Strategy", Position{X: 10, Y: 20})
	assert.Equal(t, NodeKind, n.Type)
	assert.Equal(t, StatusIdle, n.Data.Status)
	assert.Empty(t, n.Data.Input)
	assert.Nil(t, n.Data.Output)
	assert.Nil(t, n.Data.LastRun)
	assert.True(t, n.Data.ShowInput)
}

func TestWorkflowDocument_Clone(t *testing.T) {
	t.Parallel()
	doc := &WorkflowDocument{
		Name:  "Campaign",
		Nodes: []Node{NewNode("a", AgentStrategy, "S", Position{})},
		Edges: []Edge{{ID: "e1", Source: "a", Target: "b"}},
	}

	clone := doc.Clone()
	clone.Nodes[0].Data.Input = "changed"
	clone.Edges[0].Target = "c"
	clone.Name = "Other"

	assert.Empty(t, doc.Nodes[0].Data.Input)
	assert.Equal(t, "b", doc.Edges[0].Target)
	assert.Equal(t, "Campaign", doc.Name)
}
