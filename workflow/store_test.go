package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/canvasflow/types"
)

func testNode(id string, agentType types.AgentType) types.Node {
	return types.NewNode(id, agentType, string(agentType), types.Position{X: 100, Y: 100})
}

func TestStoreAddNode(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)

	require.NoError(t, s.AddNode(testNode("n1", types.AgentStrategy)))
	assert.Equal(t, 1, s.NodeCount())

	got, ok := s.Node("n1")
	require.True(t, ok)
	assert.Equal(t, types.NodeKind, got.Type)
	assert.Equal(t, types.StatusIdle, got.Data.Status)

	// Duplicate ids are rejected, never silently replaced.
	err := s.AddNode(testNode("n1", types.AgentCopywriting))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
	assert.Equal(t, 1, s.NodeCount())
}

func TestStoreUpdateNode(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("n1", types.AgentStrategy)))

	status := types.StatusRunning
	input := "summer launch brief"
	label := "Strategy Lead"
	s.UpdateNode("n1", NodePatch{Status: &status, Input: &input, Label: &label})

	got, ok := s.Node("n1")
	require.True(t, ok)
	assert.Equal(t, types.StatusRunning, got.Data.Status)
	assert.Equal(t, "summer launch brief", got.Data.Input)
	assert.Equal(t, "Strategy Lead", got.Data.Label)

	// Nil patch fields leave existing values untouched.
	out := any("draft plan")
	s.UpdateNode("n1", NodePatch{Output: &out})
	got, _ = s.Node("n1")
	assert.Equal(t, "draft plan", got.Data.Output)
	assert.Equal(t, "summer launch brief", got.Data.Input)

	// Output patch pointing at nil clears a stale result.
	var cleared any
	s.UpdateNode("n1", NodePatch{Output: &cleared})
	got, _ = s.Node("n1")
	assert.Nil(t, got.Data.Output)

	// Unknown id is a no-op, not a panic and not an insert.
	s.UpdateNode("ghost", NodePatch{Status: &status})
	assert.Equal(t, 1, s.NodeCount())
}

func TestStoreRemoveNodeCascadesEdges(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))
	require.NoError(t, s.AddNode(testNode("b", types.AgentCopywriting)))
	require.NoError(t, s.AddNode(testNode("c", types.AgentVisual)))
	require.NoError(t, s.Connect(types.Edge{ID: "e1", Source: "a", Target: "b"}))
	require.NoError(t, s.Connect(types.Edge{ID: "e2", Source: "b", Target: "c"}))
	require.NoError(t, s.Connect(types.Edge{ID: "e3", Source: "a", Target: "c"}))

	s.RemoveNode("b")

	nodes, edges := s.Snapshot()
	assert.Len(t, nodes, 2)
	require.Len(t, edges, 1)
	assert.Equal(t, "e3", edges[0].ID)
}

func TestStoreConnect(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))
	require.NoError(t, s.AddNode(testNode("b", types.AgentCopywriting)))

	// Endpoints must exist.
	err := s.Connect(types.Edge{Source: "a", Target: "ghost"})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))

	err = s.Connect(types.Edge{Source: "ghost", Target: "b"})
	require.Error(t, err)

	// A blank id gets generated.
	require.NoError(t, s.Connect(types.Edge{Source: "a", Target: "b"}))
	_, edges := s.Snapshot()
	require.Len(t, edges, 1)
	assert.NotEmpty(t, edges[0].ID)

	// An exact duplicate pair is deduplicated and keeps the existing edge.
	firstID := edges[0].ID
	require.NoError(t, s.Connect(types.Edge{ID: "e-dup", Source: "a", Target: "b"}))
	_, edges = s.Snapshot()
	require.Len(t, edges, 1)
	assert.Equal(t, firstID, edges[0].ID)
}

func TestStoreDisconnect(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))
	require.NoError(t, s.AddNode(testNode("b", types.AgentCopywriting)))
	require.NoError(t, s.Connect(types.Edge{ID: "e1", Source: "a", Target: "b"}))

	s.Disconnect("nope")
	_, edges := s.Snapshot()
	assert.Len(t, edges, 1)

	s.Disconnect("e1")
	_, edges = s.Snapshot()
	assert.Empty(t, edges)

	// Nodes survive edge removal.
	assert.Equal(t, 2, s.NodeCount())
}

func TestStoreReplaceAllAndClear(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("old", types.AgentResearch)))

	nodes := []types.Node{testNode("a", types.AgentStrategy), testNode("b", types.AgentCopywriting)}
	edges := []types.Edge{{ID: "e1", Source: "a", Target: "b"}}
	s.ReplaceAll("Summer Campaign", nodes, edges)

	assert.Equal(t, "Summer Campaign", s.Name())
	gotNodes, gotEdges := s.Snapshot()
	assert.Len(t, gotNodes, 2)
	assert.Len(t, gotEdges, 1)
	_, ok := s.Node("old")
	assert.False(t, ok)

	// Empty name falls back to the default.
	s.ReplaceAll("", nodes, nil)
	assert.Equal(t, types.DefaultWorkflowName, s.Name())

	s.Clear()
	assert.Equal(t, types.DefaultWorkflowName, s.Name())
	gotNodes, gotEdges = s.Snapshot()
	assert.Empty(t, gotNodes)
	assert.Empty(t, gotEdges)
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))

	nodes, _ := s.Snapshot()
	nodes[0].Data.Label = "mutated"

	got, _ := s.Node("a")
	assert.Equal(t, string(types.AgentStrategy), got.Data.Label)
}

func TestStoreSubscribe(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)

	var events []ChangeEvent
	unsub := s.Subscribe(func(ev ChangeEvent) {
		events = append(events, ev)
	})

	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))
	require.NoError(t, s.AddNode(testNode("b", types.AgentCopywriting)))
	require.NoError(t, s.Connect(types.Edge{ID: "e1", Source: "a", Target: "b"}))
	s.SetName("Renamed")

	require.Len(t, events, 4)
	assert.Equal(t, ChangeNodeAdded, events[0].Kind)
	assert.Equal(t, "a", events[0].NodeID)
	assert.Equal(t, ChangeEdgeAdded, events[2].Kind)
	assert.Equal(t, "e1", events[2].EdgeID)
	assert.Equal(t, ChangeRenamed, events[3].Kind)

	// After unsubscribe no further events arrive.
	unsub()
	s.Clear()
	assert.Len(t, events, 4)
}

func TestStoreSubscriberMayReadStore(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)

	var seen int
	s.Subscribe(func(ev ChangeEvent) {
		// Notification runs outside the store lock, so reads are safe.
		seen = s.NodeCount()
	})

	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))
	assert.Equal(t, 1, seen)
}

func TestStoreDocument(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.NoError(t, s.AddNode(testNode("a", types.AgentStrategy)))
	require.NoError(t, s.AddNode(testNode("b", types.AgentCopywriting)))
	require.NoError(t, s.Connect(types.Edge{ID: "e1", Source: "a", Target: "b"}))
	s.SetName("Launch Plan")

	doc := s.Document()
	assert.Equal(t, "Launch Plan", doc.Name)
	assert.Len(t, doc.Nodes, 2)
	assert.Len(t, doc.Edges, 1)
	assert.Nil(t, doc.SavedAt)
}
