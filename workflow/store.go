package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/canvasflow/types"
)

// ChangeKind identifies the mutation that produced a ChangeEvent.
type ChangeKind string

const (
	ChangeNodeAdded   ChangeKind = "node_added"
	ChangeNodeUpdated ChangeKind = "node_updated"
	ChangeNodeRemoved ChangeKind = "node_removed"
	ChangeEdgeAdded   ChangeKind = "edge_added"
	ChangeEdgeRemoved ChangeKind = "edge_removed"
	ChangeReplaced    ChangeKind = "replaced"
	ChangeCleared     ChangeKind = "cleared"
	ChangeRenamed     ChangeKind = "renamed"
)

// ChangeEvent describes a single store mutation. Subscribers receive it
// synchronously before the mutating call returns.
type ChangeEvent struct {
	Kind   ChangeKind
	NodeID string
	EdgeID string
}

// Subscriber observes store mutations.
type Subscriber func(ChangeEvent)

// NodePatch carries a partial update for a node's mutable fields.
// Nil pointers leave the field untouched. Output points to the new value,
// which may itself be nil to clear a stale result.
type NodePatch struct {
	Label     *string
	Status    *types.NodeStatus
	Input     *string
	Output    *any
	LastRun   *time.Time
	ShowInput *bool
	Position  *types.Position
}

// Store is the single source of truth for nodes and edges. All other engine
// components read and write through it. Collections keep insertion order:
// the scheduler's tie-break for independent nodes depends on it.
type Store struct {
	mu     sync.RWMutex
	name   string
	nodes  []types.Node
	edges  []types.Edge
	subs   map[int]Subscriber
	nextID int
	logger *zap.Logger
}

// NewStore creates an empty store with the default workflow name.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		name:   types.DefaultWorkflowName,
		subs:   make(map[int]Subscriber),
		logger: logger.With(zap.String("component", "graph_store")),
	}
}

// Subscribe registers fn to observe every mutation. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// notify delivers ev to all subscribers. Called without the lock held so
// subscribers may read the store.
func (s *Store) notify(ev ChangeEvent) {
	s.mu.RLock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// AddNode appends a node. The caller guarantees a unique id; a duplicate is
// rejected with an explicit error, never silently.
func (s *Store) AddNode(node types.Node) error {
	s.mu.Lock()
	for _, n := range s.nodes {
		if n.ID == node.ID {
			s.mu.Unlock()
			return types.NewError(types.ErrInvalidRequest, "duplicate node id").WithNodeID(node.ID)
		}
	}
	if node.Type == "" {
		node.Type = types.NodeKind
	}
	s.nodes = append(s.nodes, node)
	s.mu.Unlock()

	s.logger.Debug("node added",
		zap.String("node_id", node.ID),
		zap.String("agent_type", string(node.Data.AgentType)),
	)
	s.notify(ChangeEvent{Kind: ChangeNodeAdded, NodeID: node.ID})
	return nil
}

// UpdateNode merges patch into the node's mutable fields. A missing id is a
// no-op: the store never invents nodes.
func (s *Store) UpdateNode(id string, patch NodePatch) {
	s.mu.Lock()
	found := false
	for i := range s.nodes {
		if s.nodes[i].ID != id {
			continue
		}
		found = true
		d := &s.nodes[i].Data
		if patch.Label != nil {
			d.Label = *patch.Label
		}
		if patch.Status != nil {
			d.Status = *patch.Status
		}
		if patch.Input != nil {
			d.Input = *patch.Input
		}
		if patch.Output != nil {
			d.Output = *patch.Output
		}
		if patch.LastRun != nil {
			t := *patch.LastRun
			d.LastRun = &t
		}
		if patch.ShowInput != nil {
			d.ShowInput = *patch.ShowInput
		}
		if patch.Position != nil {
			s.nodes[i].Position = *patch.Position
		}
		break
	}
	s.mu.Unlock()

	if found {
		s.notify(ChangeEvent{Kind: ChangeNodeUpdated, NodeID: id})
	}
}

// RemoveNode deletes the node and cascades deletion of every edge touching
// it, so no dangling references remain.
func (s *Store) RemoveNode(id string) {
	s.mu.Lock()
	found := false
	nodes := s.nodes[:0]
	for _, n := range s.nodes {
		if n.ID == id {
			found = true
			continue
		}
		nodes = append(nodes, n)
	}
	s.nodes = nodes

	if found {
		edges := s.edges[:0]
		for _, e := range s.edges {
			if e.Source == id || e.Target == id {
				continue
			}
			edges = append(edges, e)
		}
		s.edges = edges
	}
	s.mu.Unlock()

	if found {
		s.logger.Debug("node removed", zap.String("node_id", id))
		s.notify(ChangeEvent{Kind: ChangeNodeRemoved, NodeID: id})
	}
}

// Connect appends a directed edge. Endpoints must reference existing nodes.
// An exact duplicate source→target pair is deduplicated (the canvas connect
// gesture can fire twice for one wire); the existing edge id is kept.
func (s *Store) Connect(edge types.Edge) error {
	s.mu.Lock()
	if !s.hasNodeLocked(edge.Source) {
		s.mu.Unlock()
		return types.NewError(types.ErrInvalidRequest, "edge references unknown source").WithNodeID(edge.Source)
	}
	if !s.hasNodeLocked(edge.Target) {
		s.mu.Unlock()
		return types.NewError(types.ErrInvalidRequest, "edge references unknown target").WithNodeID(edge.Target)
	}
	for _, e := range s.edges {
		if e.Source == edge.Source && e.Target == edge.Target {
			s.mu.Unlock()
			return nil
		}
	}
	if edge.ID == "" {
		edge.ID = "edge_" + uuid.NewString()
	}
	s.edges = append(s.edges, edge)
	s.mu.Unlock()

	s.logger.Debug("edge added",
		zap.String("edge_id", edge.ID),
		zap.String("source", edge.Source),
		zap.String("target", edge.Target),
	)
	s.notify(ChangeEvent{Kind: ChangeEdgeAdded, EdgeID: edge.ID})
	return nil
}

// Disconnect removes a single edge by id. Missing ids are a no-op.
func (s *Store) Disconnect(edgeID string) {
	s.mu.Lock()
	found := false
	edges := s.edges[:0]
	for _, e := range s.edges {
		if e.ID == edgeID {
			found = true
			continue
		}
		edges = append(edges, e)
	}
	s.edges = edges
	s.mu.Unlock()

	if found {
		s.notify(ChangeEvent{Kind: ChangeEdgeRemoved, EdgeID: edgeID})
	}
}

// ReplaceAll atomically replaces the whole graph. Used by import and load;
// the previous graph is discarded, never merged into.
func (s *Store) ReplaceAll(name string, nodes []types.Node, edges []types.Edge) {
	s.mu.Lock()
	if name == "" {
		name = types.DefaultWorkflowName
	}
	s.name = name
	s.nodes = make([]types.Node, len(nodes))
	copy(s.nodes, nodes)
	s.edges = make([]types.Edge, len(edges))
	copy(s.edges, edges)
	s.mu.Unlock()

	s.logger.Info("graph replaced",
		zap.String("name", name),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)
	s.notify(ChangeEvent{Kind: ChangeReplaced})
}

// Clear empties both collections and resets the workflow name.
func (s *Store) Clear() {
	s.mu.Lock()
	s.name = types.DefaultWorkflowName
	s.nodes = nil
	s.edges = nil
	s.mu.Unlock()

	s.logger.Info("graph cleared")
	s.notify(ChangeEvent{Kind: ChangeCleared})
}

// SetName renames the workflow.
func (s *Store) SetName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
	s.notify(ChangeEvent{Kind: ChangeRenamed})
}

// Name returns the workflow name.
func (s *Store) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (types.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return types.Node{}, false
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Snapshot returns copies of the node and edge collections in insertion
// order. Mutating the result does not affect the store.
func (s *Store) Snapshot() ([]types.Node, []types.Edge) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := make([]types.Node, len(s.nodes))
	copy(nodes, s.nodes)
	edges := make([]types.Edge, len(s.edges))
	copy(edges, s.edges)
	return nodes, edges
}

// Document returns the current graph as a workflow document.
func (s *Store) Document() *types.WorkflowDocument {
	nodes, edges := s.Snapshot()
	return &types.WorkflowDocument{Name: s.Name(), Nodes: nodes, Edges: edges}
}

func (s *Store) hasNodeLocked(id string) bool {
	for _, n := range s.nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
