package types

import "time"

// AgentType identifies which external agent capability a node invokes.
type AgentType string

// Built-in agent types. The set is extensible: the engine treats the value
// as an opaque tag and resolves behavior through the agent registry.
const (
	AgentStrategy    AgentType = "strategy"
	AgentCopywriting AgentType = "copywriting"
	AgentVisual      AgentType = "visual"
	AgentResearch    AgentType = "research"
	AgentMedia       AgentType = "media"
)

// BuiltinAgentTypes lists the agent types shipped with the engine.
func BuiltinAgentTypes() []AgentType {
	return []AgentType{AgentStrategy, AgentCopywriting, AgentVisual, AgentResearch, AgentMedia}
}

// Valid reports whether t is a non-empty agent type tag.
func (t AgentType) Valid() bool {
	return t != ""
}

// NodeStatus represents the per-node execution state.
type NodeStatus string

const (
	// StatusIdle means the node has not run in the current pass.
	StatusIdle NodeStatus = "idle"
	// StatusRunning means the node's agent call is in flight.
	StatusRunning NodeStatus = "running"
	// StatusSuccess means the last attempt completed successfully.
	StatusSuccess NodeStatus = "success"
	// StatusError means the last attempt failed.
	StatusError NodeStatus = "error"
)

// Valid reports whether s is one of the known statuses.
func (s NodeStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusSuccess, StatusError:
		return true
	}
	return false
}

// NodeKind is the canvas node type tag carried in the wire format.
// The engine only produces agent nodes.
const NodeKind = "agentNode"

// Position is a node's 2D canvas coordinate. It is mutated only by canvas
// interaction and carries no execution semantics.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData holds the mutable execution fields of a node.
type NodeData struct {
	// Label is the human-readable node title shown on the canvas.
	Label string `json:"label"`
	// AgentType selects the external capability invoked for this node.
	AgentType AgentType `json:"agentType"`
	// Status is the node's execution state.
	Status NodeStatus `json:"status"`
	// Input is the user-authored text, mutable while the node is not running.
	Input string `json:"input"`
	// Output is the last result: nil until first run, then either plain text
	// or a structured value (map). Overwritten on every run.
	Output any `json:"output"`
	// ShowInput controls input visibility on the canvas.
	ShowInput bool `json:"showInput"`
	// LastRun is the timestamp of the last completed attempt, nil if never run.
	LastRun *time.Time `json:"lastRun"`
}

// Node is one unit of agent work on the canvas.
type Node struct {
	// ID is opaque, unique within a graph, assigned at creation, immutable.
	ID string `json:"id"`
	// Type is always NodeKind for engine-produced nodes.
	Type string `json:"type"`
	// Position is the canvas coordinate.
	Position Position `json:"position"`
	// Data holds the mutable execution fields.
	Data NodeData `json:"data"`
}

// NewNode creates an idle agent node with empty input and no output.
func NewNode(id string, agentType AgentType, label string, pos Position) Node {
	return Node{
		ID:       id,
		Type:     NodeKind,
		Position: pos,
		Data: NodeData{
			Label:     label,
			AgentType: agentType,
			Status:    StatusIdle,
			ShowInput: true,
		},
	}
}

// Edge is a directed dependency: Target consumes Source's output as part of
// its input. Each edge has a stable identity for UI diffing.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}
