package types

import "time"

// DefaultWorkflowName is the name given to a fresh or cleared graph.
const DefaultWorkflowName = "Untitled Workflow"

// WorkflowDocument is the unit of persistence and import/export:
// the serializable snapshot of a named workflow graph.
type WorkflowDocument struct {
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	// SavedAt is set by local snapshot saves, ExportedAt by file exports.
	SavedAt    *time.Time `json:"savedAt,omitempty"`
	ExportedAt *time.Time `json:"exportedAt,omitempty"`
}

// Clone returns a deep copy of the document. Node outputs are shared by
// reference: the engine treats them as immutable once written.
func (d *WorkflowDocument) Clone() *WorkflowDocument {
	out := &WorkflowDocument{
		Name:  d.Name,
		Nodes: make([]Node, len(d.Nodes)),
		Edges: make([]Edge, len(d.Edges)),
	}
	copy(out.Nodes, d.Nodes)
	copy(out.Edges, d.Edges)
	if d.SavedAt != nil {
		t := *d.SavedAt
		out.SavedAt = &t
	}
	if d.ExportedAt != nil {
		t := *d.ExportedAt
		out.ExportedAt = &t
	}
	return out
}
