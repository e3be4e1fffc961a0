package persistence

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/BaSui01/canvasflow/types"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExportFilename derives the download filename from the workflow name:
// runs of whitespace collapse to a single dash, ".json" is appended.
func ExportFilename(name string) string {
	if name == "" {
		name = types.DefaultWorkflowName
	}
	return whitespaceRun.ReplaceAllString(name, "-") + ".json"
}

// MarshalExport renders doc as an indented JSON export, stamping exportedAt.
// It returns the file body and the derived filename.
func MarshalExport(doc *types.WorkflowDocument) ([]byte, string, error) {
	now := time.Now().UTC()
	out := doc.Clone()
	out.ExportedAt = &now

	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, "", types.NewError(types.ErrInternalError, "failed to encode workflow export").WithCause(err)
	}
	return payload, ExportFilename(out.Name), nil
}

// ParseDocument decodes a workflow document from JSON. The document must
// carry both a nodes and an edges field (empty arrays are fine), node ids
// must be unique, and every edge must reference declared nodes; anything
// else is an INVALID_WORKFLOW_DOCUMENT error. A missing name falls back to
// the default.
func ParseDocument(data []byte) (*types.WorkflowDocument, error) {
	var probe struct {
		Name  json.RawMessage `json:"name"`
		Nodes json.RawMessage `json:"nodes"`
		Edges json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, types.NewError(types.ErrInvalidWorkflowDocument, "not valid JSON").WithCause(err)
	}
	if probe.Nodes == nil {
		return nil, types.NewError(types.ErrInvalidWorkflowDocument, "missing nodes field")
	}
	if probe.Edges == nil {
		return nil, types.NewError(types.ErrInvalidWorkflowDocument, "missing edges field")
	}

	var doc types.WorkflowDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, types.NewError(types.ErrInvalidWorkflowDocument, "malformed workflow document").WithCause(err)
	}
	if doc.Name == "" {
		doc.Name = types.DefaultWorkflowName
	}
	if doc.Nodes == nil {
		doc.Nodes = []types.Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []types.Edge{}
	}
	if err := validateDocument(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// validateDocument enforces the live-graph invariants on a decoded
// document: unique node ids, and edges only between declared nodes. A
// document that violates them must never reach ReplaceAll.
func validateDocument(doc *types.WorkflowDocument) error {
	ids := make(map[string]struct{}, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n.ID == "" {
			return types.NewError(types.ErrInvalidWorkflowDocument, "node with empty id")
		}
		if _, dup := ids[n.ID]; dup {
			return types.NewError(types.ErrInvalidWorkflowDocument, "duplicate node id: "+n.ID).WithNodeID(n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	for _, e := range doc.Edges {
		if _, ok := ids[e.Source]; !ok {
			return types.NewError(types.ErrInvalidWorkflowDocument,
				"edge references unknown source: "+e.Source).WithNodeID(e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return types.NewError(types.ErrInvalidWorkflowDocument,
				"edge references unknown target: "+e.Target).WithNodeID(e.Target)
		}
	}
	return nil
}
