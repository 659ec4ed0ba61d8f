package flowcanvas

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DecodeWorkflowYAML reads a workflow document and validates it.
// Nodes and edges without ids get generated ones.
func DecodeWorkflowYAML(r io.Reader) (*Workflow, error) {
	var w Workflow
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: decode yaml: %w", ErrInvalidWorkflow, err)
	}
	for i := range w.Nodes {
		if w.Nodes[i].ID == "" {
			w.Nodes[i].ID = NewID()
		}
	}
	for i := range w.Edges {
		if w.Edges[i].ID == "" {
			w.Edges[i].ID = NewID()
		}
	}
	if err := ValidateWorkflow(&w); err != nil {
		return nil, err
	}
	return &w, nil
}

// EncodeWorkflowYAML writes w as YAML.
func EncodeWorkflowYAML(out io.Writer, w *Workflow) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(w); err != nil {
		return fmt.Errorf("flowcanvas: encode yaml: %w", err)
	}
	return enc.Close()
}
