package flowcanvas

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// NewID generates identifiers for nodes and edges created without one.
var NewID = uuid.NewString

// Selection is the presentational selection state. It is never persisted.
type Selection struct {
	NodeIDs []string `json:"node_ids,omitempty"`
	EdgeIDs []string `json:"edge_ids,omitempty"`
}

// HasNode reports whether the node is selected.
func (s Selection) HasNode(id string) bool { return slices.Contains(s.NodeIDs, id) }

// HasEdge reports whether the edge is selected.
func (s Selection) HasEdge(id string) bool { return slices.Contains(s.EdgeIDs, id) }

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool { return len(s.NodeIDs) == 0 && len(s.EdgeIDs) == 0 }

// State is the editor state: the workflow document plus selection.
type State struct {
	Workflow  Workflow  `json:"workflow"`
	Selection Selection `json:"selection"`
}

// Action is a single state transition applied by Reduce.
type Action interface {
	apply(s *State) error
}

type (
	// AddNode appends a node. An empty ID is generated.
	AddNode struct{ Node Node }

	// MoveNode sets the committed position of a node.
	MoveNode struct {
		NodeID string
		To     Point
	}

	// UpdateNode replaces a node's display text.
	UpdateNode struct {
		NodeID      string
		Title       string
		Description string
	}

	// RemoveNode deletes a node and every edge touching it.
	RemoveNode struct{ NodeID string }

	// AddEdge appends an edge after running the connection validator.
	AddEdge struct{ Edge Edge }

	// UpdateEdge replaces an edge's label and condition.
	UpdateEdge struct {
		EdgeID    string
		Label     string
		Condition string
	}

	// RemoveEdge deletes an edge.
	RemoveEdge struct{ EdgeID string }

	// SetSelection replaces the selection.
	SetSelection struct{ Selection Selection }

	// AutoLayout repositions every node, see Layout.
	AutoLayout struct{}
)

// Reduce applies a to s and returns the resulting state. s is left untouched.
// Every action except SetSelection bumps the workflow version.
func Reduce(s State, a Action) (State, error) {
	next := State{
		Workflow: s.Workflow.Clone(),
		Selection: Selection{
			NodeIDs: slices.Clone(s.Selection.NodeIDs),
			EdgeIDs: slices.Clone(s.Selection.EdgeIDs),
		},
	}
	if err := a.apply(&next); err != nil {
		return s, err
	}
	if _, ok := a.(SetSelection); !ok {
		next.Workflow.Version++
	}
	return next, nil
}

func (a AddNode) apply(s *State) error {
	n := a.Node
	if n.ID == "" {
		n.ID = NewID()
	}
	if !n.Category.Valid() {
		return fmt.Errorf("%w: add node: invalid category %d", ErrInvalidWorkflow, int(n.Category))
	}
	if s.Workflow.nodeIndex(n.ID) >= 0 {
		return fmt.Errorf("%w: add node: duplicate id %q", ErrInvalidWorkflow, n.ID)
	}
	s.Workflow.Nodes = append(s.Workflow.Nodes, n)
	return nil
}

func (a MoveNode) apply(s *State) error {
	i := s.Workflow.nodeIndex(a.NodeID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, a.NodeID)
	}
	s.Workflow.Nodes[i].Position = a.To
	return nil
}

func (a UpdateNode) apply(s *State) error {
	i := s.Workflow.nodeIndex(a.NodeID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, a.NodeID)
	}
	s.Workflow.Nodes[i].Title = a.Title
	s.Workflow.Nodes[i].Description = a.Description
	return nil
}

func (a RemoveNode) apply(s *State) error {
	i := s.Workflow.nodeIndex(a.NodeID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, a.NodeID)
	}
	s.Workflow.Nodes = slices.Delete(s.Workflow.Nodes, i, i+1)

	var removed []string
	s.Workflow.Edges = slices.DeleteFunc(s.Workflow.Edges, func(e Edge) bool {
		if e.SourceID == a.NodeID || e.TargetID == a.NodeID {
			removed = append(removed, e.ID)
			return true
		}
		return false
	})

	s.Selection.NodeIDs = slices.DeleteFunc(s.Selection.NodeIDs, func(id string) bool { return id == a.NodeID })
	s.Selection.EdgeIDs = slices.DeleteFunc(s.Selection.EdgeIDs, func(id string) bool { return slices.Contains(removed, id) })
	return nil
}

func (a AddEdge) apply(s *State) error {
	e := a.Edge
	if s.Workflow.nodeIndex(e.SourceID) < 0 {
		return fmt.Errorf("%w: source %s", ErrNodeNotFound, e.SourceID)
	}
	if s.Workflow.nodeIndex(e.TargetID) < 0 {
		return fmt.Errorf("%w: target %s", ErrNodeNotFound, e.TargetID)
	}
	if err := ValidateConnection(e.SourceID, e.TargetID, s.Workflow.Edges).Err(); err != nil {
		return err
	}
	if err := ValidateCondition(e.Condition); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = NewID()
	}
	s.Workflow.Edges = append(s.Workflow.Edges, e)
	return nil
}

func (a UpdateEdge) apply(s *State) error {
	i := s.Workflow.edgeIndex(a.EdgeID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, a.EdgeID)
	}
	if err := ValidateCondition(a.Condition); err != nil {
		return err
	}
	s.Workflow.Edges[i].Label = a.Label
	s.Workflow.Edges[i].Condition = a.Condition
	return nil
}

func (a RemoveEdge) apply(s *State) error {
	i := s.Workflow.edgeIndex(a.EdgeID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, a.EdgeID)
	}
	s.Workflow.Edges = slices.Delete(s.Workflow.Edges, i, i+1)
	s.Selection.EdgeIDs = slices.DeleteFunc(s.Selection.EdgeIDs, func(id string) bool { return id == a.EdgeID })
	return nil
}

func (a SetSelection) apply(s *State) error {
	s.Selection = Selection{
		NodeIDs: slices.Clone(a.Selection.NodeIDs),
		EdgeIDs: slices.Clone(a.Selection.EdgeIDs),
	}
	return nil
}

func (AutoLayout) apply(s *State) error {
	positions := Layout(s.Workflow.Nodes, s.Workflow.Edges)
	for i := range s.Workflow.Nodes {
		s.Workflow.Nodes[i].Position = positions[s.Workflow.Nodes[i].ID]
	}
	return nil
}

// Editor holds the current State and applies actions to it.
type Editor struct {
	state State
}

// NewEditor starts an editing session on w.
func NewEditor(w Workflow) *Editor {
	return &Editor{state: State{Workflow: w.Clone()}}
}

// State returns the current state.
func (e *Editor) State() State { return e.state }

// Workflow returns the current workflow document.
func (e *Editor) Workflow() Workflow { return e.state.Workflow }

// Dispatch applies a. On error the state is unchanged.
func (e *Editor) Dispatch(a Action) error {
	next, err := Reduce(e.state, a)
	if err != nil {
		return err
	}
	e.state = next
	return nil
}
