// Package memory provides an in-process flowcanvas.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/meikuraledutech/flowcanvas"
)

// Store implements flowcanvas.Store in memory. Mutations run through
// flowcanvas.Reduce, so the same invariants hold as in the editor.
// It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	workflows map[string]*flowcanvas.Workflow
}

var _ flowcanvas.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{workflows: make(map[string]*flowcanvas.Workflow)}
}

// CreateSchema is a no-op.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema removes every workflow.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows = make(map[string]*flowcanvas.Workflow)
	return nil
}

// SaveWorkflow stores a full workflow, replacing any existing one with the
// same ID. Missing ids are generated.
func (s *Store) SaveWorkflow(ctx context.Context, w *flowcanvas.Workflow) (*flowcanvas.Workflow, error) {
	c := w.Clone()
	if c.ID == "" {
		c.ID = flowcanvas.NewID()
	}
	c.ID = strings.Clone(c.ID)
	for i := range c.Nodes {
		if c.Nodes[i].ID == "" {
			c.Nodes[i].ID = flowcanvas.NewID()
		}
	}
	for i := range c.Edges {
		if c.Edges[i].ID == "" {
			c.Edges[i].ID = flowcanvas.NewID()
		}
	}
	if err := flowcanvas.ValidateWorkflow(&c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range c.Nodes {
		if owner := s.nodeOwner(n.ID); owner != nil && owner.ID != c.ID {
			return nil, fmt.Errorf("%w: node %s belongs to workflow %s", flowcanvas.ErrInvalidWorkflow, n.ID, owner.ID)
		}
	}
	s.workflows[c.ID] = &c

	out := c.Clone()
	return &out, nil
}

// GetWorkflow returns nil, nil if the workflow doesn't exist.
func (s *Store) GetWorkflow(ctx context.Context, workflowID string) (*flowcanvas.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workflows[workflowID]
	if !ok {
		return nil, nil
	}
	out := w.Clone()
	return &out, nil
}

// ListWorkflows returns summaries sorted by ID.
func (s *Store) ListWorkflows(ctx context.Context) ([]flowcanvas.WorkflowSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]flowcanvas.WorkflowSummary, 0, len(s.workflows))
	for _, w := range s.workflows {
		out = append(out, w.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteWorkflow is a no-op for unknown ids.
func (s *Store) DeleteWorkflow(ctx context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, workflowID)
	return nil
}

// AddNode appends a node to a workflow and returns its ID.
func (s *Store) AddNode(ctx context.Context, workflowID string, node *flowcanvas.Node) (string, error) {
	if node.ID == "" {
		node.ID = flowcanvas.NewID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nodeOwner(node.ID) != nil {
		return "", fmt.Errorf("%w: node %s already exists", flowcanvas.ErrInvalidWorkflow, node.ID)
	}
	return node.ID, s.apply(workflowID, flowcanvas.AddNode{Node: *node})
}

// GetNode returns nil, nil if not found.
func (s *Store) GetNode(ctx context.Context, nodeID string) (*flowcanvas.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w := s.nodeOwner(nodeID)
	if w == nil {
		return nil, nil
	}
	n, _ := w.Node(nodeID)
	return &n, nil
}

// UpdateNode replaces a node's category, text and position.
// Returns ErrNodeNotFound if the node doesn't exist.
func (s *Store) UpdateNode(ctx context.Context, node *flowcanvas.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.nodeOwner(node.ID)
	if w == nil {
		return flowcanvas.ErrNodeNotFound
	}
	if !node.Category.Valid() {
		return fmt.Errorf("%w: update node: invalid category %d", flowcanvas.ErrInvalidWorkflow, int(node.Category))
	}
	c := w.Clone()
	for i := range c.Nodes {
		if c.Nodes[i].ID == node.ID {
			id := c.Nodes[i].ID
			c.Nodes[i] = *node
			c.Nodes[i].ID = id
		}
	}
	c.Version++
	s.workflows[c.ID] = &c
	return nil
}

// DeleteNode removes a node and its edges. No error if it doesn't exist.
func (s *Store) DeleteNode(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.nodeOwner(nodeID)
	if w == nil {
		return nil
	}
	return s.apply(w.ID, flowcanvas.RemoveNode{NodeID: nodeID})
}

// ListNodes returns the nodes in insertion order; empty, not nil.
func (s *Store) ListNodes(ctx context.Context, workflowID string) ([]flowcanvas.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := []flowcanvas.Node{}
	if w, ok := s.workflows[workflowID]; ok {
		nodes = append(nodes, w.Nodes...)
	}
	return nodes, nil
}

// AddEdge validates and appends an edge, returning its ID.
func (s *Store) AddEdge(ctx context.Context, workflowID string, edge *flowcanvas.Edge) (string, error) {
	if edge.ID == "" {
		edge.ID = flowcanvas.NewID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return edge.ID, s.apply(workflowID, flowcanvas.AddEdge{Edge: *edge})
}

// GetEdge returns nil, nil if not found.
func (s *Store) GetEdge(ctx context.Context, edgeID string) (*flowcanvas.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w := s.edgeOwner(edgeID)
	if w == nil {
		return nil, nil
	}
	e, _ := w.Edge(edgeID)
	return &e, nil
}

// UpdateEdge changes an edge's endpoints, label and condition. The new
// endpoints are validated against the remaining edges.
// Returns ErrEdgeNotFound if the edge doesn't exist.
func (s *Store) UpdateEdge(ctx context.Context, edge *flowcanvas.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.edgeOwner(edge.ID)
	if w == nil {
		return flowcanvas.ErrEdgeNotFound
	}

	if _, ok := w.Node(edge.SourceID); !ok {
		return fmt.Errorf("%w: source %s", flowcanvas.ErrNodeNotFound, edge.SourceID)
	}
	if _, ok := w.Node(edge.TargetID); !ok {
		return fmt.Errorf("%w: target %s", flowcanvas.ErrNodeNotFound, edge.TargetID)
	}
	others := make([]flowcanvas.Edge, 0, len(w.Edges))
	for _, e := range w.Edges {
		if e.ID != edge.ID {
			others = append(others, e)
		}
	}
	if err := flowcanvas.ValidateConnection(edge.SourceID, edge.TargetID, others).Err(); err != nil {
		return err
	}
	if err := flowcanvas.ValidateCondition(edge.Condition); err != nil {
		return err
	}

	c := w.Clone()
	for i := range c.Edges {
		if c.Edges[i].ID == edge.ID {
			id := c.Edges[i].ID
			c.Edges[i] = *edge
			c.Edges[i].ID = id
		}
	}
	c.Version++
	s.workflows[c.ID] = &c
	return nil
}

// DeleteEdge is a no-op for unknown ids.
func (s *Store) DeleteEdge(ctx context.Context, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.edgeOwner(edgeID)
	if w == nil {
		return nil
	}
	return s.apply(w.ID, flowcanvas.RemoveEdge{EdgeID: edgeID})
}

// ListEdges returns the edges in insertion order; empty, not nil.
func (s *Store) ListEdges(ctx context.Context, workflowID string) ([]flowcanvas.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := []flowcanvas.Edge{}
	if w, ok := s.workflows[workflowID]; ok {
		edges = append(edges, w.Edges...)
	}
	return edges, nil
}

// apply runs a reducer against a stored workflow. Callers hold s.mu.
func (s *Store) apply(workflowID string, a flowcanvas.Action) error {
	w, ok := s.workflows[workflowID]
	if !ok {
		return flowcanvas.ErrWorkflowNotFound
	}
	st, err := flowcanvas.Reduce(flowcanvas.State{Workflow: *w}, a)
	if err != nil {
		return err
	}
	// Key by the stored id; workflowID may alias a caller's buffer.
	s.workflows[w.ID] = &st.Workflow
	return nil
}

func (s *Store) nodeOwner(nodeID string) *flowcanvas.Workflow {
	for _, w := range s.workflows {
		if _, ok := w.Node(nodeID); ok {
			return w
		}
	}
	return nil
}

func (s *Store) edgeOwner(edgeID string) *flowcanvas.Workflow {
	for _, w := range s.workflows {
		if _, ok := w.Edge(edgeID); ok {
			return w
		}
	}
	return nil
}
