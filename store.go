package flowcanvas

import (
	"context"
	"errors"
)

var (
	ErrCycleDetected    = errors.New("flowcanvas: cycle detected, graph is not acyclic")
	ErrWorkflowNotFound = errors.New("flowcanvas: workflow not found")
	ErrNodeNotFound     = errors.New("flowcanvas: node not found")
	ErrEdgeNotFound     = errors.New("flowcanvas: edge not found")
	ErrInvalidCondition = errors.New("flowcanvas: invalid edge condition")
	ErrInvalidWorkflow  = errors.New("flowcanvas: invalid workflow")
)

// Store defines the contract for persisting and retrieving workflows.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Workflow (bulk operations)
	SaveWorkflow(ctx context.Context, w *Workflow) (*Workflow, error)
	GetWorkflow(ctx context.Context, workflowID string) (*Workflow, error)
	ListWorkflows(ctx context.Context) ([]WorkflowSummary, error)
	DeleteWorkflow(ctx context.Context, workflowID string) error

	// Nodes
	AddNode(ctx context.Context, workflowID string, node *Node) (string, error)
	GetNode(ctx context.Context, nodeID string) (*Node, error)
	UpdateNode(ctx context.Context, node *Node) error
	DeleteNode(ctx context.Context, nodeID string) error
	ListNodes(ctx context.Context, workflowID string) ([]Node, error)

	// Edges
	AddEdge(ctx context.Context, workflowID string, edge *Edge) (string, error)
	GetEdge(ctx context.Context, edgeID string) (*Edge, error)
	UpdateEdge(ctx context.Context, edge *Edge) error
	DeleteEdge(ctx context.Context, edgeID string) error
	ListEdges(ctx context.Context, workflowID string) ([]Edge, error)
}
