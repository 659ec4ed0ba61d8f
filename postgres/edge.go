package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/flowcanvas"
)

const edgeColumns = `id, source_id, target_id, label, condition`

// AddEdge inserts a single edge into a workflow.
// If edge.ID is empty, a UUID is auto-generated.
// The edge goes through the connection validator (self-connection,
// duplicate, circular dependency) against the stored edges.
// Returns the edge ID (generated or provided).
func (s *PGStore) AddEdge(ctx context.Context, workflowID string, edge *flowcanvas.Edge) (string, error) {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("flowcanvas: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	nodes, edges, err := loadGraph(ctx, tx, workflowID)
	if err != nil {
		return "", err
	}

	// Run the same reducer the editor uses.
	st := flowcanvas.State{Workflow: flowcanvas.Workflow{ID: workflowID, Nodes: nodes, Edges: edges}}
	if _, err := flowcanvas.Reduce(st, flowcanvas.AddEdge{Edge: *edge}); err != nil {
		return "", err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO workflow_edges (id, workflow_id, ord, source_id, target_id, label, condition)
		 VALUES ($1, $2, (SELECT COALESCE(MAX(ord) + 1, 0) FROM workflow_edges WHERE workflow_id = $2), $3, $4, $5, $6)`,
		edge.ID, workflowID, edge.SourceID, edge.TargetID, edge.Label, edge.Condition,
	)
	if err != nil {
		return "", wrapInsert("insert edge", err)
	}

	if err := bumpVersion(ctx, tx, workflowID); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("flowcanvas: commit: %w", err)
	}

	return edge.ID, nil
}

// GetEdge fetches a single edge by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetEdge(ctx context.Context, edgeID string) (*flowcanvas.Edge, error) {
	var e flowcanvas.Edge
	err := s.db.QueryRow(ctx,
		`SELECT `+edgeColumns+` FROM workflow_edges WHERE id = $1`, edgeID,
	).Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Label, &e.Condition)

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("flowcanvas: get edge: %w", err)
	}

	return &e, nil
}

// UpdateEdge updates an existing edge's endpoints, label and condition.
// Validates the new endpoints against the other edges of the workflow.
// Returns ErrEdgeNotFound if the edge doesn't exist.
func (s *PGStore) UpdateEdge(ctx context.Context, edge *flowcanvas.Edge) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("flowcanvas: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// First find the edge's workflow_id.
	var workflowID string
	err = tx.QueryRow(ctx,
		`SELECT workflow_id FROM workflow_edges WHERE id = $1`, edge.ID,
	).Scan(&workflowID)
	if err != nil {
		if isNoRows(err) {
			return flowcanvas.ErrEdgeNotFound
		}
		return fmt.Errorf("flowcanvas: find edge: %w", err)
	}

	nodes, edges, err := loadGraph(ctx, tx, workflowID)
	if err != nil {
		return err
	}

	// Validate as if the edge were re-added in place of the old one.
	st := flowcanvas.State{Workflow: flowcanvas.Workflow{ID: workflowID, Nodes: nodes, Edges: edges}}
	st, err = flowcanvas.Reduce(st, flowcanvas.RemoveEdge{EdgeID: edge.ID})
	if err != nil {
		return err
	}
	if _, err := flowcanvas.Reduce(st, flowcanvas.AddEdge{Edge: *edge}); err != nil {
		return err
	}

	ct, err := tx.Exec(ctx,
		`UPDATE workflow_edges SET source_id = $1, target_id = $2, label = $3, condition = $4 WHERE id = $5`,
		edge.SourceID, edge.TargetID, edge.Label, edge.Condition, edge.ID,
	)
	if err != nil {
		return fmt.Errorf("flowcanvas: update edge: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return flowcanvas.ErrEdgeNotFound
	}

	if err := bumpVersion(ctx, tx, workflowID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteEdge deletes an edge by its ID.
// No error if the edge doesn't exist.
func (s *PGStore) DeleteEdge(ctx context.Context, edgeID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("flowcanvas: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var workflowID string
	err = tx.QueryRow(ctx,
		`DELETE FROM workflow_edges WHERE id = $1 RETURNING workflow_id`, edgeID,
	).Scan(&workflowID)
	if err != nil {
		if isNoRows(err) {
			return nil
		}
		return fmt.Errorf("flowcanvas: delete edge: %w", err)
	}

	if err := bumpVersion(ctx, tx, workflowID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListEdges returns all edges of a workflow in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListEdges(ctx context.Context, workflowID string) ([]flowcanvas.Edge, error) {
	return queryEdges(ctx, s.db, workflowID)
}

func queryEdges(ctx context.Context, q querier, workflowID string) ([]flowcanvas.Edge, error) {
	rows, err := q.Query(ctx,
		`SELECT `+edgeColumns+` FROM workflow_edges WHERE workflow_id = $1 ORDER BY ord`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("flowcanvas: list edges: %w", err)
	}
	defer rows.Close()

	edges := []flowcanvas.Edge{}
	for rows.Next() {
		var e flowcanvas.Edge
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Label, &e.Condition); err != nil {
			return nil, fmt.Errorf("flowcanvas: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flowcanvas: rows edges: %w", err)
	}

	return edges, nil
}
