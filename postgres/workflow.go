package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/flowcanvas"
)

// SaveWorkflow saves a full workflow (nodes + edges) in one transaction.
// Nodes/edges without IDs get auto-generated UUIDs.
// Existing nodes and edges of the workflow are replaced.
// Returns the workflow with all IDs filled in.
func (s *PGStore) SaveWorkflow(ctx context.Context, w *flowcanvas.Workflow) (*flowcanvas.Workflow, error) {
	out := w.Clone()
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	for i := range out.Nodes {
		if out.Nodes[i].ID == "" {
			out.Nodes[i].ID = uuid.NewString()
		}
	}
	for i := range out.Edges {
		if out.Edges[i].ID == "" {
			out.Edges[i].ID = uuid.NewString()
		}
	}

	if err := flowcanvas.ValidateWorkflow(&out); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("flowcanvas: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO workflows (id, name, version) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, version = EXCLUDED.version, updated_at = NOW()`,
		out.ID, out.Name, out.Version,
	); err != nil {
		return nil, fmt.Errorf("flowcanvas: upsert workflow: %w", err)
	}

	// Replace semantics.
	if _, err := tx.Exec(ctx, `DELETE FROM workflow_edges WHERE workflow_id = $1`, out.ID); err != nil {
		return nil, fmt.Errorf("flowcanvas: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM workflow_nodes WHERE workflow_id = $1`, out.ID); err != nil {
		return nil, fmt.Errorf("flowcanvas: delete nodes: %w", err)
	}

	for i, n := range out.Nodes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO workflow_nodes (id, workflow_id, ord, category, title, description, x, y)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			n.ID, out.ID, i, n.Category.String(), n.Title, n.Description, n.Position.X, n.Position.Y,
		); err != nil {
			return nil, wrapInsert("insert node "+n.ID, err)
		}
	}

	for i, e := range out.Edges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO workflow_edges (id, workflow_id, ord, source_id, target_id, label, condition)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.ID, out.ID, i, e.SourceID, e.TargetID, e.Label, e.Condition,
		); err != nil {
			return nil, wrapInsert("insert edge "+e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("flowcanvas: commit: %w", err)
	}

	return &out, nil
}

// GetWorkflow retrieves a full workflow (nodes + edges) by its ID.
// Returns nil, nil if the workflow doesn't exist.
func (s *PGStore) GetWorkflow(ctx context.Context, workflowID string) (*flowcanvas.Workflow, error) {
	w := &flowcanvas.Workflow{ID: workflowID}

	err := s.db.QueryRow(ctx,
		`SELECT name, version FROM workflows WHERE id = $1`, workflowID,
	).Scan(&w.Name, &w.Version)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("flowcanvas: get workflow: %w", err)
	}

	if w.Nodes, err = queryNodes(ctx, s.db, workflowID); err != nil {
		return nil, err
	}
	if w.Edges, err = queryEdges(ctx, s.db, workflowID); err != nil {
		return nil, err
	}

	return w, nil
}

// ListWorkflows returns a summary of every stored workflow, ordered by ID.
func (s *PGStore) ListWorkflows(ctx context.Context) ([]flowcanvas.WorkflowSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT w.id, w.name, w.version,
		       (SELECT COUNT(*) FROM workflow_nodes n WHERE n.workflow_id = w.id),
		       (SELECT COUNT(*) FROM workflow_edges e WHERE e.workflow_id = w.id)
		FROM workflows w ORDER BY w.id`)
	if err != nil {
		return nil, fmt.Errorf("flowcanvas: list workflows: %w", err)
	}
	defer rows.Close()

	out := []flowcanvas.WorkflowSummary{}
	for rows.Next() {
		var ws flowcanvas.WorkflowSummary
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Version, &ws.NodeCount, &ws.EdgeCount); err != nil {
			return nil, fmt.Errorf("flowcanvas: scan workflow: %w", err)
		}
		out = append(out, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flowcanvas: rows workflows: %w", err)
	}

	return out, nil
}

// DeleteWorkflow removes a workflow; nodes and edges cascade.
// No error if the workflowID doesn't exist.
func (s *PGStore) DeleteWorkflow(ctx context.Context, workflowID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, workflowID); err != nil {
		return fmt.Errorf("flowcanvas: delete workflow: %w", err)
	}
	return nil
}
