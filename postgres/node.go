package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/flowcanvas"
)

const nodeColumns = `id, category, title, description, x, y`

// AddNode appends a single node to a workflow.
// If node.ID is empty, a UUID is auto-generated.
// Returns the node ID (generated or provided).
func (s *PGStore) AddNode(ctx context.Context, workflowID string, node *flowcanvas.Node) (string, error) {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	if !node.Category.Valid() {
		return "", fmt.Errorf("%w: add node: invalid category %d", flowcanvas.ErrInvalidWorkflow, int(node.Category))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("flowcanvas: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := bumpVersion(ctx, tx, workflowID); err != nil {
		return "", err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO workflow_nodes (id, workflow_id, ord, category, title, description, x, y)
		 VALUES ($1, $2, (SELECT COALESCE(MAX(ord) + 1, 0) FROM workflow_nodes WHERE workflow_id = $2), $3, $4, $5, $6, $7)`,
		node.ID, workflowID, node.Category.String(), node.Title, node.Description, node.Position.X, node.Position.Y,
	)
	if err != nil {
		return "", wrapInsert("insert node", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("flowcanvas: commit: %w", err)
	}
	return node.ID, nil
}

// GetNode fetches a single node by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetNode(ctx context.Context, nodeID string) (*flowcanvas.Node, error) {
	n, err := scanNode(s.db.QueryRow(ctx,
		`SELECT `+nodeColumns+` FROM workflow_nodes WHERE id = $1`, nodeID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("flowcanvas: get node: %w", err)
	}
	return &n, nil
}

// UpdateNode updates the category, text and position of an existing node.
// Returns ErrNodeNotFound if the node doesn't exist.
func (s *PGStore) UpdateNode(ctx context.Context, node *flowcanvas.Node) error {
	if !node.Category.Valid() {
		return fmt.Errorf("%w: update node: invalid category %d", flowcanvas.ErrInvalidWorkflow, int(node.Category))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("flowcanvas: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var workflowID string
	err = tx.QueryRow(ctx,
		`UPDATE workflow_nodes SET category = $1, title = $2, description = $3, x = $4, y = $5
		 WHERE id = $6 RETURNING workflow_id`,
		node.Category.String(), node.Title, node.Description, node.Position.X, node.Position.Y, node.ID,
	).Scan(&workflowID)
	if err != nil {
		if isNoRows(err) {
			return flowcanvas.ErrNodeNotFound
		}
		return fmt.Errorf("flowcanvas: update node: %w", err)
	}

	if err := bumpVersion(ctx, tx, workflowID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteNode deletes a node by its ID.
// Associated edges are cascade-deleted by the DB.
// No error if the node doesn't exist.
func (s *PGStore) DeleteNode(ctx context.Context, nodeID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("flowcanvas: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var workflowID string
	err = tx.QueryRow(ctx,
		`DELETE FROM workflow_nodes WHERE id = $1 RETURNING workflow_id`, nodeID,
	).Scan(&workflowID)
	if err != nil {
		if isNoRows(err) {
			return nil
		}
		return fmt.Errorf("flowcanvas: delete node: %w", err)
	}

	if err := bumpVersion(ctx, tx, workflowID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListNodes returns all nodes of a workflow in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListNodes(ctx context.Context, workflowID string) ([]flowcanvas.Node, error) {
	return queryNodes(ctx, s.db, workflowID)
}

func queryNodes(ctx context.Context, q querier, workflowID string) ([]flowcanvas.Node, error) {
	rows, err := q.Query(ctx,
		`SELECT `+nodeColumns+` FROM workflow_nodes WHERE workflow_id = $1 ORDER BY ord`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("flowcanvas: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []flowcanvas.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("flowcanvas: scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flowcanvas: rows nodes: %w", err)
	}

	return nodes, nil
}

func scanNode(row pgx.Row) (flowcanvas.Node, error) {
	var (
		n        flowcanvas.Node
		category string
	)
	if err := row.Scan(&n.ID, &category, &n.Title, &n.Description, &n.Position.X, &n.Position.Y); err != nil {
		return n, err
	}
	c, err := flowcanvas.ParseCategory(category)
	if err != nil {
		return n, err
	}
	n.Category = c
	return n, nil
}
