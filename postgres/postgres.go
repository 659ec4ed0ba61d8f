package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/flowcanvas"
)

// PGStore implements flowcanvas.Store using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

var _ flowcanvas.Store = (*PGStore)(nil)

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// isNoRows checks if the error is a "no rows" error from pgx.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// wrapInsert marks unique violations, such as a node id owned by another
// workflow, as client errors.
func wrapInsert(what string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s: %s", flowcanvas.ErrInvalidWorkflow, what, pgErr.Detail)
	}
	return fmt.Errorf("flowcanvas: %s: %w", what, err)
}

// bumpVersion increments a workflow's version inside tx.
// Returns ErrWorkflowNotFound if the workflow doesn't exist.
func bumpVersion(ctx context.Context, tx pgx.Tx, workflowID string) error {
	ct, err := tx.Exec(ctx,
		`UPDATE workflows SET version = version + 1, updated_at = NOW() WHERE id = $1`, workflowID)
	if err != nil {
		return fmt.Errorf("flowcanvas: bump version: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return flowcanvas.ErrWorkflowNotFound
	}
	return nil
}

// loadGraph reads the nodes and edges of a workflow inside tx, locking the
// workflow row so concurrent edge inserts validate against the same graph.
func loadGraph(ctx context.Context, tx pgx.Tx, workflowID string) ([]flowcanvas.Node, []flowcanvas.Edge, error) {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM workflows WHERE id = $1 FOR UPDATE`, workflowID).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return nil, nil, flowcanvas.ErrWorkflowNotFound
		}
		return nil, nil, fmt.Errorf("flowcanvas: lock workflow: %w", err)
	}

	nodes, err := queryNodes(ctx, tx, workflowID)
	if err != nil {
		return nil, nil, err
	}
	edges, err := queryEdges(ctx, tx, workflowID)
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}
