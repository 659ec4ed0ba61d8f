// Package storetest holds the behaviour every flowcanvas.Store must share.
package storetest

import (
	"context"
	"testing"

	"github.com/meikuraledutech/flowcanvas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract exercises store against a fresh schema.
func RunStoreContract(t *testing.T, store flowcanvas.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.DropSchema(ctx))
	require.NoError(t, store.CreateSchema(ctx))

	seed := func(t *testing.T) *flowcanvas.Workflow {
		t.Helper()
		w, err := store.SaveWorkflow(ctx, &flowcanvas.Workflow{
			Name: "Invoice intake",
			Nodes: []flowcanvas.Node{
				{ID: flowcanvas.NewID(), Category: flowcanvas.CategoryTrigger, Title: "Invoice received"},
				{ID: flowcanvas.NewID(), Category: flowcanvas.CategoryAction, Title: "Run OCR", Position: flowcanvas.Point{X: 300}},
				{ID: flowcanvas.NewID(), Category: flowcanvas.CategoryLogic, Title: "Needs approval?", Position: flowcanvas.Point{X: 600}},
			},
		})
		require.NoError(t, err)
		require.NotEmpty(t, w.ID)
		return w
	}

	t.Run("SaveAndGet", func(t *testing.T) {
		w := seed(t)
		w.Edges = []flowcanvas.Edge{{SourceID: w.Nodes[0].ID, TargetID: w.Nodes[1].ID, Label: "scan"}}
		w.Version = 4

		saved, err := store.SaveWorkflow(ctx, w)
		require.NoError(t, err)
		require.Len(t, saved.Edges, 1)
		assert.NotEmpty(t, saved.Edges[0].ID)

		got, err := store.GetWorkflow(ctx, w.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Invoice intake", got.Name)
		assert.Equal(t, 4, got.Version)
		require.Len(t, got.Nodes, 3)
		assert.Equal(t, "Run OCR", got.Nodes[1].Title)
		assert.Equal(t, flowcanvas.CategoryLogic, got.Nodes[2].Category)
		assert.Equal(t, flowcanvas.Point{X: 600}, got.Nodes[2].Position)
		require.Len(t, got.Edges, 1)
		assert.Equal(t, "scan", got.Edges[0].Label)
	})

	t.Run("SaveRejectsCycle", func(t *testing.T) {
		w := seed(t)
		a, b := w.Nodes[0].ID, w.Nodes[1].ID
		w.Edges = []flowcanvas.Edge{{SourceID: a, TargetID: b}, {SourceID: b, TargetID: a}}
		_, err := store.SaveWorkflow(ctx, w)
		assert.ErrorIs(t, err, flowcanvas.ErrCycleDetected)
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := store.GetWorkflow(ctx, "does-not-exist")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("List", func(t *testing.T) {
		w := seed(t)
		list, err := store.ListWorkflows(ctx)
		require.NoError(t, err)
		var found bool
		for _, s := range list {
			if s.ID == w.ID {
				found = true
				assert.Equal(t, 3, s.NodeCount)
			}
		}
		assert.True(t, found)
	})

	t.Run("Nodes", func(t *testing.T) {
		w := seed(t)

		id, err := store.AddNode(ctx, w.ID, &flowcanvas.Node{Category: flowcanvas.CategoryIntegration, Title: "Push to archive"})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		n, err := store.GetNode(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, "Push to archive", n.Title)

		n.Position = flowcanvas.Point{X: 900, Y: 120}
		n.Description = "Long-term storage"
		require.NoError(t, store.UpdateNode(ctx, n))

		nodes, err := store.ListNodes(ctx, w.ID)
		require.NoError(t, err)
		require.Len(t, nodes, 4)
		assert.Equal(t, id, nodes[3].ID)
		assert.Equal(t, flowcanvas.Point{X: 900, Y: 120}, nodes[3].Position)

		err = store.UpdateNode(ctx, &flowcanvas.Node{ID: "missing"})
		assert.ErrorIs(t, err, flowcanvas.ErrNodeNotFound)

		missing, err := store.GetNode(ctx, "missing")
		assert.NoError(t, err)
		assert.Nil(t, missing)

		_, err = store.AddNode(ctx, "no-such-workflow", &flowcanvas.Node{Title: "orphan"})
		assert.ErrorIs(t, err, flowcanvas.ErrWorkflowNotFound)

		got, err := store.GetWorkflow(ctx, w.ID)
		require.NoError(t, err)
		assert.Greater(t, got.Version, w.Version)
	})

	t.Run("NodeIDsAreUnique", func(t *testing.T) {
		w := seed(t)
		other := seed(t)
		taken := w.Nodes[0].ID

		_, err := store.AddNode(ctx, other.ID, &flowcanvas.Node{ID: taken, Title: "copy"})
		assert.ErrorIs(t, err, flowcanvas.ErrInvalidWorkflow)

		other.Nodes = append(other.Nodes, flowcanvas.Node{ID: taken, Title: "copy"})
		_, err = store.SaveWorkflow(ctx, other)
		assert.ErrorIs(t, err, flowcanvas.ErrInvalidWorkflow)

		got, err := store.GetWorkflow(ctx, w.ID)
		require.NoError(t, err)
		assert.Len(t, got.Nodes, 3)
	})

	t.Run("Edges", func(t *testing.T) {
		w := seed(t)
		a, b, c := w.Nodes[0].ID, w.Nodes[1].ID, w.Nodes[2].ID

		ab, err := store.AddEdge(ctx, w.ID, &flowcanvas.Edge{SourceID: a, TargetID: b})
		require.NoError(t, err)
		bc, err := store.AddEdge(ctx, w.ID, &flowcanvas.Edge{SourceID: b, TargetID: c})
		require.NoError(t, err)

		_, err = store.AddEdge(ctx, w.ID, &flowcanvas.Edge{SourceID: c, TargetID: a})
		assert.ErrorIs(t, err, flowcanvas.ErrCircularDependency)
		_, err = store.AddEdge(ctx, w.ID, &flowcanvas.Edge{SourceID: a, TargetID: b})
		assert.ErrorIs(t, err, flowcanvas.ErrDuplicateEdge)
		_, err = store.AddEdge(ctx, w.ID, &flowcanvas.Edge{SourceID: a, TargetID: a})
		assert.ErrorIs(t, err, flowcanvas.ErrSelfConnection)

		e, err := store.GetEdge(ctx, ab)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, a, e.SourceID)

		e.Label = "scanned"
		e.Condition = `pages > 0`
		require.NoError(t, store.UpdateEdge(ctx, e))

		reversed := &flowcanvas.Edge{ID: bc, SourceID: b, TargetID: a}
		assert.ErrorIs(t, store.UpdateEdge(ctx, reversed), flowcanvas.ErrCircularDependency)
		assert.ErrorIs(t, store.UpdateEdge(ctx, &flowcanvas.Edge{ID: "missing"}), flowcanvas.ErrEdgeNotFound)

		edges, err := store.ListEdges(ctx, w.ID)
		require.NoError(t, err)
		require.Len(t, edges, 2)
		assert.Equal(t, "scanned", edges[0].Label)

		require.NoError(t, store.DeleteEdge(ctx, ab))
		require.NoError(t, store.DeleteEdge(ctx, ab))
		edges, err = store.ListEdges(ctx, w.ID)
		require.NoError(t, err)
		assert.Len(t, edges, 1)
	})

	t.Run("DeleteNodeCascades", func(t *testing.T) {
		w := seed(t)
		a, b := w.Nodes[0].ID, w.Nodes[1].ID
		_, err := store.AddEdge(ctx, w.ID, &flowcanvas.Edge{SourceID: a, TargetID: b})
		require.NoError(t, err)

		require.NoError(t, store.DeleteNode(ctx, b))
		require.NoError(t, store.DeleteNode(ctx, b))

		edges, err := store.ListEdges(ctx, w.ID)
		require.NoError(t, err)
		assert.Empty(t, edges)
		nodes, err := store.ListNodes(ctx, w.ID)
		require.NoError(t, err)
		assert.Len(t, nodes, 2)
	})

	t.Run("DeleteWorkflow", func(t *testing.T) {
		w := seed(t)
		require.NoError(t, store.DeleteWorkflow(ctx, w.ID))
		require.NoError(t, store.DeleteWorkflow(ctx, w.ID))

		got, err := store.GetWorkflow(ctx, w.ID)
		assert.NoError(t, err)
		assert.Nil(t, got)

		nodes, err := store.ListNodes(ctx, w.ID)
		require.NoError(t, err)
		assert.NotNil(t, nodes)
		assert.Empty(t, nodes)
	})
}
