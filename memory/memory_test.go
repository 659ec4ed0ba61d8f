package memory

import (
	"context"
	"testing"
	"unsafe"

	"github.com/meikuraledutech/flowcanvas"
	"github.com/meikuraledutech/flowcanvas/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Contract(t *testing.T) {
	storetest.RunStoreContract(t, New())
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	w, err := s.SaveWorkflow(ctx, &flowcanvas.Workflow{
		ID:    "wf",
		Nodes: []flowcanvas.Node{{ID: "a", Title: "original"}},
	})
	require.NoError(t, err)
	w.Nodes[0].Title = "mutated"

	got, err := s.GetWorkflow(ctx, "wf")
	require.NoError(t, err)
	assert.Equal(t, "original", got.Nodes[0].Title)
}

func TestStore_NodeIDsAreGlobal(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.SaveWorkflow(ctx, &flowcanvas.Workflow{ID: "one", Nodes: []flowcanvas.Node{{ID: "shared"}}})
	require.NoError(t, err)
	_, err = s.SaveWorkflow(ctx, &flowcanvas.Workflow{ID: "two", Nodes: []flowcanvas.Node{{ID: "shared"}}})
	assert.ErrorIs(t, err, flowcanvas.ErrInvalidWorkflow)

	_, err = s.SaveWorkflow(ctx, &flowcanvas.Workflow{ID: "two"})
	require.NoError(t, err)
	_, err = s.AddNode(ctx, "two", &flowcanvas.Node{ID: "shared"})
	assert.ErrorIs(t, err, flowcanvas.ErrInvalidWorkflow)
}

// Request routers may hand out ids backed by a reused buffer.
func TestStore_KeysSurviveReusedBuffers(t *testing.T) {
	s := New()
	ctx := context.Background()
	buf := []byte("wf")
	id := unsafe.String(&buf[0], len(buf))

	_, err := s.SaveWorkflow(ctx, &flowcanvas.Workflow{ID: id})
	require.NoError(t, err)
	_, err = s.AddNode(ctx, id, &flowcanvas.Node{ID: "a"})
	require.NoError(t, err)
	copy(buf, "zz")

	got, err := s.GetWorkflow(ctx, "wf")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "wf", got.ID)
	assert.Len(t, got.Nodes, 1)

	list, err := s.ListWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "wf", list[0].ID)
}
