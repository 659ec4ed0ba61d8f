package main

import (
	"context"
	"testing"
	"time"

	"github.com/meikuraledutech/flowcanvas"
	"github.com/meikuraledutech/flowcanvas/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_MutateWaitsForCanvasCommit(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.SaveWorkflow(ctx, &flowcanvas.Workflow{ID: "wf"})
	require.NoError(t, err)
	r := newCanvasRegistry(store)

	done := make(chan struct{})
	err = r.with(ctx, "wf", func(cv *flowcanvas.Canvas) (bool, error) {
		go func() {
			defer close(done)
			_ = r.mutate("wf", func() error {
				_, err := store.AddNode(ctx, "wf", &flowcanvas.Node{ID: "rest"})
				return err
			})
		}()
		select {
		case <-done:
			t.Error("store change ran while the canvas was open")
		case <-time.After(50 * time.Millisecond):
		}
		_, err := cv.DropNode(flowcanvas.CategoryAction, "canvas", flowcanvas.Point{})
		return err == nil, err
	})
	require.NoError(t, err)
	<-done

	w, err := store.GetWorkflow(ctx, "wf")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Len(t, w.Nodes, 2)
	assert.Empty(t, r.open)
}

func TestRegistry_MutateAllDropsEveryCanvas(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for _, id := range []string{"one", "two"} {
		_, err := store.SaveWorkflow(ctx, &flowcanvas.Workflow{ID: id})
		require.NoError(t, err)
	}
	r := newCanvasRegistry(store)
	noop := func(*flowcanvas.Canvas) (bool, error) { return false, nil }
	require.NoError(t, r.with(ctx, "one", noop))
	require.NoError(t, r.with(ctx, "two", noop))
	require.Len(t, r.open, 2)

	require.NoError(t, r.mutate("one", func() error { return nil }))
	assert.Len(t, r.open, 1)

	err := r.mutateAll(func() error { return flowcanvas.ErrNodeNotFound })
	assert.ErrorIs(t, err, flowcanvas.ErrNodeNotFound)
	assert.Empty(t, r.open)
}
