package main

import (
	"context"
	"strings"
	"sync"

	"github.com/meikuraledutech/flowcanvas"
	"github.com/meikuraledutech/flowcanvas/metrics"
)

// canvasRegistry keeps one Canvas per workflow. A Canvas is single-owner, so
// every call into one goes through the registry lock.
type canvasRegistry struct {
	mu    sync.Mutex
	store flowcanvas.Store
	open  map[string]*flowcanvas.Canvas
}

func newCanvasRegistry(store flowcanvas.Store) *canvasRegistry {
	return &canvasRegistry{store: store, open: make(map[string]*flowcanvas.Canvas)}
}

// with runs fn on the workflow's canvas, opening it from the store first if
// needed. When fn reports a change, the committed workflow is saved back.
func (r *canvasRegistry) with(ctx context.Context, workflowID string, fn func(cv *flowcanvas.Canvas) (bool, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cv, ok := r.open[workflowID]
	if !ok {
		w, err := r.store.GetWorkflow(ctx, workflowID)
		if err != nil {
			return err
		}
		if w == nil {
			return flowcanvas.ErrWorkflowNotFound
		}
		cv = flowcanvas.NewCanvas(*w)
		r.open[strings.Clone(workflowID)] = cv
		metrics.CanvasesOpen.Set(float64(len(r.open)))
	}

	changed, fnErr := fn(cv)
	if changed {
		w := cv.Workflow()
		if _, err := r.store.SaveWorkflow(ctx, &w); err != nil {
			// Reload from the store on next use.
			r.dropLocked(workflowID)
			return err
		}
	}
	return fnErr
}

// mutate runs a store change to one workflow that bypasses its canvas. The
// registry lock is held throughout, so no canvas commit can interleave with
// the change, and the canvas is dropped afterwards.
func (r *canvasRegistry) mutate(workflowID string, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.dropLocked(workflowID)
	return fn()
}

// mutateAll is mutate for changes that can't be tied to a workflow, such as
// node and edge routes addressed by id. Every canvas is dropped.
func (r *canvasRegistry) mutateAll(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() {
		clear(r.open)
		metrics.CanvasesOpen.Set(0)
	}()
	return fn()
}

func (r *canvasRegistry) dropLocked(workflowID string) {
	delete(r.open, workflowID)
	metrics.CanvasesOpen.Set(float64(len(r.open)))
}
