package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/flowcanvas"
	"github.com/meikuraledutech/flowcanvas/logging"
	"github.com/meikuraledutech/flowcanvas/memory"
	"github.com/meikuraledutech/flowcanvas/postgres"
)

func main() {
	ctx := context.Background()
	log := logging.New("info", "text")

	fatal := func(msg string, err error) {
		log.Error(msg, "error", err)
		os.Exit(1)
	}

	// Postgres when DATABASE_URL is set, memory otherwise.
	var store flowcanvas.Store = memory.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			fatal("connect", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	}

	if err := store.CreateSchema(ctx); err != nil {
		fatal("schema", err)
	}

	// ── Bulk save ─────────────────────────────────────────────────────
	saved, err := store.SaveWorkflow(ctx, &flowcanvas.Workflow{
		ID:   "invoice-intake",
		Name: "Invoice intake",
		Nodes: []flowcanvas.Node{
			{Category: flowcanvas.CategoryTrigger, Title: "Invoice received"},
			{Category: flowcanvas.CategoryAction, Title: "Run OCR", Position: flowcanvas.Point{X: 300}},
			{Category: flowcanvas.CategoryLogic, Title: "Needs approval?", Position: flowcanvas.Point{X: 600}},
		},
	})
	if err != nil {
		fatal("save workflow", err)
	}
	fmt.Println("workflow saved")
	received, ocr, approval := saved.Nodes[0], saved.Nodes[1], saved.Nodes[2]

	// ── Canvas gestures ───────────────────────────────────────────────
	cv := flowcanvas.NewCanvas(*saved)

	connect := func(from, to flowcanvas.Node) flowcanvas.Outcome {
		start := cv.Viewport().ToScreen(flowcanvas.OutputHandle(from.Position))
		end := cv.Viewport().ToScreen(flowcanvas.InputHandle(to.Position))
		cv.PointerDown(start, cv.TargetAt(start))
		cv.PointerMove(end)
		return cv.PointerUp(end, cv.TargetAt(end))
	}

	out := connect(received, ocr)
	fmt.Printf("\nconnect %q → %q: accepted=%v\n", received.Title, ocr.Title, out.Decision.Accepted)
	out = connect(ocr, approval)
	fmt.Printf("connect %q → %q: accepted=%v\n", ocr.Title, approval.Title, out.Decision.Accepted)
	out = connect(approval, received)
	fmt.Printf("connect %q → %q: accepted=%v reason=%q\n", approval.Title, received.Title, out.Decision.Accepted, out.Decision.Reason)

	// Zoom in around the origin, then drag the approval node.
	cv.ZoomAt(flowcanvas.Point{}, 2)
	grab := cv.Viewport().ToScreen(approval.Position.Add(flowcanvas.Point{X: 100, Y: 40}))
	cv.PointerDown(grab, cv.TargetAt(grab))
	out = cv.PointerUp(grab.Add(flowcanvas.Point{X: 50, Y: 100}), flowcanvas.Target{})
	fmt.Printf("moved %q to %+v\n", approval.Title, *out.Position)

	// ── Persist the canvas ────────────────────────────────────────────
	w := cv.Workflow()
	if _, err := store.SaveWorkflow(ctx, &w); err != nil {
		fatal("save canvas", err)
	}

	edges, err := store.ListEdges(ctx, "invoice-intake")
	if err != nil {
		fatal("list edges", err)
	}
	fmt.Printf("\nedges (%d):\n", len(edges))
	printJSON(edges)

	// ── Draw list ─────────────────────────────────────────────────────
	dl := flowcanvas.Project(cv.Scene())
	fmt.Printf("\ntransform: %s\n", dl.Transform)
	for _, e := range dl.Edges {
		fmt.Printf("  %s\n", e.Path)
	}

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteWorkflow(ctx, "invoice-intake"); err != nil {
		fatal("delete", err)
	}
	fmt.Println("\nworkflow deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
