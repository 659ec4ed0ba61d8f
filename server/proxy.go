package main

import (
	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/flowcanvas/backend"
	"github.com/meikuraledutech/flowcanvas/logging"
)

// backendRoutes pass requests through to the execution and insight services.
// Any backend failure is answered with 502.
func (s *server) backendRoutes(app *fiber.App) {
	// ── Executions ────────────────────────────────────────────────────
	app.Get("/workflows/:id/executions", func(c fiber.Ctx) error {
		ctx := logging.WithWorkflowID(c.Context(), c.Params("id"))
		limit := fiber.Query[int](c, "limit", backend.DefaultExecutionLimit)
		list, err := s.workflows.ListExecutions(ctx, c.Params("id"), limit)
		if err != nil {
			return s.badGateway(c, err)
		}
		return c.JSON(list)
	})

	app.Post("/workflows/:id/execute", func(c fiber.Ctx) error {
		var req backend.ExecuteRequest
		if len(c.Body()) > 0 {
			if err := c.Bind().JSON(&req); err != nil {
				return badRequest(c, "invalid body")
			}
		}
		ctx := logging.WithWorkflowID(c.Context(), c.Params("id"))
		ex, err := s.workflows.ExecuteWorkflow(ctx, c.Params("id"), req)
		if err != nil {
			return s.badGateway(c, err)
		}
		s.log.InfoContext(ctx, "workflow execution started", "execution_id", ex.ID, "status", ex.Status)
		return c.Status(fiber.StatusAccepted).JSON(ex)
	})

	// ── Document insights ─────────────────────────────────────────────
	app.Get("/documents/:id/insights", func(c fiber.Ctx) error {
		out, err := s.insights.GetDocumentInsights(c.Context(), c.Params("id"))
		if err != nil {
			return s.badGateway(c, err)
		}
		return sendJSON(c, out)
	})

	app.Get("/documents/:id/key-terms", func(c fiber.Ctx) error {
		out, err := s.insights.GetDocumentKeyTerms(c.Context(), c.Params("id"))
		if err != nil {
			return s.badGateway(c, err)
		}
		return sendJSON(c, out)
	})

	app.Get("/documents/:id/summary", func(c fiber.Ctx) error {
		out, err := s.insights.GetDocumentSummary(c.Context(), c.Params("id"))
		if err != nil {
			return s.badGateway(c, err)
		}
		return sendJSON(c, out)
	})

	app.Post("/documents/generate", func(c fiber.Ctx) error {
		var req backend.GenerateRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid body")
		}
		if req.Prompt == "" {
			return badRequest(c, "prompt is required")
		}
		out, err := s.insights.GenerateDocument(c.Context(), req)
		if err != nil {
			return s.badGateway(c, err)
		}
		return sendJSON(c, out)
	})
}

// sendJSON writes an already encoded JSON body.
func sendJSON(c fiber.Ctx, raw []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}
