package main

import (
	"bytes"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/flowcanvas"
)

func (s *server) workflowRoutes(app *fiber.App) {
	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := s.store.CreateSchema(c.Context()); err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		err := s.canvases.mutateAll(func() error {
			return s.store.DropSchema(c.Context())
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Workflows (bulk) ──────────────────────────────────────────────
	app.Post("/workflows", func(c fiber.Ctx) error {
		var w flowcanvas.Workflow
		if err := c.Bind().JSON(&w); err != nil {
			return badRequest(c, "invalid body")
		}
		var result *flowcanvas.Workflow
		err := s.canvases.mutate(w.ID, func() (err error) {
			result, err = s.store.SaveWorkflow(c.Context(), &w)
			return err
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	app.Post("/workflows/import", func(c fiber.Ctx) error {
		w, err := flowcanvas.DecodeWorkflowYAML(bytes.NewReader(c.Body()))
		if err != nil {
			return s.fail(c, err)
		}
		var result *flowcanvas.Workflow
		err = s.canvases.mutate(w.ID, func() (err error) {
			result, err = s.store.SaveWorkflow(c.Context(), w)
			return err
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	app.Get("/workflows", func(c fiber.Ctx) error {
		list, err := s.store.ListWorkflows(c.Context())
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(list)
	})

	app.Get("/workflows/:id", func(c fiber.Ctx) error {
		w, err := s.store.GetWorkflow(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		if w == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "workflow not found"})
		}
		return c.JSON(w)
	})

	app.Put("/workflows/:id", func(c fiber.Ctx) error {
		var w flowcanvas.Workflow
		if err := c.Bind().JSON(&w); err != nil {
			return badRequest(c, "invalid body")
		}
		w.ID = c.Params("id")
		var result *flowcanvas.Workflow
		err := s.canvases.mutate(w.ID, func() error {
			existing, err := s.store.GetWorkflow(c.Context(), w.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				return flowcanvas.ErrWorkflowNotFound
			}
			if w.Version <= existing.Version {
				w.Version = existing.Version + 1
			}
			result, err = s.store.SaveWorkflow(c.Context(), &w)
			return err
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(result)
	})

	app.Delete("/workflows/:id", func(c fiber.Ctx) error {
		err := s.canvases.mutate(c.Params("id"), func() error {
			return s.store.DeleteWorkflow(c.Context(), c.Params("id"))
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Get("/workflows/:id/export", func(c fiber.Ctx) error {
		w, err := s.store.GetWorkflow(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		if w == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "workflow not found"})
		}
		var buf bytes.Buffer
		if err := flowcanvas.EncodeWorkflowYAML(&buf, w); err != nil {
			return s.fail(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(buf.Bytes())
	})

	app.Post("/workflows/:id/layout", func(c fiber.Ctx) error {
		id := c.Params("id")
		var result *flowcanvas.Workflow
		err := s.canvases.mutate(id, func() error {
			w, err := s.store.GetWorkflow(c.Context(), id)
			if err != nil {
				return err
			}
			if w == nil {
				return flowcanvas.ErrWorkflowNotFound
			}
			st, err := flowcanvas.Reduce(flowcanvas.State{Workflow: *w}, flowcanvas.AutoLayout{})
			if err != nil {
				return err
			}
			result, err = s.store.SaveWorkflow(c.Context(), &st.Workflow)
			return err
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(result)
	})

	// Dry run of the connection validator against the stored edges.
	app.Post("/workflows/:id/connections/validate", func(c fiber.Ctx) error {
		var req struct {
			SourceID string `json:"source_id"`
			TargetID string `json:"target_id"`
		}
		if err := c.Bind().JSON(&req); err != nil || req.SourceID == "" || req.TargetID == "" {
			return badRequest(c, "source_id and target_id are required")
		}
		w, err := s.store.GetWorkflow(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		if w == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "workflow not found"})
		}
		return c.JSON(flowcanvas.ValidateConnection(req.SourceID, req.TargetID, w.Edges))
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/workflows/:id/nodes", func(c fiber.Ctx) error {
		var node flowcanvas.Node
		if err := c.Bind().JSON(&node); err != nil {
			return badRequest(c, "invalid body")
		}
		var id string
		err := s.canvases.mutate(c.Params("id"), func() (err error) {
			id, err = s.store.AddNode(c.Context(), c.Params("id"), &node)
			return err
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	})

	app.Get("/workflows/:id/nodes", func(c fiber.Ctx) error {
		nodes, err := s.store.ListNodes(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(nodes)
	})

	app.Get("/nodes/:id", func(c fiber.Ctx) error {
		n, err := s.store.GetNode(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		if n == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "node not found"})
		}
		return c.JSON(n)
	})

	app.Put("/nodes/:id", func(c fiber.Ctx) error {
		var node flowcanvas.Node
		if err := c.Bind().JSON(&node); err != nil {
			return badRequest(c, "invalid body")
		}
		node.ID = c.Params("id")
		err := s.canvases.mutateAll(func() error {
			return s.store.UpdateNode(c.Context(), &node)
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Delete("/nodes/:id", func(c fiber.Ctx) error {
		err := s.canvases.mutateAll(func() error {
			return s.store.DeleteNode(c.Context(), c.Params("id"))
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/workflows/:id/edges", func(c fiber.Ctx) error {
		var edge flowcanvas.Edge
		if err := c.Bind().JSON(&edge); err != nil {
			return badRequest(c, "invalid body")
		}
		var id string
		err := s.canvases.mutate(c.Params("id"), func() (err error) {
			id, err = s.store.AddEdge(c.Context(), c.Params("id"), &edge)
			return err
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	})

	app.Get("/workflows/:id/edges", func(c fiber.Ctx) error {
		edges, err := s.store.ListEdges(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(edges)
	})

	app.Get("/edges/:id", func(c fiber.Ctx) error {
		e, err := s.store.GetEdge(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		if e == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "edge not found"})
		}
		return c.JSON(e)
	})

	app.Put("/edges/:id", func(c fiber.Ctx) error {
		var edge flowcanvas.Edge
		if err := c.Bind().JSON(&edge); err != nil {
			return badRequest(c, "invalid body")
		}
		edge.ID = c.Params("id")
		err := s.canvases.mutateAll(func() error {
			return s.store.UpdateEdge(c.Context(), &edge)
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Delete("/edges/:id", func(c fiber.Ctx) error {
		err := s.canvases.mutateAll(func() error {
			return s.store.DeleteEdge(c.Context(), c.Params("id"))
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
