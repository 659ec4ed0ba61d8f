package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/flowcanvas"
	"github.com/meikuraledutech/flowcanvas/logging"
	"github.com/meikuraledutech/flowcanvas/metrics"
)

// pointerRequest is one pointer event in screen coordinates. Without an
// explicit target the element under the pointer is hit-tested.
type pointerRequest struct {
	Type   string             `json:"type"` // down, move, up, leave
	X      float64            `json:"x"`
	Y      float64            `json:"y"`
	Target *flowcanvas.Target `json:"target,omitempty"`
}

type pointerResponse struct {
	Session flowcanvas.SessionKind `json:"session"`
	Hover   flowcanvas.Target      `json:"hover"`
	Started *bool                  `json:"started,omitempty"`
	Outcome *flowcanvas.Outcome    `json:"outcome,omitempty"`
}

type viewportRequest struct {
	X      float64           `json:"x"`
	Y      float64           `json:"y"`
	Factor float64           `json:"factor"`
	Zoom   *float64          `json:"zoom,omitempty"`
	Origin *flowcanvas.Point `json:"origin,omitempty"`
}

type dropRequest struct {
	Category string  `json:"category"`
	Title    string  `json:"title"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

func (s *server) canvasRoutes(app *fiber.App) {
	app.Get("/workflows/:id/canvas", func(c fiber.Ctx) error {
		var dl flowcanvas.DrawList
		err := s.canvases.with(c.Context(), c.Params("id"), func(cv *flowcanvas.Canvas) (bool, error) {
			dl = flowcanvas.Project(cv.Scene())
			return false, nil
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(dl)
	})

	app.Post("/workflows/:id/canvas/pointer", func(c fiber.Ctx) error {
		var req pointerRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid body")
		}
		ctx := logging.WithWorkflowID(c.Context(), c.Params("id"))

		var resp pointerResponse
		err := s.canvases.with(ctx, c.Params("id"), func(cv *flowcanvas.Canvas) (bool, error) {
			changed, err := s.pointer(ctx, cv, req, &resp)
			resp.Session = cv.State()
			resp.Hover = cv.Hover()
			return changed, err
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(resp)
	})

	app.Post("/workflows/:id/canvas/viewport", func(c fiber.Ctx) error {
		var req viewportRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid body")
		}

		var view flowcanvas.Viewport
		err := s.canvases.with(c.Context(), c.Params("id"), func(cv *flowcanvas.Canvas) (bool, error) {
			if req.Origin != nil {
				cv.SetOrigin(*req.Origin)
			}
			switch {
			case req.Zoom != nil:
				cv.SetZoom(*req.Zoom)
			case req.Factor > 0:
				cv.ZoomAt(flowcanvas.Point{X: req.X, Y: req.Y}, req.Factor)
			}
			view = cv.Viewport()
			return false, nil
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(view)
	})

	app.Post("/workflows/:id/canvas/drop", func(c fiber.Ctx) error {
		var req dropRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid body")
		}
		cat, err := flowcanvas.ParseCategory(req.Category)
		if err != nil {
			return badRequest(c, err.Error())
		}

		var node flowcanvas.Node
		err = s.canvases.with(c.Context(), c.Params("id"), func(cv *flowcanvas.Canvas) (bool, error) {
			n, err := cv.DropNode(cat, req.Title, flowcanvas.Point{X: req.X, Y: req.Y})
			if err != nil {
				return false, err
			}
			node = n
			return true, nil
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(node)
	})

	app.Put("/workflows/:id/canvas/selection", func(c fiber.Ctx) error {
		var sel flowcanvas.Selection
		if err := c.Bind().JSON(&sel); err != nil {
			return badRequest(c, "invalid body")
		}
		err := s.canvases.with(c.Context(), c.Params("id"), func(cv *flowcanvas.Canvas) (bool, error) {
			return false, cv.Editor().Dispatch(flowcanvas.SetSelection{Selection: sel})
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(sel)
	})

	app.Delete("/workflows/:id/canvas/selection", func(c fiber.Ctx) error {
		var deleted bool
		err := s.canvases.with(c.Context(), c.Params("id"), func(cv *flowcanvas.Canvas) (bool, error) {
			var err error
			deleted, err = cv.DeleteSelection()
			return deleted, err
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"deleted": deleted})
	})
}

// pointer routes one pointer event into cv and reports whether the
// committed workflow changed.
func (s *server) pointer(ctx context.Context, cv *flowcanvas.Canvas, req pointerRequest, resp *pointerResponse) (bool, error) {
	screen := flowcanvas.Point{X: req.X, Y: req.Y}
	target := cv.TargetAt(screen)
	if req.Target != nil {
		target = *req.Target
	}

	var out flowcanvas.Outcome
	switch req.Type {
	case "down":
		started := cv.PointerDown(screen, target)
		resp.Started = &started
		return false, nil
	case "move":
		cv.PointerMove(screen)
		return false, nil
	case "up":
		out = cv.PointerUp(screen, target)
	case "leave":
		out = cv.PointerLeave(screen)
	default:
		return false, fmt.Errorf("%w: unknown pointer event %q", errBadRequest, req.Type)
	}

	resp.Outcome = &out
	s.recordOutcome(ctx, out)
	if out.Err != nil {
		return false, out.Err
	}
	return out.Changed, nil
}

func (s *server) recordOutcome(ctx context.Context, out flowcanvas.Outcome) {
	if out.Kind == flowcanvas.Idle {
		return
	}
	metrics.RecordGesture(string(out.Kind), out.Changed)

	if out.Decision == nil {
		return
	}
	metrics.RecordConnection(out.Decision.Accepted, string(out.Decision.Reason))
	if !out.Decision.Accepted {
		s.log.InfoContext(ctx, "connection rejected",
			"reason", out.Decision.Reason,
			"severity", out.Decision.Severity,
		)
	}
}
