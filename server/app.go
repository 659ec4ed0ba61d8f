package main

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/meikuraledutech/flowcanvas"
	"github.com/meikuraledutech/flowcanvas/backend"
	"github.com/meikuraledutech/flowcanvas/conversation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var errBadRequest = errors.New("bad request")

// server holds everything the HTTP handlers need.
type server struct {
	store     flowcanvas.Store
	canvases  *canvasRegistry
	history   *conversation.History
	workflows *backend.WorkflowClient
	insights  *backend.InsightClient
	log       *slog.Logger
	origins   []string
}

func newApp(s *server) *fiber.App {
	// Params are retained as map keys by the store and the canvas registry.
	app := fiber.New(fiber.Config{AppName: "flowcanvas", Immutable: true})

	app.Use(recoverer.New())
	if len(s.origins) > 0 {
		app.Use(cors.New(cors.Config{AllowOrigins: s.origins}))
	}
	app.Use(requestLogger(s.log))

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	s.workflowRoutes(app)
	s.canvasRoutes(app)
	s.conversationRoutes(app)
	s.backendRoutes(app)

	return app
}

func requestLogger(log *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		}
		if err != nil {
			attrs = append(attrs, "error", err)
		}
		log.DebugContext(c.Context(), "request", attrs...)
		return err
	}
}

// statusOf maps domain errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, conversation.ErrInvalidRole),
		errors.Is(err, conversation.ErrEmptyMessage):
		return fiber.StatusBadRequest
	case errors.Is(err, flowcanvas.ErrInvalidWorkflow),
		errors.Is(err, flowcanvas.ErrConnectionRejected),
		errors.Is(err, flowcanvas.ErrCycleDetected),
		errors.Is(err, flowcanvas.ErrInvalidCondition):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, flowcanvas.ErrWorkflowNotFound),
		errors.Is(err, flowcanvas.ErrNodeNotFound),
		errors.Is(err, flowcanvas.ErrEdgeNotFound),
		errors.Is(err, conversation.ErrNotFound):
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

// fail writes err as {"error": ...}. Connection rejections also carry the
// validator's reason and severity.
func (s *server) fail(c fiber.Ctx, err error) error {
	status := statusOf(err)
	if status == fiber.StatusInternalServerError {
		s.log.ErrorContext(c.Context(), "request failed", "path", c.Path(), "error", err)
	}
	body := fiber.Map{"error": err.Error()}
	if d, ok := flowcanvas.RejectionOf(err); ok {
		body["reason"] = d.Reason
		body["severity"] = d.Severity
	}
	return c.Status(status).JSON(body)
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// badGateway reports a failed call to one of the backends.
func (s *server) badGateway(c fiber.Ctx, err error) error {
	s.log.WarnContext(c.Context(), "backend call failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
}
