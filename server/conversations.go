package main

import (
	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/flowcanvas/conversation"
)

func (s *server) conversationRoutes(app *fiber.App) {
	app.Get("/conversations", func(c fiber.Ctx) error {
		list, err := s.history.List(c.Context())
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(list)
	})

	app.Post("/conversations", func(c fiber.Ctx) error {
		var req struct {
			Title string `json:"title"`
		}
		if len(c.Body()) > 0 {
			if err := c.Bind().JSON(&req); err != nil {
				return badRequest(c, "invalid body")
			}
		}
		conv, err := s.history.Create(c.Context(), req.Title)
		if err != nil {
			return s.fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(conv)
	})

	app.Get("/conversations/:id", func(c fiber.Ctx) error {
		conv, err := s.history.Get(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(conv)
	})

	app.Post("/conversations/:id/messages", func(c fiber.Ctx) error {
		var msg conversation.Message
		if err := c.Bind().JSON(&msg); err != nil {
			return badRequest(c, "invalid body")
		}
		conv, err := s.history.AppendMessage(c.Context(), c.Params("id"), msg)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(conv)
	})

	app.Delete("/conversations/:id", func(c fiber.Ctx) error {
		if err := s.history.Delete(c.Context(), c.Params("id")); err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
