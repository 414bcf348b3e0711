package routes

import (
	"github.com/anjiri1684/skillhat/handlers"
	"github.com/gofiber/fiber/v2"
)

func MessagingRoutes(app *fiber.App, h *handlers.Handler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	messages := api.Group("/messages", protected)
	messages.Post("", h.SendMessage)
	messages.Get("/conversations", h.GetConversations)
	messages.Get("/with/:userId", h.GetConversation)
}
