package routes

import (
	"github.com/anjiri1684/skillhat/handlers"
	"github.com/gofiber/fiber/v2"
)

func NotificationRoutes(app *fiber.App, h *handlers.Handler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	notifications := api.Group("/notifications", protected)
	notifications.Get("", h.GetNotifications)
	notifications.Get("/unread-count", h.GetUnreadCount)
	notifications.Post("/read-all", h.MarkAllNotificationsRead)
	notifications.Post("/:id/read", h.MarkNotificationRead)
}
