package routes

import (
	"github.com/anjiri1684/skillhat/handlers"
	"github.com/anjiri1684/skillhat/middleware"
	"github.com/gofiber/fiber/v2"
)

func PublicRoutes(app *fiber.App, h *handlers.Handler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", middleware.PrometheusHandler())

	api := app.Group("/api/v1")
	api.Get("/workers/:workerId/reviews", h.GetWorkerReviews)
}

// Register wires every route group onto app.
func Register(app *fiber.App, h *handlers.Handler, protected fiber.Handler) {
	PublicRoutes(app, h)
	AuthRoutes(app, h, protected)
	ProfileRoutes(app, h, protected)
	BookingRoutes(app, h, protected)
	PaymentRoutes(app, h)
	MessagingRoutes(app, h, protected)
	NotificationRoutes(app, h, protected)
}
