package routes

import (
	"github.com/anjiri1684/skillhat/handlers"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(app *fiber.App, h *handlers.Handler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	profile := api.Group("/workers/me", protected)
	profile.Patch("", h.UpdateWorkerProfile)
	profile.Post("/services", h.AddService)

	api.Get("/dashboard/stats", protected, h.GetDashboard)
}
