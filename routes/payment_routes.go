package routes

import (
	"github.com/anjiri1684/skillhat/handlers"
	"github.com/gofiber/fiber/v2"
)

// PaymentRoutes registers the gateway-facing endpoints. They carry no JWT;
// every callback is checked against the gateway before it settles anything.
func PaymentRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	callback := api.Group("/payments/callback")
	callback.Post("/success", h.PaymentSuccess())
	callback.Post("/fail", h.PaymentFail())
	callback.Post("/cancel", h.PaymentCancel())

	api.Post("/payments/ipn", h.PaymentIPN())
}
