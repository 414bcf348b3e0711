package routes

import (
	"github.com/anjiri1684/skillhat/handlers"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(app *fiber.App, h *handlers.Handler, protected fiber.Handler) {
	api := app.Group("/api/v1")

	booking := api.Group("/bookings", protected)
	booking.Post("", h.CreateBooking)
	booking.Get("", h.GetMyBookings)
	booking.Get("/:bookingId", h.GetBooking)
	booking.Post("/:bookingId/payments", h.InitiatePayment)
	booking.Get("/:bookingId/payments", h.GetBookingPayments)
	booking.Post("/:bookingId/:action", h.TransitionBooking)

	reviews := api.Group("/reviews", protected)
	reviews.Post("", h.CreateReview)
	reviews.Patch("/:reviewId", h.UpdateReview)
}
