package handlers

import (
	"github.com/anjiri1684/skillhat/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	WorkerID      string `json:"worker_id" validate:"required,uuid"`
	ServiceID     string `json:"service_id" validate:"omitempty,uuid"`
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description"`
	Location      string `json:"location" validate:"required,max=255"`
	Phone         string `json:"phone" validate:"omitempty,max=20"`
	ScheduledDate string `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	ScheduledTime string `json:"scheduled_time" validate:"required,datetime=15:04"`
}

type TransitionRequest struct {
	FinalPrice *float64 `json:"final_price" validate:"omitempty,gt=0"`
}

func (h *Handler) CreateBooking(c *fiber.Ctx) error {
	clientID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	in := services.CreateBookingInput{
		WorkerID:      uuid.MustParse(req.WorkerID),
		Title:         req.Title,
		Description:   req.Description,
		Location:      req.Location,
		Phone:         req.Phone,
		ScheduledDate: req.ScheduledDate,
		ScheduledTime: req.ScheduledTime,
	}
	if req.ServiceID != "" {
		serviceID := uuid.MustParse(req.ServiceID)
		in.ServiceID = &serviceID
	}

	booking, err := h.Bookings.Create(c.UserContext(), clientID, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(booking)
}

func (h *Handler) GetMyBookings(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	bookings, err := h.Bookings.List(c.UserContext(), userID, c.Query("status"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(bookings)
}

func (h *Handler) GetBooking(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	bookingID, ok := uuidParam(c, "bookingId")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}
	booking, err := h.Bookings.Get(c.UserContext(), userID, bookingID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(booking)
}

// TransitionBooking handles POST /bookings/:bookingId/:action where action is
// one of accept, decline, start, complete or cancel.
func (h *Handler) TransitionBooking(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	bookingID, ok := uuidParam(c, "bookingId")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}
	action, err := services.ParseAction(c.Params("action"))
	if err != nil {
		return h.fail(c, err)
	}

	var req TransitionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Cannot parse JSON")
		}
		if err := validate.Struct(req); err != nil {
			return badRequest(c, err.Error())
		}
	}

	booking, err := h.Bookings.Transition(c.UserContext(), userID, bookingID, action, req.FinalPrice)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(booking)
}

func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	stats, err := h.Bookings.Dashboard(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(stats)
}
