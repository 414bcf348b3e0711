package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateReviewRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

func (h *Handler) CreateReview(c *fiber.Ctx) error {
	clientID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req CreateReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	review, err := h.Reviews.Create(c.UserContext(), clientID, uuid.MustParse(req.BookingID), req.Rating, req.Comment)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

func (h *Handler) UpdateReview(c *fiber.Ctx) error {
	clientID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	reviewID, ok := uuidParam(c, "reviewId")
	if !ok {
		return badRequest(c, "Invalid review ID")
	}

	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	review, err := h.Reviews.Update(c.UserContext(), clientID, reviewID, req.Rating, req.Comment)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(review)
}
