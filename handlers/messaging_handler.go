package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required,uuid"`
	BookingID  string `json:"booking_id" validate:"omitempty,uuid"`
	Content    string `json:"content" validate:"required,max=5000"`
}

func (h *Handler) SendMessage(c *fiber.Ctx) error {
	senderID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	var bookingID *uuid.UUID
	if req.BookingID != "" {
		id := uuid.MustParse(req.BookingID)
		bookingID = &id
	}

	msg, err := h.Messages.Send(c.UserContext(), senderID, uuid.MustParse(req.ReceiverID), bookingID, req.Content)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *Handler) GetConversations(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	list, err := h.Messages.Conversations(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) GetConversation(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	otherID, ok := uuidParam(c, "userId")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}
	messages, err := h.Messages.Conversation(c.UserContext(), userID, otherID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(messages)
}
