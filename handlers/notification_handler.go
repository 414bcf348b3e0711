package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetNotifications(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	list, err := h.Notifier.List(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	unread, err := h.Notifier.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"notifications": list, "unread_count": unread})
}

func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid notification ID")
	}
	if err := h.Notifier.MarkRead(c.UserContext(), userID, id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

func (h *Handler) MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	n, err := h.Notifier.MarkAllRead(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}

func (h *Handler) GetUnreadCount(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	n, err := h.Notifier.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": n})
}
