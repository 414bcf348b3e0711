package handlers

import (
	"errors"

	"github.com/anjiri1684/skillhat/apperrors"
	"github.com/anjiri1684/skillhat/notifications"
	"github.com/anjiri1684/skillhat/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var validate = validator.New()

type Handler struct {
	Accounts *services.AccountService
	Bookings *services.BookingService
	Payments *services.PaymentService
	Reviews  *services.ReviewService
	Messages *services.MessagingService
	Notifier *notifications.Notifier
	Log      *zap.Logger

	// BaseURL is the public address the payment gateway calls back to.
	BaseURL string
}

var statusByKind = map[apperrors.Kind]int{
	apperrors.KindValidation:    fiber.StatusBadRequest,
	apperrors.KindAuthorization: fiber.StatusForbidden,
	apperrors.KindInvalidState:  fiber.StatusConflict,
	apperrors.KindNotFound:      fiber.StatusNotFound,
	apperrors.KindGateway:       fiber.StatusBadGateway,
	apperrors.KindConflict:      fiber.StatusConflict,
	apperrors.KindInternal:      fiber.StatusInternalServerError,
}

// fail writes err as {"error": message}. Internal causes are logged and
// replaced with a generic message.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	kind := apperrors.KindOf(err)
	code, ok := statusByKind[kind]
	if !ok {
		code = fiber.StatusInternalServerError
	}
	if code >= fiber.StatusInternalServerError || kind == apperrors.KindGateway {
		h.Log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": apperrors.Message(err)})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

var errInvalidToken = errors.New("invalid token claims")

func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errInvalidToken
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, errInvalidToken
	}
	return uuid.Parse(raw)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}
