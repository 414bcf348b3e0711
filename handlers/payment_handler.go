package handlers

import (
	"strings"

	"github.com/anjiri1684/skillhat/apperrors"
	"github.com/anjiri1684/skillhat/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const callbackPath = "/api/v1/payments/callback"

func (h *Handler) callbackURLs() services.CallbackURLs {
	base := strings.TrimRight(h.BaseURL, "/")
	return services.CallbackURLs{
		SuccessURL: base + callbackPath + "/success",
		FailURL:    base + callbackPath + "/fail",
		CancelURL:  base + callbackPath + "/cancel",
		IPNURL:     base + "/api/v1/payments/ipn",
	}
}

func (h *Handler) InitiatePayment(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	bookingID, ok := uuidParam(c, "bookingId")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}

	result, err := h.Payments.Initiate(c.UserContext(), userID, bookingID, h.callbackURLs())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(result)
}

func (h *Handler) GetBookingPayments(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	bookingID, ok := uuidParam(c, "bookingId")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}
	list, err := h.Payments.ListPayments(c.UserContext(), userID, bookingID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

// gatewayPayload collects the form fields the gateway posts back. Query
// parameters fill in anything the form does not carry.
func gatewayPayload(c *fiber.Ctx) map[string]string {
	payload := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		payload[string(key)] = string(value)
	})
	c.Request().URI().QueryArgs().VisitAll(func(key, value []byte) {
		if _, ok := payload[string(key)]; !ok {
			payload[string(key)] = string(value)
		}
	})
	return payload
}

func (h *Handler) paymentCallback(hint string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := gatewayPayload(c)
		result, err := h.Payments.ProcessCallback(c.UserContext(), payload, hint)
		if err != nil {
			h.Log.Warn("payment callback rejected",
				zap.String("tran_id", payload["tran_id"]),
				zap.String("hint", hint),
				zap.Error(err))
			code := fiber.StatusBadRequest
			switch apperrors.KindOf(err) {
			case apperrors.KindNotFound:
				code = fiber.StatusNotFound
			case apperrors.KindGateway:
				code = fiber.StatusBadGateway
			case apperrors.KindInternal:
				code = fiber.StatusInternalServerError
			}
			return c.Status(code).JSON(fiber.Map{"status": "error", "error": apperrors.Message(err)})
		}
		return c.JSON(result)
	}
}

func (h *Handler) PaymentSuccess() fiber.Handler { return h.paymentCallback(services.CallbackValid) }
func (h *Handler) PaymentFail() fiber.Handler    { return h.paymentCallback(services.CallbackFailed) }
func (h *Handler) PaymentCancel() fiber.Handler  { return h.paymentCallback(services.CallbackCancelled) }

// PaymentIPN trusts only the status in the notification body.
func (h *Handler) PaymentIPN() fiber.Handler { return h.paymentCallback("") }
