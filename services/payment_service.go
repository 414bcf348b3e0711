package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anjiri1684/skillhat/apperrors"
	"github.com/anjiri1684/skillhat/models"
	"github.com/anjiri1684/skillhat/notifications"
	"github.com/anjiri1684/skillhat/obs"
	"github.com/anjiri1684/skillhat/payments"
	"github.com/anjiri1684/skillhat/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gateway is the subset of the SSLCommerz client used for reconciliation.
type Gateway interface {
	CreateSession(ctx context.Context, req payments.SessionRequest) (*payments.SessionResponse, error)
	Validate(ctx context.Context, valID string) (*payments.ValidationResponse, error)
}

// Callback statuses reported by the gateway, and the hints supplied by the
// redirect endpoints.
const (
	CallbackValid     = "VALID"
	CallbackValidated = "VALIDATED"
	CallbackFailed    = "FAILED"
	CallbackCancelled = "CANCELLED"
)

const amountTolerance = 0.01

type PaymentService struct {
	db       *gorm.DB
	gateway  Gateway
	notifier *notifications.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewPaymentService(db *gorm.DB, gateway Gateway, notifier *notifications.Notifier, log *zap.Logger) *PaymentService {
	return &PaymentService{db: db, gateway: gateway, notifier: notifier, log: log, now: time.Now}
}

type CallbackURLs struct {
	SuccessURL string
	FailURL    string
	CancelURL  string
	IPNURL     string
}

type InitiateResult struct {
	PaymentURL    string    `json:"payment_url"`
	TransactionID string    `json:"transaction_id"`
	PaymentID     uuid.UUID `json:"payment_id"`
}

// Initiate opens a gateway session for the booking. The payment row is
// committed before the gateway is called so every attempt is audited.
func (s *PaymentService) Initiate(ctx context.Context, userID, bookingID uuid.UUID, urls CallbackURLs) (*InitiateResult, error) {
	var (
		booking models.Booking
		payment models.Payment
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFoundError("booking not found")
			}
			return err
		}
		if booking.ClientID != userID {
			return apperrors.NewAuthorizationError("only the client can pay for this booking")
		}
		if booking.IsTerminal() {
			return apperrors.NewInvalidStateError(fmt.Sprintf("cannot pay for a booking that is %s", booking.Status))
		}
		if booking.PaymentStatus == models.PaymentStatusPaid {
			return apperrors.NewConflictError("booking is already paid")
		}

		tranID, err := utils.GenerateUniqueTransactionID(tx)
		if err != nil {
			return err
		}
		payment = models.Payment{
			BookingID:     booking.ID,
			Amount:        booking.EstimatedPrice,
			Currency:      payments.Currency,
			TransactionID: tranID,
			Status:        models.PaymentInitiated,
		}
		return tx.Omit(clause.Associations).Create(&payment).Error
	})
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.NewInternalError("failed to start payment", err)
	}

	var client models.User
	if err := s.db.WithContext(ctx).First(&client, "id = ?", booking.ClientID).Error; err != nil {
		s.markInitiationFailed(ctx, &payment, gatewayErrorBody(err))
		return nil, apperrors.NewInternalError("failed to load client", err)
	}

	resp, err := s.gateway.CreateSession(ctx, payments.SessionRequest{
		Amount:          payment.Amount,
		TransactionID:   payment.TransactionID,
		SuccessURL:      urls.SuccessURL,
		FailURL:         urls.FailURL,
		CancelURL:       urls.CancelURL,
		IPNURL:          urls.IPNURL,
		CustomerName:    client.DisplayName(),
		CustomerEmail:   client.Email,
		CustomerPhone:   booking.Phone,
		CustomerAddress: booking.Location,
		ProductName:     fmt.Sprintf("Booking #%s - %s", booking.ID, booking.Title),
		BookingID:       booking.ID.String(),
		PaymentID:       payment.ID.String(),
	})
	if err != nil {
		s.log.Error("payment gateway unreachable",
			zap.String("transaction_id", payment.TransactionID),
			zap.Error(err))
		s.markInitiationFailed(ctx, &payment, gatewayErrorBody(err))
		return nil, apperrors.NewGatewayError("payment gateway is unavailable, please try again", err)
	}
	if !resp.Accepted() {
		reason := resp.FailedReason
		if reason == "" {
			reason = "payment initiation failed"
		}
		s.log.Warn("payment session rejected",
			zap.String("transaction_id", payment.TransactionID),
			zap.String("reason", reason))
		s.markInitiationFailed(ctx, &payment, resp.Raw)
		return nil, apperrors.NewGatewayError(reason, nil)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentInitiated).
			Updates(map[string]interface{}{
				"status":      models.PaymentPending,
				"session_key": resp.SessionKey,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// a callback already settled this attempt
			return nil
		}
		return tx.Model(&models.Booking{}).
			Where("id = ? AND payment_status <> ?", booking.ID, models.PaymentStatusPaid).
			Update("payment_status", models.PaymentStatusPending).Error
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to record payment session", err)
	}

	s.log.Info("payment session created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("transaction_id", payment.TransactionID))

	return &InitiateResult{
		PaymentURL:    resp.GatewayPageURL,
		TransactionID: payment.TransactionID,
		PaymentID:     payment.ID,
	}, nil
}

func (s *PaymentService) markInitiationFailed(ctx context.Context, payment *models.Payment, raw string) {
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentInitiated).
		Updates(map[string]interface{}{
			"status":           models.PaymentFailed,
			"gateway_response": raw,
		}).Error
	if err != nil {
		s.log.Error("failed to mark payment as failed", zap.String("payment_id", payment.ID.String()), zap.Error(err))
		return
	}
	obs.RecordPaymentProcessed(models.PaymentFailed)
}

type CallbackResult struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	PaymentStatus string `json:"payment_status"`
}

func newCallbackResult(p *models.Payment) *CallbackResult {
	status := "error"
	if p.Status == models.PaymentCompleted {
		status = "success"
	}
	return &CallbackResult{Status: status, TransactionID: p.TransactionID, PaymentStatus: p.Status}
}

// ProcessCallback reconciles a gateway callback or IPN. hint is used only
// when the payload carries no status. A "valid" status is never trusted
// without a server-side Validate call, and a payment that already reached a
// terminal status is left untouched.
func (s *PaymentService) ProcessCallback(ctx context.Context, payload map[string]string, hint string) (*CallbackResult, error) {
	tranID := strings.TrimSpace(payload["tran_id"])
	if tranID == "" {
		return nil, apperrors.NewValidationError("tran_id is required")
	}
	status := strings.ToUpper(strings.TrimSpace(payload["status"]))
	if status == "" {
		status = hint
	}

	var payment models.Payment
	if err := s.db.WithContext(ctx).Where("transaction_id = ?", tranID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("callback for unknown transaction", zap.String("transaction_id", tranID))
			return nil, apperrors.NewNotFoundError("payment not found")
		}
		return nil, apperrors.NewInternalError("failed to load payment", err)
	}
	if payment.IsTerminal() {
		return newCallbackResult(&payment), nil
	}

	claimsValid := status == CallbackValid || status == CallbackValidated
	var validation *payments.ValidationResponse
	if claimsValid {
		v, err := s.gateway.Validate(ctx, payload["val_id"])
		if err != nil {
			// leave the payment open so a retried IPN can settle it
			s.log.Error("payment validation unreachable",
				zap.String("transaction_id", tranID),
				zap.Error(err))
			return nil, apperrors.NewGatewayError("could not validate payment", err)
		}
		validation = v
	}
	confirmed := claimsValid && validationConfirms(validation, &payment)

	var (
		booking   models.Booking
		applied   bool
		duplicate bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, "id = ?", payment.ID).Error; err != nil {
			return err
		}
		if payment.IsTerminal() {
			return nil
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", payment.BookingID).Error; err != nil {
			return err
		}

		payment.ValID = payload["val_id"]
		payment.BankTranID = payload["bank_tran_id"]
		payment.CardType = payload["card_type"]
		payment.CardBrand = payload["card_brand"]
		payment.PaymentMethod = payments.PaymentMethod(payload["card_type"])
		note := ""

		bookingUpdates := map[string]interface{}{}
		switch {
		case confirmed:
			var others int64
			err := tx.Model(&models.Payment{}).
				Where("booking_id = ? AND id <> ? AND status = ?", booking.ID, payment.ID, models.PaymentCompleted).
				Count(&others).Error
			if err != nil {
				return err
			}
			if others > 0 {
				duplicate = true
				note = "duplicate_payment"
				payment.Status = models.PaymentFailed
				break
			}
			paidAt := s.now()
			payment.Status = models.PaymentCompleted
			payment.PaidAt = &paidAt
			bookingUpdates["payment_status"] = models.PaymentStatusPaid
			if booking.Status == models.BookingPending {
				bookingUpdates["status"] = models.BookingConfirmed
			}
		case claimsValid:
			note = "validation_rejected"
			payment.Status = models.PaymentFailed
		case status == CallbackCancelled:
			payment.Status = models.PaymentCancelled
			if booking.PaymentStatus != models.PaymentStatusPaid {
				bookingUpdates["payment_status"] = models.PaymentStatusUnpaid
			}
		default:
			payment.Status = models.PaymentFailed
			if booking.PaymentStatus != models.PaymentStatusPaid {
				bookingUpdates["payment_status"] = models.PaymentStatusFailed
			}
		}
		payment.GatewayResponse = callbackRecord(payload, validation, note)

		err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(map[string]interface{}{
			"status":           payment.Status,
			"val_id":           payment.ValID,
			"bank_tran_id":     payment.BankTranID,
			"card_type":        payment.CardType,
			"card_brand":       payment.CardBrand,
			"payment_method":   payment.PaymentMethod,
			"gateway_response": payment.GatewayResponse,
			"paid_at":          payment.PaidAt,
		}).Error
		if err != nil {
			return err
		}
		if len(bookingUpdates) > 0 {
			if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).Updates(bookingUpdates).Error; err != nil {
				return err
			}
			if st, ok := bookingUpdates["status"].(string); ok {
				booking.Status = st
			}
			if ps, ok := bookingUpdates["payment_status"].(string); ok {
				booking.PaymentStatus = ps
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to reconcile payment", err)
	}
	if !applied {
		return newCallbackResult(&payment), nil
	}

	if duplicate {
		s.log.Error("second payment validated for an already paid booking, refund required",
			zap.String("booking_id", booking.ID.String()),
			zap.String("transaction_id", payment.TransactionID))
	}
	s.log.Info("payment reconciled",
		zap.String("transaction_id", payment.TransactionID),
		zap.String("reported_status", status),
		zap.String("payment_status", payment.Status),
		zap.String("booking_payment_status", booking.PaymentStatus))
	obs.RecordPaymentProcessed(payment.Status)

	s.notifyPayment(ctx, &payment, &booking)
	s.notifier.Publish(ctx, "payment."+payment.Status, paymentEvent{
		PaymentID:     payment.ID,
		BookingID:     booking.ID,
		TransactionID: payment.TransactionID,
		Status:        payment.Status,
		Amount:        payment.Amount,
	})

	return newCallbackResult(&payment), nil
}

func (s *PaymentService) notifyPayment(ctx context.Context, payment *models.Payment, booking *models.Booking) {
	link := bookingLink(booking.ID)
	switch payment.Status {
	case models.PaymentCompleted:
		s.notifier.Emit(ctx, booking.ClientID, models.NotificationBooking, "Payment Successful",
			fmt.Sprintf("Your payment of %.2f %s for %q was received.", payment.Amount, payment.Currency, booking.Title), link)

		var worker models.Worker
		if err := s.db.WithContext(ctx).First(&worker, "id = ?", booking.WorkerID).Error; err != nil {
			s.log.Warn("failed to load worker for payment notification", zap.Error(err))
			return
		}
		s.notifier.Emit(ctx, worker.UserID, models.NotificationBooking, "Booking Paid",
			fmt.Sprintf("The client paid for %q.", booking.Title), link)
	case models.PaymentFailed:
		s.notifier.Emit(ctx, booking.ClientID, models.NotificationBooking, "Payment Failed",
			fmt.Sprintf("Your payment for %q did not go through.", booking.Title), link)
	}
}

// ListPayments returns every attempt for the booking, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, userID, bookingID uuid.UUID) ([]models.Payment, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).Preload("Worker").First(&booking, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("booking not found")
		}
		return nil, apperrors.NewInternalError("failed to load booking", err)
	}
	if booking.ClientID != userID && booking.Worker.UserID != userID {
		return nil, apperrors.NewAuthorizationError("you are not a participant of this booking")
	}

	var list []models.Payment
	if err := s.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("created_at desc").Find(&list).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to list payments", err)
	}
	return list, nil
}

// validationConfirms cross-checks the authoritative validation response
// against the stored attempt.
func validationConfirms(v *payments.ValidationResponse, p *models.Payment) bool {
	if v == nil || !v.IsValid() {
		return false
	}
	if v.TranID != "" && v.TranID != p.TransactionID {
		return false
	}
	if amount, ok := v.AmountValue(); ok && math.Abs(amount-p.Amount) > amountTolerance {
		return false
	}
	return true
}

func callbackRecord(payload map[string]string, v *payments.ValidationResponse, note string) string {
	record := map[string]interface{}{"callback": payload}
	if v != nil && v.Raw != "" {
		record["validation"] = json.RawMessage(v.Raw)
	}
	if note != "" {
		record["note"] = note
	}
	b, err := json.Marshal(record)
	if err != nil {
		return ""
	}
	return string(b)
}

func gatewayErrorBody(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}

type paymentEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	BookingID     uuid.UUID `json:"booking_id"`
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	Amount        float64   `json:"amount"`
}
