package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/skillhat/apperrors"
	"github.com/anjiri1684/skillhat/models"
	"github.com/anjiri1684/skillhat/notifications"
	"github.com/anjiri1684/skillhat/obs"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type BookingService struct {
	db           *gorm.DB
	notifier     *notifications.Notifier
	log          *zap.Logger
	defaultHours float64
	now          func() time.Time
}

func NewBookingService(db *gorm.DB, notifier *notifications.Notifier, log *zap.Logger, defaultHours float64) *BookingService {
	return &BookingService{
		db:           db,
		notifier:     notifier,
		log:          log,
		defaultHours: defaultHours,
		now:          time.Now,
	}
}

type CreateBookingInput struct {
	WorkerID      uuid.UUID
	ServiceID     *uuid.UUID
	Title         string
	Description   string
	Location      string
	Phone         string
	ScheduledDate string
	ScheduledTime string
}

func (s *BookingService) Create(ctx context.Context, clientID uuid.UUID, in CreateBookingInput) (*models.Booking, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Location) == "" {
		return nil, apperrors.NewValidationError("title and location are required")
	}
	scheduled, err := time.ParseInLocation(dateLayout+" "+timeLayout, in.ScheduledDate+" "+in.ScheduledTime, time.Local)
	if err != nil {
		return nil, apperrors.NewValidationError("scheduled_date must be YYYY-MM-DD and scheduled_time HH:MM")
	}
	if scheduled.Before(s.now()) {
		return nil, apperrors.NewValidationError("cannot book a time in the past")
	}

	account, err := LoadAccount(ctx, s.db, clientID)
	if err != nil {
		return nil, err
	}
	client := account.Owner()

	var worker models.Worker
	if err := s.db.WithContext(ctx).First(&worker, "id = ?", in.WorkerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("worker not found")
		}
		return nil, apperrors.NewInternalError("failed to load worker", err)
	}
	if worker.UserID == clientID {
		return nil, apperrors.NewValidationError("you cannot book yourself")
	}
	if !worker.IsAvailable {
		return nil, apperrors.NewValidationError("worker is not available for bookings")
	}

	estimate := roundMoney(worker.HourlyRate * s.defaultHours)
	if in.ServiceID != nil {
		var service models.Service
		err := s.db.WithContext(ctx).
			Where("id = ? AND worker_id = ? AND is_active = ?", *in.ServiceID, worker.ID, true).
			First(&service).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NewValidationError("service is not offered by this worker")
			}
			return nil, apperrors.NewInternalError("failed to load service", err)
		}
		estimate = service.Price
	}

	booking := models.Booking{
		ClientID:       clientID,
		WorkerID:       worker.ID,
		ServiceID:      in.ServiceID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Location:       strings.TrimSpace(in.Location),
		Phone:          in.Phone,
		ScheduledDate:  in.ScheduledDate,
		ScheduledTime:  in.ScheduledTime,
		EstimatedPrice: estimate,
		Status:         models.BookingPending,
		PaymentStatus:  models.PaymentStatusUnpaid,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&booking).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to create booking", err)
	}

	s.log.Info("booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("worker_id", worker.ID.String()),
		zap.Float64("estimated_price", estimate))
	obs.RecordBookingTransition("create")

	s.notifier.Emit(ctx, worker.UserID, models.NotificationBooking,
		"New Booking Request",
		fmt.Sprintf("%s requested a booking.", client.DisplayName()),
		bookingLink(booking.ID))
	s.notifier.Publish(ctx, "booking.created", bookingEvent(&booking))

	return &booking, nil
}

// Transition applies action to the booking on behalf of userID. The booking
// row is locked for the duration of the check and the write.
func (s *BookingService) Transition(ctx context.Context, userID, bookingID uuid.UUID, action Action, finalPrice *float64) (*models.Booking, error) {
	if finalPrice != nil {
		if action != ActionComplete {
			return nil, apperrors.NewValidationError("final_price can only be set when completing a booking")
		}
		if *finalPrice <= 0 {
			return nil, apperrors.NewValidationError("final_price must be greater than zero")
		}
	}

	var (
		booking models.Booking
		worker  models.Worker
		actor   actorRole
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFoundError("booking not found")
			}
			return err
		}
		if err := tx.Preload("User").First(&worker, "id = ?", booking.WorkerID).Error; err != nil {
			return err
		}

		switch userID {
		case booking.ClientID:
			actor = actorClient
		case worker.UserID:
			actor = actorWorker
		default:
			return apperrors.NewAuthorizationError("you are not a participant of this booking")
		}

		next, err := nextStatus(action, actor, booking.Status)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"status": next}
		booking.Status = next
		if action == ActionComplete {
			completedAt := s.now()
			updates["completed_at"] = completedAt
			booking.CompletedAt = &completedAt
			if finalPrice != nil {
				updates["final_price"] = *finalPrice
				booking.FinalPrice = finalPrice
			}
			err := tx.Model(&models.Worker{}).Where("id = ?", worker.ID).
				UpdateColumn("total_jobs", gorm.Expr("total_jobs + ?", 1)).Error
			if err != nil {
				return err
			}
		}
		return tx.Model(&models.Booking{}).Where("id = ?", booking.ID).Updates(updates).Error
	})
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.NewInternalError("failed to update booking", err)
	}

	s.log.Info("booking transitioned",
		zap.String("booking_id", booking.ID.String()),
		zap.String("action", string(action)),
		zap.String("status", booking.Status))
	obs.RecordBookingTransition(string(action))

	s.notifyTransition(ctx, &booking, &worker, action, actor)
	s.notifier.Publish(ctx, "booking."+string(action), bookingEvent(&booking))

	return &booking, nil
}

func (s *BookingService) notifyTransition(ctx context.Context, booking *models.Booking, worker *models.Worker, action Action, actor actorRole) {
	workerName := worker.User.DisplayName()
	link := bookingLink(booking.ID)

	switch action {
	case ActionAccept:
		s.notifier.Emit(ctx, booking.ClientID, models.NotificationBooking, "Booking Accepted",
			fmt.Sprintf("%s accepted your booking %q.", workerName, booking.Title), link)
	case ActionDecline:
		s.notifier.Emit(ctx, booking.ClientID, models.NotificationBooking, "Booking Declined",
			fmt.Sprintf("%s declined your booking %q.", workerName, booking.Title), link)
	case ActionStart:
		s.notifier.Emit(ctx, booking.ClientID, models.NotificationBooking, "Job Started",
			fmt.Sprintf("%s started working on %q.", workerName, booking.Title), link)
	case ActionComplete:
		s.notifier.Emit(ctx, booking.ClientID, models.NotificationBooking, "Booking Completed",
			fmt.Sprintf("%q is complete. Leave a review for %s.", booking.Title, workerName),
			fmt.Sprintf("/bookings/%s/review/", booking.ID))
	case ActionCancel:
		if actor == actorClient {
			s.notifier.Emit(ctx, worker.UserID, models.NotificationBooking, "Booking Cancelled",
				fmt.Sprintf("The client cancelled %q.", booking.Title), link)
			return
		}
		s.notifier.Emit(ctx, booking.ClientID, models.NotificationBooking, "Booking Cancelled",
			fmt.Sprintf("%s cancelled your booking %q.", workerName, booking.Title), link)
	}
}

// Get returns the booking if userID is its client or worker.
func (s *BookingService) Get(ctx context.Context, userID, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Worker.User").
		Preload("Service").
		First(&booking, "id = ?", bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("booking not found")
		}
		return nil, apperrors.NewInternalError("failed to load booking", err)
	}
	if booking.ClientID != userID && booking.Worker.UserID != userID {
		return nil, apperrors.NewAuthorizationError("you are not a participant of this booking")
	}
	return &booking, nil
}

// List returns the bookings visible to userID, newest first. Worker accounts
// see jobs assigned to them as well as bookings they made as a client.
func (s *BookingService) List(ctx context.Context, userID uuid.UUID, status string) ([]models.Booking, error) {
	if status != "" && !validBookingStatus(status) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown booking status %q", status))
	}
	account, err := LoadAccount(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&models.Booking{})
	if wa, ok := account.(models.WorkerAccount); ok {
		q = q.Where("(worker_id = ? OR client_id = ?)", wa.Profile.ID, userID)
	} else {
		q = q.Where("client_id = ?", userID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var bookings []models.Booking
	err = q.Preload("Client").
		Preload("Worker.User").
		Order("created_at desc").
		Find(&bookings).Error
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list bookings", err)
	}
	return bookings, nil
}

type DashboardStats struct {
	Role          string           `json:"role"`
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`

	TotalEarnings *float64 `json:"total_earnings,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	TotalReviews  *int     `json:"total_reviews,omitempty"`
	TotalJobs     *int     `json:"total_jobs,omitempty"`
}

// Dashboard aggregates on every call; nothing here is cached.
func (s *BookingService) Dashboard(ctx context.Context, userID uuid.UUID) (*DashboardStats, error) {
	account, err := LoadAccount(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	scope := s.db.WithContext(ctx).Model(&models.Booking{})
	wa, isWorker := account.(models.WorkerAccount)
	if isWorker {
		scope = scope.Where("worker_id = ?", wa.Profile.ID)
	} else {
		scope = scope.Where("client_id = ?", userID)
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := scope.Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to count bookings", err)
	}

	stats := &DashboardStats{Role: account.Role(), ByStatus: make(map[string]int64, len(bookingStatuses))}
	for _, st := range bookingStatuses {
		stats.ByStatus[st] = 0
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.TotalBookings += r.Count
	}
	if !isWorker {
		return stats, nil
	}

	var earnings float64
	err = s.db.WithContext(ctx).Model(&models.Booking{}).
		Select("COALESCE(SUM(COALESCE(final_price, estimated_price)), 0)").
		Where("worker_id = ? AND status = ?", wa.Profile.ID, models.BookingCompleted).
		Row().Scan(&earnings)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to sum earnings", err)
	}
	earnings = roundMoney(earnings)

	rating, reviews, jobs := wa.Profile.Rating, wa.Profile.TotalReviews, wa.Profile.TotalJobs
	stats.TotalEarnings = &earnings
	stats.Rating = &rating
	stats.TotalReviews = &reviews
	stats.TotalJobs = &jobs
	return stats, nil
}

func bookingLink(id uuid.UUID) string {
	return fmt.Sprintf("/bookings/%s/", id)
}

type bookingEventPayload struct {
	BookingID     uuid.UUID `json:"booking_id"`
	ClientID      uuid.UUID `json:"client_id"`
	WorkerID      uuid.UUID `json:"worker_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
}

func bookingEvent(b *models.Booking) bookingEventPayload {
	return bookingEventPayload{
		BookingID:     b.ID,
		ClientID:      b.ClientID,
		WorkerID:      b.WorkerID,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
	}
}
