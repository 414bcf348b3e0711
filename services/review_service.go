package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anjiri1684/skillhat/apperrors"
	"github.com/anjiri1684/skillhat/models"
	"github.com/anjiri1684/skillhat/notifications"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReviewService struct {
	db       *gorm.DB
	notifier *notifications.Notifier
	log      *zap.Logger
}

func NewReviewService(db *gorm.DB, notifier *notifications.Notifier, log *zap.Logger) *ReviewService {
	return &ReviewService{db: db, notifier: notifier, log: log}
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return apperrors.NewValidationError("rating must be between 1 and 5")
	}
	return nil
}

func (s *ReviewService) Create(ctx context.Context, clientID, bookingID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if err := validateRating(rating); err != nil {
		return nil, err
	}

	var (
		review models.Review
		worker models.Worker
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFoundError("booking not found")
			}
			return err
		}
		if booking.ClientID != clientID {
			return apperrors.NewAuthorizationError("only the client of this booking can review it")
		}
		if booking.Status != models.BookingCompleted {
			return apperrors.NewInvalidStateError("only completed bookings can be reviewed")
		}

		var existing int64
		if err := tx.Model(&models.Review{}).Where("booking_id = ?", booking.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperrors.NewConflictError("this booking has already been reviewed")
		}

		review = models.Review{
			BookingID: booking.ID,
			WorkerID:  booking.WorkerID,
			ClientID:  clientID,
			Rating:    rating,
			Comment:   strings.TrimSpace(comment),
		}
		if err := tx.Omit(clause.Associations).Create(&review).Error; err != nil {
			return err
		}
		return recomputeWorkerRating(tx, booking.WorkerID, &worker)
	})
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.NewInternalError("failed to create review", err)
	}

	s.log.Info("review created",
		zap.String("review_id", review.ID.String()),
		zap.String("worker_id", worker.ID.String()),
		zap.Float64("rating", worker.Rating))

	s.notifier.Emit(ctx, worker.UserID, models.NotificationReview, "New Review",
		fmt.Sprintf("You received a %d-star review.", rating),
		fmt.Sprintf("/workers/%s/reviews/", worker.ID))
	s.notifier.Publish(ctx, "review.created", review)

	return &review, nil
}

// Update lets the author change rating and comment. Worker aggregates are
// recomputed on every write.
func (s *ReviewService) Update(ctx context.Context, clientID, reviewID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if err := validateRating(rating); err != nil {
		return nil, err
	}

	var (
		review models.Review
		worker models.Worker
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&review, "id = ?", reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFoundError("review not found")
			}
			return err
		}
		if review.ClientID != clientID {
			return apperrors.NewAuthorizationError("only the author can edit this review")
		}

		review.Rating = rating
		review.Comment = strings.TrimSpace(comment)
		err := tx.Model(&models.Review{}).Where("id = ?", review.ID).Updates(map[string]interface{}{
			"rating":  review.Rating,
			"comment": review.Comment,
		}).Error
		if err != nil {
			return err
		}
		return recomputeWorkerRating(tx, review.WorkerID, &worker)
	})
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.NewInternalError("failed to update review", err)
	}
	return &review, nil
}

func (s *ReviewService) ListForWorker(ctx context.Context, workerID uuid.UUID) ([]models.Review, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Worker{}).Where("id = ?", workerID).Count(&count).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to load worker", err)
	}
	if count == 0 {
		return nil, apperrors.NewNotFoundError("worker not found")
	}

	var reviews []models.Review
	err := s.db.WithContext(ctx).
		Preload("Client").
		Where("worker_id = ?", workerID).
		Order("created_at desc").
		Find(&reviews).Error
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list reviews", err)
	}
	return reviews, nil
}

// recomputeWorkerRating locks the worker row and rewrites rating and
// total_reviews from the current reviews.
func recomputeWorkerRating(tx *gorm.DB, workerID uuid.UUID, worker *models.Worker) error {
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(worker, "id = ?", workerID).Error; err != nil {
		return err
	}

	var ratings []int
	if err := tx.Model(&models.Review{}).Where("worker_id = ?", workerID).Pluck("rating", &ratings).Error; err != nil {
		return err
	}
	mean, count := ComputeRating(ratings)

	err := tx.Model(&models.Worker{}).Where("id = ?", workerID).UpdateColumns(map[string]interface{}{
		"rating":        mean,
		"total_reviews": count,
	}).Error
	if err != nil {
		return err
	}
	worker.Rating = mean
	worker.TotalReviews = count
	return nil
}
