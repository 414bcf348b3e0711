package notifications

import (
	"context"
	"errors"

	"github.com/anjiri1684/skillhat/apperrors"
	"github.com/anjiri1684/skillhat/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const EventNotificationCreated = "notification.created"

// EventPublisher delivers domain events to the message bus.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Notifier stores in-app notifications and forwards domain events. Emit and
// Publish never fail the caller; errors are logged.
type Notifier struct {
	db     *gorm.DB
	events EventPublisher
	log    *zap.Logger
}

func NewNotifier(db *gorm.DB, events EventPublisher, log *zap.Logger) *Notifier {
	return &Notifier{db: db, events: events, log: log}
}

// Emit must be called after the triggering transaction has committed.
func (n *Notifier) Emit(ctx context.Context, userID uuid.UUID, kind, title, message, link string) {
	if n == nil {
		return
	}

	notification := models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if err := n.db.WithContext(ctx).Create(&notification).Error; err != nil {
		n.log.Error("failed to store notification",
			zap.String("user_id", userID.String()),
			zap.String("title", title),
			zap.Error(err))
		return
	}

	n.Publish(ctx, EventNotificationCreated, notification)
}

func (n *Notifier) Publish(ctx context.Context, key string, v any) {
	if n == nil || n.events == nil {
		return
	}
	if err := n.events.PublishJSON(ctx, key, v); err != nil {
		n.log.Warn("failed to publish event", zap.String("key", key), zap.Error(err))
	}
}

func (n *Notifier) List(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	var list []models.Notification
	err := n.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(100).
		Find(&list).Error
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load notifications", err)
	}
	return list, nil
}

func (n *Notifier) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	var notification models.Notification
	err := n.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFoundError("notification not found")
		}
		return apperrors.NewInternalError("failed to load notification", err)
	}
	if notification.IsRead {
		return nil
	}
	if err := n.db.WithContext(ctx).Model(&notification).Update("is_read", true).Error; err != nil {
		return apperrors.NewInternalError("failed to update notification", err)
	}
	return nil
}

func (n *Notifier) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := n.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, apperrors.NewInternalError("failed to update notifications", res.Error)
	}
	return res.RowsAffected, nil
}

func (n *Notifier) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := n.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.NewInternalError("failed to count notifications", err)
	}
	return count, nil
}
