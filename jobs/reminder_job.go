package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/anjiri1684/skillhat/models"
	"github.com/anjiri1684/skillhat/notifications"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReminderJob notifies both parties of bookings scheduled for the next day.
type ReminderJob struct {
	db       *gorm.DB
	notifier *notifications.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewReminderJob(db *gorm.DB, notifier *notifications.Notifier, log *zap.Logger) *ReminderJob {
	return &ReminderJob{db: db, notifier: notifier, log: log, now: time.Now}
}

// Run is the cron entry point.
func (j *ReminderJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := j.SendReminders(ctx); err != nil {
		j.log.Error("reminder job failed", zap.Error(err))
	}
}

// SendReminders returns the number of bookings reminded.
func (j *ReminderJob) SendReminders(ctx context.Context) (int, error) {
	tomorrow := j.now().AddDate(0, 0, 1).Format("2006-01-02")
	j.log.Info("Running job: SendReminders", zap.String("scheduled_date", tomorrow))

	var upcoming []models.Booking
	err := j.db.WithContext(ctx).
		Preload("Worker").
		Where("status IN ? AND scheduled_date = ?",
			[]string{models.BookingAccepted, models.BookingConfirmed}, tomorrow).
		Find(&upcoming).Error
	if err != nil {
		return 0, fmt.Errorf("loading upcoming bookings: %w", err)
	}

	for _, booking := range upcoming {
		link := fmt.Sprintf("/bookings/%s/", booking.ID)
		message := fmt.Sprintf("%q is scheduled for tomorrow at %s, %s.",
			booking.Title, booking.ScheduledTime, booking.Location)

		j.notifier.Emit(ctx, booking.ClientID, models.NotificationSystem, "Booking Reminder", message, link)
		j.notifier.Emit(ctx, booking.Worker.UserID, models.NotificationSystem, "Booking Reminder", message, link)
	}
	if len(upcoming) > 0 {
		j.log.Info("reminders sent", zap.Int("bookings", len(upcoming)))
	}
	return len(upcoming), nil
}
