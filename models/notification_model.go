package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationBooking = "booking"
	NotificationMessage = "message"
	NotificationReview  = "review"
	NotificationSystem  = "system"
)

type Notification struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Type    string    `gorm:"size:20;not null" json:"notification_type"`
	Title   string    `gorm:"size:200;not null" json:"title"`
	Message string    `gorm:"type:text" json:"message"`
	IsRead  bool      `gorm:"not null" json:"is_read"`
	Link    string    `gorm:"size:255" json:"link"`

	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	assignID(&n.ID)
	return nil
}
