package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BookingPending    = "pending"
	BookingAccepted   = "accepted"
	BookingConfirmed  = "confirmed"
	BookingInProgress = "in_progress"
	BookingCompleted  = "completed"
	BookingCancelled  = "cancelled"
)

const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

type Booking struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ClientID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	WorkerID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"worker_id"`
	ServiceID     *uuid.UUID `gorm:"type:uuid" json:"service_id"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	Location      string     `gorm:"size:255;not null" json:"location"`
	Phone         string     `gorm:"size:20" json:"phone"`
	ScheduledDate string     `gorm:"size:10;not null;index" json:"scheduled_date"`
	ScheduledTime string     `gorm:"size:5;not null" json:"scheduled_time"`

	EstimatedPrice float64  `gorm:"type:numeric(10,2);not null" json:"estimated_price"`
	FinalPrice     *float64 `gorm:"type:numeric(10,2)" json:"final_price"`

	Status        string `gorm:"size:20;not null;default:'pending'" json:"status"`
	PaymentStatus string `gorm:"size:20;not null;default:'unpaid'" json:"payment_status"`

	Client  User     `gorm:"foreignkey:ClientID" json:"client,omitempty"`
	Worker  Worker   `gorm:"foreignkey:WorkerID" json:"worker,omitempty"`
	Service *Service `gorm:"foreignkey:ServiceID" json:"service,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	assignID(&b.ID)
	return nil
}

// IsTerminal reports whether no further transition is allowed.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingCompleted || b.Status == BookingCancelled
}
