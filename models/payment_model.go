package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentInitiated = "initiated"
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
)

// Payment is one attempt to collect money for a booking. Rows are never
// deleted and a terminal status is never changed.
type Payment struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BookingID     uuid.UUID `gorm:"type:uuid;not null;index" json:"booking_id"`
	Amount        float64   `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency      string    `gorm:"size:3;not null" json:"currency"`
	TransactionID string    `gorm:"size:100;not null;unique" json:"transaction_id"`
	SessionKey    *string   `gorm:"size:255" json:"-"`
	Status        string    `gorm:"size:20;not null" json:"status"`

	ValID         string `gorm:"size:100" json:"val_id"`
	BankTranID    string `gorm:"size:100" json:"bank_tran_id"`
	CardType      string `gorm:"size:50" json:"card_type"`
	CardBrand     string `gorm:"size:50" json:"card_brand"`
	PaymentMethod string `gorm:"size:20" json:"payment_method"`

	GatewayResponse string     `gorm:"type:text" json:"-"`
	PaidAt          *time.Time `json:"paid_at"`

	Booking Booking `gorm:"foreignkey:BookingID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentCompleted, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}
