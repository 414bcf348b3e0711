package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Worker is the service-provider profile of a user. Rating, TotalReviews and
// TotalJobs are maintained by review and booking completion writes only.
type Worker struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;unique" json:"user_id"`
	Profession   string    `gorm:"size:100;not null" json:"profession"`
	Bio          string    `gorm:"type:text" json:"bio"`
	HourlyRate   float64   `gorm:"type:numeric(10,2);not null" json:"hourly_rate"`
	Location     string    `gorm:"size:255" json:"location"`
	Rating       float64   `gorm:"type:numeric(3,2);not null;default:0" json:"rating"`
	TotalReviews int       `gorm:"not null;default:0" json:"total_reviews"`
	TotalJobs    int       `gorm:"not null;default:0" json:"total_jobs"`
	IsVerified   bool      `gorm:"not null" json:"is_verified"`
	IsAvailable  bool      `gorm:"not null" json:"is_available"`

	User     User      `gorm:"foreignkey:UserID" json:"user,omitempty"`
	Services []Service `gorm:"foreignkey:WorkerID" json:"services,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w *Worker) BeforeCreate(tx *gorm.DB) error {
	assignID(&w.ID)
	return nil
}

type Service struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	WorkerID        uuid.UUID `gorm:"type:uuid;not null;index" json:"worker_id"`
	Name            string    `gorm:"size:200;not null" json:"name"`
	Description     string    `gorm:"type:text" json:"description"`
	Price           float64   `gorm:"type:numeric(10,2);not null" json:"price"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	IsActive        bool      `gorm:"not null" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}
