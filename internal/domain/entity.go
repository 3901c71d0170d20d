package domain

import (
	"time"
)

// Subscriber license statuses.
const (
	StatusTrial             = "trial"
	StatusActive            = "active"
	StatusPendingActivation = "pending_activation"
)

// Subscriber represents a license holder entitled to pull signals.
type Subscriber struct {
	APIKey    string    `gorm:"primaryKey" json:"api_key"`
	Username  string    `gorm:"uniqueIndex" json:"username"`
	WhatsApp  string    `json:"whatsapp_number"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `gorm:"index" json:"end_date"`
	Status    string    `gorm:"index" json:"status"` // trial, active, pending_activation
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Licensed reports whether the subscriber may receive signals on the given
// day: a trial or active status whose end date has not passed. Dates compare
// at day granularity, so a license stays valid through its final day.
func (s *Subscriber) Licensed(now time.Time) bool {
	if s.Status != StatusTrial && s.Status != StatusActive {
		return false
	}
	return !DateOnly(now).After(DateOnly(s.EndDate))
}

// DateOnly truncates a timestamp to midnight of its day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
