package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"signal_hub/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage is the subscriber/license store. It backs the licensing oracle the
// broadcast engine consults for fan-out enumeration and key validation.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite database at the given path.
func NewStorage(path string) (*Storage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.Subscriber{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// ======================================================================================
// Subscriber Operations
// ======================================================================================

// CreateTrial registers a new subscriber with a fresh API key and a 7-day
// trial license.
func (s *Storage) CreateTrial(username, whatsapp string, now time.Time) (*domain.Subscriber, error) {
	sub := &domain.Subscriber{
		APIKey:    uuid.NewString(),
		Username:  username,
		WhatsApp:  whatsapp,
		StartDate: domain.DateOnly(now),
		EndDate:   domain.DateOnly(now).AddDate(0, 0, 7),
		Status:    domain.StatusTrial,
	}
	if err := s.db.Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

// EnsureInternalKey guarantees the internal submit key has its own active
// subscriber row, so the submitter's cache slot participates in fan-out like
// any other subscriber. An existing row is left untouched.
func (s *Storage) EnsureInternalKey(apiKey string, now time.Time) error {
	sub, err := s.GetSubscriber(apiKey)
	if err != nil {
		return err
	}
	if sub != nil {
		return nil
	}
	return s.db.Create(&domain.Subscriber{
		APIKey:    apiKey,
		Username:  "internal",
		StartDate: domain.DateOnly(now),
		EndDate:   domain.DateOnly(now).AddDate(100, 0, 0),
		Status:    domain.StatusActive,
	}).Error
}

// GetSubscriber retrieves a subscriber by API key. A missing row is not an
// error.
func (s *Storage) GetSubscriber(apiKey string) (*domain.Subscriber, error) {
	var sub domain.Subscriber
	err := s.db.First(&sub, "api_key = ?", apiKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &sub, err
}

// UpsertSubscriber creates or updates a subscriber row.
func (s *Storage) UpsertSubscriber(sub *domain.Subscriber) error {
	return s.db.Save(sub).Error
}

// ActivateLicense marks a subscriber active and extends the license by the
// given number of months, counted from the later of the current end date and
// today. An already-active license therefore stacks; an expired one restarts
// from today.
func (s *Storage) ActivateLicense(apiKey string, months int, now time.Time) (*domain.Subscriber, error) {
	var sub domain.Subscriber
	if err := s.db.First(&sub, "api_key = ?", apiKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnknownSubscriber
		}
		return nil, err
	}

	today := domain.DateOnly(now)
	base := domain.DateOnly(sub.EndDate)
	if base.Before(today) {
		base = today
		sub.StartDate = today
	}
	sub.EndDate = base.AddDate(0, months, 0)
	sub.Status = domain.StatusActive

	if err := s.db.Save(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// ======================================================================================
// Licensing Oracle
// ======================================================================================

// ValidKey reports whether the key belongs to a trial or active subscriber
// whose license has not passed its end date.
func (s *Storage) ValidKey(apiKey string, now time.Time) (bool, error) {
	sub, err := s.GetSubscriber(apiKey)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, nil
	}
	return sub.Licensed(now), nil
}

// EligibleKeys lists the API key of every subscriber currently entitled to
// receive broadcasts.
func (s *Storage) EligibleKeys(now time.Time) ([]string, error) {
	var keys []string
	err := s.db.Model(&domain.Subscriber{}).
		Where("status IN ? AND end_date >= ?", []string{domain.StatusTrial, domain.StatusActive}, domain.DateOnly(now)).
		Pluck("api_key", &keys).Error
	return keys, err
}
