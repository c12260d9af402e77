package services

import (
	"errors"
	"time"

	"github.com/webagent-cloud/mailagent/internal/database/models"
	"gorm.io/gorm"
)

// ErrEmailNotFound indicates the email was not found
var ErrEmailNotFound = errors.New("email not found")

// EmailService handles queries over the ingested message store
type EmailService struct {
	db *gorm.DB
}

// NewEmailService creates a new EmailService instance
func NewEmailService(db *gorm.DB) *EmailService {
	return &EmailService{db: db}
}

// EmailQuery filters and paginates an email listing
type EmailQuery struct {
	AccountID uint
	Unread    *bool
	Starred   *bool
	Limit     int
	Offset    int
}

// ListEmails returns emails newest first, with the total count for the
// same filter so callers can paginate.
func (s *EmailService) ListEmails(query EmailQuery) ([]models.Email, int64, error) {
	q := s.db.Model(&models.Email{})

	if query.AccountID != 0 {
		q = q.Where("account_id = ?", query.AccountID)
	}
	if query.Unread != nil {
		q = q.Where("is_read = ?", !*query.Unread)
	}
	if query.Starred != nil {
		q = q.Where("is_starred = ?", *query.Starred)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var emails []models.Email
	err := q.Order("received_at DESC").Limit(limit).Offset(query.Offset).Find(&emails).Error
	if err != nil {
		return nil, 0, err
	}

	return emails, total, nil
}

// GetEmailByID retrieves a single email
func (s *EmailService) GetEmailByID(id uint) (*models.Email, error) {
	var email models.Email
	if err := s.db.First(&email, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, err
	}
	return &email, nil
}

// MarkRead sets the read flag on an email
func (s *EmailService) MarkRead(id uint, read bool) (*models.Email, error) {
	email, err := s.GetEmailByID(id)
	if err != nil {
		return nil, err
	}

	email.IsRead = read
	if err := s.db.Model(email).Update("is_read", read).Error; err != nil {
		return nil, err
	}

	return email, nil
}

// ToggleStar flips the starred flag on an email
func (s *EmailService) ToggleStar(id uint) (*models.Email, error) {
	email, err := s.GetEmailByID(id)
	if err != nil {
		return nil, err
	}

	email.IsStarred = !email.IsStarred
	if err := s.db.Model(email).Update("is_starred", email.IsStarred).Error; err != nil {
		return nil, err
	}

	return email, nil
}

// EmailStats summarizes the message store
type EmailStats struct {
	Total        int64      `json:"total"`
	Unread       int64      `json:"unread"`
	Last24Hours  int64      `json:"last_24_hours"`
	MostRecentAt *time.Time `json:"most_recent_at"`
}

// GetStats computes store-wide email statistics
func (s *EmailService) GetStats() (*EmailStats, error) {
	stats := &EmailStats{}

	if err := s.db.Model(&models.Email{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Email{}).Where("is_read = ?", false).Count(&stats.Unread).Error; err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-24 * time.Hour)
	if err := s.db.Model(&models.Email{}).Where("received_at >= ?", cutoff).Count(&stats.Last24Hours).Error; err != nil {
		return nil, err
	}

	var latest models.Email
	err := s.db.Order("received_at DESC").First(&latest).Error
	if err == nil {
		stats.MostRecentAt = &latest.ReceivedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return stats, nil
}
