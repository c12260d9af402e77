package models

import (
	"time"
)

// EmailProvider identifies the remote mailbox provider of an account
type EmailProvider string

const (
	ProviderGmail   EmailProvider = "GMAIL"
	ProviderOutlook EmailProvider = "OUTLOOK"
)

// IsValid checks if the provider is a known one
func (p EmailProvider) IsValid() bool {
	switch p {
	case ProviderGmail, ProviderOutlook:
		return true
	}
	return false
}

// EmailAccount represents a connected mailbox
type EmailAccount struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	Provider     EmailProvider `gorm:"size:20;not null;uniqueIndex:idx_accounts_email_provider" json:"provider"`
	EmailAddress string        `gorm:"size:255;not null;uniqueIndex:idx_accounts_email_provider" json:"email_address"`
	DisplayName  string        `gorm:"size:100" json:"display_name"`
	AccessToken  string        `gorm:"type:text" json:"-"`
	RefreshToken string        `gorm:"type:text" json:"-"`
	TokenExpiry  *time.Time    `json:"token_expiry,omitempty"`
	IsActive     bool          `gorm:"default:true" json:"is_active"`
	LastSyncAt   *time.Time    `json:"last_sync_at,omitempty"`
	SyncInterval int           `gorm:"default:60" json:"sync_interval"` // seconds
	AuthError    string        `gorm:"type:text" json:"auth_error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	// Relations
	Emails []Email `gorm:"foreignKey:AccountID" json:"emails,omitempty"`
	Agents []Agent `gorm:"many2many:agent_email_accounts" json:"agents,omitempty"`
}
