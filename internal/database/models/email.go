package models

import (
	"time"
)

// Email represents one ingested mail message.
// The (AccountID, MessageID) pair is the dedup key: at most one row per
// provider-native message id within an account.
type Email struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AccountID  uint      `gorm:"not null;uniqueIndex:idx_emails_account_message" json:"account_id"`
	MessageID  string    `gorm:"size:255;not null;uniqueIndex:idx_emails_account_message" json:"message_id"`
	ThreadID   string    `gorm:"size:255" json:"thread_id"`
	Subject    string    `gorm:"size:500" json:"subject"`
	FromAddr   string    `gorm:"size:500" json:"from"`
	ToAddrs    string    `gorm:"type:text" json:"to"`
	ReceivedAt time.Time `gorm:"index" json:"received_at"`
	Body       string    `gorm:"type:text" json:"body"`
	IsRead     bool      `gorm:"default:false" json:"is_read"`
	IsStarred  bool      `gorm:"default:false" json:"is_starred"`
	CreatedAt  time.Time `json:"created_at"`

	// Relations
	AgentRuns []AgentRun `gorm:"foreignKey:EmailID" json:"agent_runs,omitempty"`
}
