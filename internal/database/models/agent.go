package models

import (
	"time"
)

// AgentTriggerType determines when an agent runs
type AgentTriggerType string

const (
	TriggerOnEachEmail AgentTriggerType = "ON_EACH_EMAIL"
	TriggerManually    AgentTriggerType = "TRIGGER_MANUALLY"
)

// IsValid checks if the trigger type is a known one
func (t AgentTriggerType) IsValid() bool {
	switch t {
	case TriggerOnEachEmail, TriggerManually:
		return true
	}
	return false
}

// ResponseFormat determines the expected shape of an agent's model output
type ResponseFormat string

const (
	ResponseFormatString     ResponseFormat = "STRING"
	ResponseFormatJSON       ResponseFormat = "JSON"
	ResponseFormatJSONSchema ResponseFormat = "JSON_SCHEMA"
)

// Agent is a configured automation rule run against incoming mail
type Agent struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	Name               string           `gorm:"size:255;not null" json:"name"`
	Trigger            string           `gorm:"type:text" json:"trigger"`
	TriggerType        AgentTriggerType `gorm:"size:30;index;default:'ON_EACH_EMAIL'" json:"trigger_type"`
	Prompt             string           `gorm:"type:text;not null" json:"prompt"`
	ResponseFormat     ResponseFormat   `gorm:"size:20;default:'STRING'" json:"response_format"`
	JSONSchema         string           `gorm:"type:text" json:"json_schema,omitempty"`
	WebhookURL         string           `gorm:"size:500" json:"webhook_url,omitempty"`
	ShouldExtractFiles bool             `gorm:"default:false" json:"should_extract_files"`
	ExtractFileConfig  string           `gorm:"type:text" json:"extract_file_config,omitempty"` // opaque JSON
	Model              string           `gorm:"size:100" json:"model"`
	ModelProvider      string           `gorm:"size:50" json:"model_provider"`
	IsActive           bool             `gorm:"default:true" json:"is_active"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`

	// Relations
	EmailAccounts []EmailAccount `gorm:"many2many:agent_email_accounts" json:"email_accounts,omitempty"`
}
