package models

import (
	"time"
)

// AgentRunStatus is the state of one agent execution
type AgentRunStatus string

const (
	RunStatusRunning AgentRunStatus = "RUNNING"
	RunStatusSuccess AgentRunStatus = "SUCCESS"
	RunStatusFailed  AgentRunStatus = "FAILED"
)

// AgentRun records the outcome of running one agent against one email.
// Agent configuration is snapshotted at run time so later edits to the
// agent never change historical records.
type AgentRun struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	AgentID uint `gorm:"index;not null" json:"agent_id"`
	EmailID uint `gorm:"index;not null" json:"email_id"`

	// Snapshot of the agent at dispatch time
	Name               string           `gorm:"size:255" json:"name"`
	Trigger            string           `gorm:"type:text" json:"trigger"`
	TriggerType        AgentTriggerType `gorm:"size:30" json:"trigger_type"`
	Prompt             string           `gorm:"type:text" json:"prompt"`
	ResponseFormat     ResponseFormat   `gorm:"size:20" json:"response_format"`
	JSONSchema         string           `gorm:"type:text" json:"json_schema,omitempty"`
	WebhookURL         string           `gorm:"size:500" json:"webhook_url,omitempty"`
	ShouldExtractFiles bool             `json:"should_extract_files"`
	ExtractFileConfig  string           `gorm:"type:text" json:"extract_file_config,omitempty"`
	Model              string           `gorm:"size:100" json:"model"`
	ModelProvider      string           `gorm:"size:50" json:"model_provider"`

	Status    AgentRunStatus `gorm:"size:20;index;default:'RUNNING'" json:"status"`
	Results   string         `gorm:"type:text" json:"results,omitempty"`
	Error     string         `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Snapshot copies the agent's current configuration into a new run record
func Snapshot(agent *Agent, emailID uint) *AgentRun {
	return &AgentRun{
		AgentID:            agent.ID,
		EmailID:            emailID,
		Name:               agent.Name,
		Trigger:            agent.Trigger,
		TriggerType:        agent.TriggerType,
		Prompt:             agent.Prompt,
		ResponseFormat:     agent.ResponseFormat,
		JSONSchema:         agent.JSONSchema,
		WebhookURL:         agent.WebhookURL,
		ShouldExtractFiles: agent.ShouldExtractFiles,
		ExtractFileConfig:  agent.ExtractFileConfig,
		Model:              agent.Model,
		ModelProvider:      agent.ModelProvider,
		Status:             RunStatusRunning,
	}
}
