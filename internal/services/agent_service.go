package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/webagent-cloud/mailagent/internal/database/models"
	"gorm.io/gorm"
)

var (
	// ErrAgentNotFound indicates the agent was not found
	ErrAgentNotFound = errors.New("agent not found")
	// ErrInvalidAgentData indicates invalid agent data
	ErrInvalidAgentData = errors.New("invalid agent data")
)

// AgentService handles agent configuration business logic
type AgentService struct {
	db *gorm.DB
}

// NewAgentService creates a new AgentService instance
func NewAgentService(db *gorm.DB) *AgentService {
	return &AgentService{db: db}
}

// CreateAgentInput represents the input for creating an agent
type CreateAgentInput struct {
	Name               string                  `json:"name"`
	Trigger            string                  `json:"trigger"`
	TriggerType        models.AgentTriggerType `json:"trigger_type"`
	Prompt             string                  `json:"prompt"`
	ResponseFormat     models.ResponseFormat   `json:"response_format"`
	JSONSchema         string                  `json:"json_schema"`
	WebhookURL         string                  `json:"webhook_url"`
	ShouldExtractFiles bool                    `json:"should_extract_files"`
	ExtractFileConfig  string                  `json:"extract_file_config"`
	Model              string                  `json:"model"`
	ModelProvider      string                  `json:"model_provider"`
	IsActive           *bool                   `json:"is_active"`
	EmailAccountIDs    []uint                  `json:"email_account_ids"`
}

// validate checks the input's required fields and JSON payloads
func (in CreateAgentInput) validate() error {
	if in.Name == "" || in.Trigger == "" || in.Prompt == "" {
		return fmt.Errorf("%w: name, trigger and prompt are required", ErrInvalidAgentData)
	}
	if in.TriggerType != "" && !in.TriggerType.IsValid() {
		return fmt.Errorf("%w: unknown trigger type %q", ErrInvalidAgentData, in.TriggerType)
	}
	if in.ResponseFormat == models.ResponseFormatJSONSchema && in.JSONSchema != "" {
		if !json.Valid([]byte(in.JSONSchema)) {
			return fmt.Errorf("%w: json_schema is not valid JSON", ErrInvalidAgentData)
		}
	}
	if in.ExtractFileConfig != "" && !json.Valid([]byte(in.ExtractFileConfig)) {
		return fmt.Errorf("%w: extract_file_config is not valid JSON", ErrInvalidAgentData)
	}
	return nil
}

// CreateAgent creates a new agent and binds it to the given accounts
func (s *AgentService) CreateAgent(input CreateAgentInput) (*models.Agent, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	triggerType := input.TriggerType
	if triggerType == "" {
		triggerType = models.TriggerOnEachEmail
	}
	responseFormat := input.ResponseFormat
	if responseFormat == "" {
		responseFormat = models.ResponseFormatString
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	agent := &models.Agent{
		Name:               input.Name,
		Trigger:            input.Trigger,
		TriggerType:        triggerType,
		Prompt:             input.Prompt,
		ResponseFormat:     responseFormat,
		JSONSchema:         input.JSONSchema,
		WebhookURL:         input.WebhookURL,
		ShouldExtractFiles: input.ShouldExtractFiles,
		ExtractFileConfig:  input.ExtractFileConfig,
		Model:              input.Model,
		ModelProvider:      input.ModelProvider,
		IsActive:           isActive,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(agent).Error; err != nil {
			return err
		}
		return s.bindAccounts(tx, agent, input.EmailAccountIDs)
	})
	if err != nil {
		return nil, err
	}

	return s.GetAgentByID(agent.ID)
}

// bindAccounts replaces the agent's account associations
func (s *AgentService) bindAccounts(tx *gorm.DB, agent *models.Agent, accountIDs []uint) error {
	if accountIDs == nil {
		return nil
	}

	var accounts []models.EmailAccount
	if len(accountIDs) > 0 {
		if err := tx.Find(&accounts, accountIDs).Error; err != nil {
			return err
		}
		if len(accounts) != len(accountIDs) {
			return fmt.Errorf("%w: one or more email accounts do not exist", ErrInvalidAgentData)
		}
	}

	return tx.Model(agent).Association("EmailAccounts").Replace(accounts)
}

// GetAgentByID retrieves an agent with its account bindings
func (s *AgentService) GetAgentByID(id uint) (*models.Agent, error) {
	var agent models.Agent
	if err := s.db.Preload("EmailAccounts").First(&agent, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return &agent, nil
}

// ListAgents retrieves all agents with their account bindings
func (s *AgentService) ListAgents() ([]models.Agent, error) {
	var agents []models.Agent
	if err := s.db.Preload("EmailAccounts").Order("created_at DESC").Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

// UpdateAgentInput represents the updatable agent fields. Nil pointers
// leave the field unchanged.
type UpdateAgentInput struct {
	Name               *string                  `json:"name"`
	Trigger            *string                  `json:"trigger"`
	TriggerType        *models.AgentTriggerType `json:"trigger_type"`
	Prompt             *string                  `json:"prompt"`
	ResponseFormat     *models.ResponseFormat   `json:"response_format"`
	JSONSchema         *string                  `json:"json_schema"`
	WebhookURL         *string                  `json:"webhook_url"`
	ShouldExtractFiles *bool                    `json:"should_extract_files"`
	ExtractFileConfig  *string                  `json:"extract_file_config"`
	Model              *string                  `json:"model"`
	ModelProvider      *string                  `json:"model_provider"`
	IsActive           *bool                    `json:"is_active"`
	EmailAccountIDs    []uint                   `json:"email_account_ids"`
}

// UpdateAgent updates an agent's configuration and bindings
func (s *AgentService) UpdateAgent(id uint, input UpdateAgentInput) (*models.Agent, error) {
	agent, err := s.GetAgentByID(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		agent.Name = *input.Name
	}
	if input.Trigger != nil {
		agent.Trigger = *input.Trigger
	}
	if input.TriggerType != nil {
		if !input.TriggerType.IsValid() {
			return nil, fmt.Errorf("%w: unknown trigger type %q", ErrInvalidAgentData, *input.TriggerType)
		}
		agent.TriggerType = *input.TriggerType
	}
	if input.Prompt != nil {
		agent.Prompt = *input.Prompt
	}
	if input.ResponseFormat != nil {
		agent.ResponseFormat = *input.ResponseFormat
	}
	if input.JSONSchema != nil {
		if *input.JSONSchema != "" && !json.Valid([]byte(*input.JSONSchema)) {
			return nil, fmt.Errorf("%w: json_schema is not valid JSON", ErrInvalidAgentData)
		}
		agent.JSONSchema = *input.JSONSchema
	}
	if input.WebhookURL != nil {
		agent.WebhookURL = *input.WebhookURL
	}
	if input.ShouldExtractFiles != nil {
		agent.ShouldExtractFiles = *input.ShouldExtractFiles
	}
	if input.ExtractFileConfig != nil {
		if *input.ExtractFileConfig != "" && !json.Valid([]byte(*input.ExtractFileConfig)) {
			return nil, fmt.Errorf("%w: extract_file_config is not valid JSON", ErrInvalidAgentData)
		}
		agent.ExtractFileConfig = *input.ExtractFileConfig
	}
	if input.Model != nil {
		agent.Model = *input.Model
	}
	if input.ModelProvider != nil {
		agent.ModelProvider = *input.ModelProvider
	}
	if input.IsActive != nil {
		agent.IsActive = *input.IsActive
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(agent).Error; err != nil {
			return err
		}
		return s.bindAccounts(tx, agent, input.EmailAccountIDs)
	})
	if err != nil {
		return nil, err
	}

	return s.GetAgentByID(agent.ID)
}

// DeleteAgent deletes an agent and its account bindings. Historical
// run records are kept.
func (s *AgentService) DeleteAgent(id uint) error {
	agent, err := s.GetAgentByID(id)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(agent).Association("EmailAccounts").Clear(); err != nil {
			return err
		}
		return tx.Delete(agent).Error
	})
}

// SetAgentActive activates or deactivates an agent
func (s *AgentService) SetAgentActive(id uint, active bool) (*models.Agent, error) {
	agent, err := s.GetAgentByID(id)
	if err != nil {
		return nil, err
	}

	agent.IsActive = active
	if err := s.db.Save(agent).Error; err != nil {
		return nil, err
	}

	return agent, nil
}
