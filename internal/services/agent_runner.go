package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/webagent-cloud/mailagent/internal/database/models"
	"gorm.io/gorm"
)

// TextGenerator is the language-model capability consumed by the
// runner: resolve (provider key, model) and generate text for a prompt.
type TextGenerator interface {
	GenerateText(provider, model, prompt string) (string, error)
}

// AgentRunner dispatches newly ingested emails to the active agents
// bound to their account, recording one run per (agent, email) pair.
type AgentRunner struct {
	db            *gorm.DB
	generator     TextGenerator
	logService    *LogService
	maxConcurrent int
}

// NewAgentRunner creates a new AgentRunner instance
func NewAgentRunner(db *gorm.DB, generator TextGenerator, logService *LogService, maxConcurrent int) *AgentRunner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &AgentRunner{
		db:            db,
		generator:     generator,
		logService:    logService,
		maxConcurrent: maxConcurrent,
	}
}

// TriggerAgentsForEmail runs every active ON_EACH_EMAIL agent bound to
// the email's account. Agents run concurrently, bounded by the
// configured limit; one agent's failure never affects its siblings.
func (r *AgentRunner) TriggerAgentsForEmail(email *models.Email) error {
	var agents []models.Agent
	err := r.db.
		Joins("JOIN agent_email_accounts ON agent_email_accounts.agent_id = agents.id").
		Where("agents.is_active = ? AND agents.trigger_type = ? AND agent_email_accounts.email_account_id = ?",
			true, models.TriggerOnEachEmail, email.AccountID).
		Find(&agents).Error
	if err != nil {
		return err
	}

	if len(agents) == 0 {
		return nil
	}

	log.Printf("[AgentRunner] Found %d agents to trigger for email %q", len(agents), email.Subject)

	sem := make(chan struct{}, r.maxConcurrent)
	var wg sync.WaitGroup
	for i := range agents {
		wg.Add(1)
		sem <- struct{}{}
		go func(agent *models.Agent) {
			defer wg.Done()
			defer func() { <-sem }()

			if _, err := r.RunAgentForEmail(agent, email); err != nil {
				log.Printf("[AgentRunner] Could not record run for agent %d: %v", agent.ID, err)
			}
		}(&agents[i])
	}
	wg.Wait()

	return nil
}

// RunAgentForEmail executes one agent against one email. A run record
// with a snapshot of the agent's configuration is created up front;
// model failures are recorded on the run as FAILED, not returned. The
// returned error only signals that the run record itself could not be
// written.
func (r *AgentRunner) RunAgentForEmail(agent *models.Agent, email *models.Email) (*models.AgentRun, error) {
	run := models.Snapshot(agent, email.ID)
	if err := r.db.Create(run).Error; err != nil {
		return nil, err
	}

	text, err := r.invoke(agent, email)
	if err != nil {
		log.Printf("[AgentRunner] Agent %q failed for email %q: %v", agent.Name, email.Subject, err)
		r.finishRun(run, models.RunStatusFailed, "", err.Error())
		r.logService.LogAgentRunFailed(agent.ID, agent.Name, email.ID, run.ID, err)
		return run, nil
	}

	log.Printf("[AgentRunner] Agent %q completed successfully for email %q", agent.Name, email.Subject)
	r.finishRun(run, models.RunStatusSuccess, text, "")
	r.logService.LogAgentRunCompleted(agent.ID, agent.Name, email.ID, run.ID, email.Subject)

	return run, nil
}

// invoke resolves the model capability and generates text. An
// unrecognized provider key is a configuration error for this run only.
func (r *AgentRunner) invoke(agent *models.Agent, email *models.Email) (string, error) {
	if agent.ModelProvider == "" || agent.Model == "" {
		return "", fmt.Errorf("agent %d has no model configured", agent.ID)
	}

	prompt := BuildPromptWithEmail(agent.Prompt, email)
	return r.generator.GenerateText(agent.ModelProvider, agent.Model, prompt)
}

// finishRun writes the terminal state of a run
func (r *AgentRunner) finishRun(run *models.AgentRun, status models.AgentRunStatus, results, errMsg string) {
	updates := map[string]interface{}{
		"status":  status,
		"results": results,
		"error":   errMsg,
	}
	if err := r.db.Model(run).Updates(updates).Error; err != nil {
		log.Printf("[AgentRunner] Failed to update run %d: %v", run.ID, err)
	}
}

// BuildPromptWithEmail renders the agent's prompt template followed by
// a fixed-format block of the email's headers and body.
func BuildPromptWithEmail(promptTemplate string, email *models.Email) string {
	emailContent := fmt.Sprintf("--- EMAIL ---\nFrom: %s\nTo: %s\nSubject: %s\nDate: %s\n\nBody:\n%s\n--- END EMAIL ---\n",
		email.FromAddr,
		email.ToAddrs,
		email.Subject,
		email.ReceivedAt.UTC().Format(time.RFC3339),
		email.Body,
	)

	return promptTemplate + "\n\n" + emailContent
}
