package services

import (
	"strings"
	"testing"
	"time"

	"github.com/webagent-cloud/mailagent/internal/database/models"
	"gorm.io/gorm"
)

func createRunnerTestEmail(t *testing.T, db *gorm.DB, accountID uint) *models.Email {
	received, err := time.Parse(time.RFC3339, "2024-05-01T10:30:00Z")
	if err != nil {
		t.Fatalf("failed to parse time: %v", err)
	}
	email := &models.Email{
		AccountID:  accountID,
		MessageID:  "msg-1",
		Subject:    "Invoice overdue",
		FromAddr:   "Billing <billing@example.com>",
		ToAddrs:    "user@example.com",
		ReceivedAt: received,
		Body:       "Please pay invoice #42.",
	}
	if err := db.Create(email).Error; err != nil {
		t.Fatalf("failed to create email: %v", err)
	}
	return email
}

func createRunnerTestAgent(t *testing.T, db *gorm.DB, name, model string) *models.Agent {
	agent := &models.Agent{
		Name:          name,
		Trigger:       "new email",
		TriggerType:   models.TriggerOnEachEmail,
		Prompt:        "Summarize:",
		Model:         model,
		ModelProvider: "openai",
		IsActive:      true,
	}
	if err := db.Create(agent).Error; err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}
	return agent
}

func TestBuildPromptWithEmail_Format(t *testing.T) {
	received, _ := time.Parse(time.RFC3339, "2024-05-01T10:30:00Z")
	email := &models.Email{
		Subject:    "Invoice overdue",
		FromAddr:   "Billing <billing@example.com>",
		ToAddrs:    "user@example.com",
		ReceivedAt: received,
		Body:       "Please pay invoice #42.",
	}

	got := BuildPromptWithEmail("Summarize:", email)

	want := "Summarize:\n\n" +
		"--- EMAIL ---\n" +
		"From: Billing <billing@example.com>\n" +
		"To: user@example.com\n" +
		"Subject: Invoice overdue\n" +
		"Date: 2024-05-01T10:30:00Z\n" +
		"\n" +
		"Body:\n" +
		"Please pay invoice #42.\n" +
		"--- END EMAIL ---\n"

	if got != want {
		t.Errorf("prompt mismatch:\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestRunAgentForEmail_RecordsSuccess(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logService := NewLogService(db)
	generator := &fakeGenerator{result: "summary text"}
	runner := NewAgentRunner(db, generator, logService, 2)

	account := createSyncTestAccount(t, db, models.ProviderGmail)
	email := createRunnerTestEmail(t, db, account.ID)
	agent := createRunnerTestAgent(t, db, "Summarizer", "gpt-4o")

	run, err := runner.RunAgentForEmail(agent, email)
	if err != nil {
		t.Fatalf("RunAgentForEmail failed: %v", err)
	}

	var stored models.AgentRun
	if err := db.First(&stored, run.ID).Error; err != nil {
		t.Fatalf("failed to load run: %v", err)
	}

	if stored.Status != models.RunStatusSuccess {
		t.Errorf("expected SUCCESS, got %s", stored.Status)
	}
	if stored.Results != "summary text" {
		t.Errorf("expected results stored, got %q", stored.Results)
	}
	if stored.Error != "" {
		t.Errorf("expected no error, got %q", stored.Error)
	}
	if stored.AgentID != agent.ID || stored.EmailID != email.ID {
		t.Error("run must reference its agent and email")
	}
	if stored.Prompt != agent.Prompt || stored.Model != agent.Model || stored.ModelProvider != agent.ModelProvider {
		t.Error("run must snapshot the agent configuration")
	}

	if len(generator.prompts) != 1 || !strings.HasPrefix(generator.prompts[0], "Summarize:\n\n--- EMAIL ---\n") {
		t.Errorf("unexpected prompt sent to generator: %q", generator.prompts)
	}
}

func TestRunAgentForEmail_RecordsFailure(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logService := NewLogService(db)
	generator := &fakeGenerator{failFor: "gpt-4o"}
	runner := NewAgentRunner(db, generator, logService, 2)

	account := createSyncTestAccount(t, db, models.ProviderGmail)
	email := createRunnerTestEmail(t, db, account.ID)
	agent := createRunnerTestAgent(t, db, "Summarizer", "gpt-4o")

	run, err := runner.RunAgentForEmail(agent, email)
	if err != nil {
		t.Fatalf("model failure must not surface as an error: %v", err)
	}

	var stored models.AgentRun
	db.First(&stored, run.ID)
	if stored.Status != models.RunStatusFailed {
		t.Errorf("expected FAILED, got %s", stored.Status)
	}
	if stored.Error == "" {
		t.Error("expected failure message on the run record")
	}
	if stored.Results != "" {
		t.Errorf("failed run must have no results, got %q", stored.Results)
	}
}

func TestRunAgentForEmail_MissingModelIsRunFailure(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logService := NewLogService(db)
	generator := &fakeGenerator{}
	runner := NewAgentRunner(db, generator, logService, 2)

	account := createSyncTestAccount(t, db, models.ProviderGmail)
	email := createRunnerTestEmail(t, db, account.ID)
	agent := createRunnerTestAgent(t, db, "Unconfigured", "")

	run, err := runner.RunAgentForEmail(agent, email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stored models.AgentRun
	db.First(&stored, run.ID)
	if stored.Status != models.RunStatusFailed {
		t.Errorf("expected FAILED for missing model config, got %s", stored.Status)
	}
	if generator.calls != 0 {
		t.Errorf("generator must not be called without model config, got %d calls", generator.calls)
	}
}

func TestRunAgentForEmail_SnapshotSurvivesAgentEdits(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logService := NewLogService(db)
	generator := &fakeGenerator{result: "ok"}
	runner := NewAgentRunner(db, generator, logService, 2)

	account := createSyncTestAccount(t, db, models.ProviderGmail)
	email := createRunnerTestEmail(t, db, account.ID)
	agent := createRunnerTestAgent(t, db, "Summarizer", "gpt-4o")

	run, err := runner.RunAgentForEmail(agent, email)
	if err != nil {
		t.Fatalf("RunAgentForEmail failed: %v", err)
	}

	// Edit the agent after the run completed.
	db.Model(agent).Updates(map[string]interface{}{
		"name":   "Renamed",
		"prompt": "Do something else:",
		"model":  "gpt-5",
	})

	var stored models.AgentRun
	db.First(&stored, run.ID)
	if stored.Name != "Summarizer" || stored.Prompt != "Summarize:" || stored.Model != "gpt-4o" {
		t.Error("historical run must keep the configuration it ran with")
	}
}

func TestTriggerAgentsForEmail_IsolatesFailures(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logService := NewLogService(db)
	generator := &fakeGenerator{failFor: "bad-model"}
	runner := NewAgentRunner(db, generator, logService, 2)

	account := createSyncTestAccount(t, db, models.ProviderGmail)
	email := createRunnerTestEmail(t, db, account.ID)

	good := createRunnerTestAgent(t, db, "Good", "gpt-4o")
	bad := createRunnerTestAgent(t, db, "Bad", "bad-model")
	for _, agent := range []*models.Agent{good, bad} {
		if err := db.Model(agent).Association("EmailAccounts").Append(account); err != nil {
			t.Fatalf("failed to bind agent: %v", err)
		}
	}

	if err := runner.TriggerAgentsForEmail(email); err != nil {
		t.Fatalf("TriggerAgentsForEmail failed: %v", err)
	}

	var runs []models.AgentRun
	db.Order("agent_id").Find(&runs)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	byAgent := map[uint]models.AgentRunStatus{}
	for _, run := range runs {
		byAgent[run.AgentID] = run.Status
	}
	if byAgent[good.ID] != models.RunStatusSuccess {
		t.Errorf("good agent should succeed, got %s", byAgent[good.ID])
	}
	if byAgent[bad.ID] != models.RunStatusFailed {
		t.Errorf("bad agent should fail, got %s", byAgent[bad.ID])
	}
}

func TestTriggerAgentsForEmail_FiltersAgents(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logService := NewLogService(db)
	generator := &fakeGenerator{}
	runner := NewAgentRunner(db, generator, logService, 2)

	account := createSyncTestAccount(t, db, models.ProviderGmail)
	email := createRunnerTestEmail(t, db, account.ID)

	// Bound and active: should run.
	active := createRunnerTestAgent(t, db, "Active", "gpt-4o")
	db.Model(active).Association("EmailAccounts").Append(account)

	// Bound but inactive: must not run.
	inactive := createRunnerTestAgent(t, db, "Inactive", "gpt-4o")
	db.Model(inactive).Update("is_active", false)
	db.Model(inactive).Association("EmailAccounts").Append(account)

	// Bound but manual trigger: must not run.
	manual := createRunnerTestAgent(t, db, "Manual", "gpt-4o")
	db.Model(manual).Update("trigger_type", models.TriggerManually)
	db.Model(manual).Association("EmailAccounts").Append(account)

	// Active but bound to nothing: must not run.
	createRunnerTestAgent(t, db, "Unbound", "gpt-4o")

	if err := runner.TriggerAgentsForEmail(email); err != nil {
		t.Fatalf("TriggerAgentsForEmail failed: %v", err)
	}

	var runs []models.AgentRun
	db.Find(&runs)
	if len(runs) != 1 {
		t.Fatalf("expected exactly 1 run, got %d", len(runs))
	}
	if runs[0].AgentID != active.ID {
		t.Errorf("expected run for the active bound agent, got agent %d", runs[0].AgentID)
	}
}
