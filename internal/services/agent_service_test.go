package services

import (
	"errors"
	"testing"

	"github.com/webagent-cloud/mailagent/internal/database/models"
)

func TestCreateAgent_DefaultsAndBindings(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	service := NewAgentService(db)
	account := createSyncTestAccount(t, db, models.ProviderGmail)

	agent, err := service.CreateAgent(CreateAgentInput{
		Name:            "Summarizer",
		Trigger:         "new email",
		Prompt:          "Summarize:",
		Model:           "gpt-4o",
		ModelProvider:   "openai",
		EmailAccountIDs: []uint{account.ID},
	})
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}

	if agent.TriggerType != models.TriggerOnEachEmail {
		t.Errorf("expected default trigger type, got %s", agent.TriggerType)
	}
	if agent.ResponseFormat != models.ResponseFormatString {
		t.Errorf("expected default response format, got %s", agent.ResponseFormat)
	}
	if !agent.IsActive {
		t.Error("expected agent active by default")
	}
	if len(agent.EmailAccounts) != 1 || agent.EmailAccounts[0].ID != account.ID {
		t.Errorf("expected account binding, got %+v", agent.EmailAccounts)
	}
}

func TestCreateAgent_RejectsInvalidInput(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	service := NewAgentService(db)

	cases := []struct {
		name  string
		input CreateAgentInput
	}{
		{"missing prompt", CreateAgentInput{Name: "a", Trigger: "t"}},
		{"unknown trigger type", CreateAgentInput{Name: "a", Trigger: "t", Prompt: "p", TriggerType: "SOMETIMES"}},
		{"invalid json schema", CreateAgentInput{
			Name: "a", Trigger: "t", Prompt: "p",
			ResponseFormat: models.ResponseFormatJSONSchema,
			JSONSchema:     "{not json",
		}},
		{"unknown account binding", CreateAgentInput{
			Name: "a", Trigger: "t", Prompt: "p",
			EmailAccountIDs: []uint{999},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.CreateAgent(tc.input); !errors.Is(err, ErrInvalidAgentData) {
				t.Errorf("expected ErrInvalidAgentData, got %v", err)
			}
		})
	}
}

func TestUpdateAgent_ReplacesBindings(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	service := NewAgentService(db)
	logService := NewLogService(db)
	accountService := NewAccountService(db, logService)

	first := createSyncTestAccount(t, db, models.ProviderGmail)
	second, err := accountService.UpsertFromOAuth(models.ProviderOutlook,
		&UserInfo{Email: "other@example.com"}, &TokenSet{AccessToken: "a", RefreshToken: "r"})
	if err != nil {
		t.Fatalf("failed to create second account: %v", err)
	}

	agent, err := service.CreateAgent(CreateAgentInput{
		Name: "Router", Trigger: "t", Prompt: "p",
		EmailAccountIDs: []uint{first.ID},
	})
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}

	updated, err := service.UpdateAgent(agent.ID, UpdateAgentInput{
		EmailAccountIDs: []uint{second.ID},
	})
	if err != nil {
		t.Fatalf("UpdateAgent failed: %v", err)
	}

	if len(updated.EmailAccounts) != 1 || updated.EmailAccounts[0].ID != second.ID {
		t.Errorf("expected binding replaced, got %+v", updated.EmailAccounts)
	}
}

func TestDeleteAgent_KeepsRunHistory(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	service := NewAgentService(db)
	account := createSyncTestAccount(t, db, models.ProviderGmail)
	email := createRunnerTestEmail(t, db, account.ID)

	agent, err := service.CreateAgent(CreateAgentInput{
		Name: "Summarizer", Trigger: "t", Prompt: "p",
		Model: "gpt-4o", ModelProvider: "openai",
		EmailAccountIDs: []uint{account.ID},
	})
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}

	logService := NewLogService(db)
	runner := NewAgentRunner(db, &fakeGenerator{result: "ok"}, logService, 1)
	if _, err := runner.RunAgentForEmail(agent, email); err != nil {
		t.Fatalf("RunAgentForEmail failed: %v", err)
	}

	if err := service.DeleteAgent(agent.ID); err != nil {
		t.Fatalf("DeleteAgent failed: %v", err)
	}

	if _, err := service.GetAgentByID(agent.ID); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("expected agent gone, got %v", err)
	}

	var runs int64
	db.Model(&models.AgentRun{}).Count(&runs)
	if runs != 1 {
		t.Errorf("run history must survive agent deletion, got %d runs", runs)
	}
}
