package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/webagent-cloud/mailagent/internal/database/models"
	"github.com/webagent-cloud/mailagent/internal/services"
)

// AgentHandler handles agent configuration requests
type AgentHandler struct {
	agentService *services.AgentService
	emailService *services.EmailService
	agentRunner  *services.AgentRunner
}

// NewAgentHandler creates a new AgentHandler instance
func NewAgentHandler(agentService *services.AgentService, emailService *services.EmailService,
	agentRunner *services.AgentRunner) *AgentHandler {
	return &AgentHandler{
		agentService: agentService,
		emailService: emailService,
		agentRunner:  agentRunner,
	}
}

// AgentResponse represents the response for an agent
type AgentResponse struct {
	ID                 uint     `json:"id"`
	Name               string   `json:"name"`
	Trigger            string   `json:"trigger"`
	TriggerType        string   `json:"trigger_type"`
	Prompt             string   `json:"prompt"`
	ResponseFormat     string   `json:"response_format"`
	JSONSchema         string   `json:"json_schema,omitempty"`
	WebhookURL         string   `json:"webhook_url,omitempty"`
	ShouldExtractFiles bool     `json:"should_extract_files"`
	Model              string   `json:"model"`
	ModelProvider      string   `json:"model_provider"`
	IsActive           bool     `json:"is_active"`
	EmailAccountIDs    []uint   `json:"email_account_ids"`
	EmailAccounts      []string `json:"email_accounts"`
	CreatedAt          int64    `json:"created_at"`
}

// toAgentResponse converts an Agent model to AgentResponse
func toAgentResponse(agent *models.Agent) AgentResponse {
	accountIDs := make([]uint, 0, len(agent.EmailAccounts))
	accountEmails := make([]string, 0, len(agent.EmailAccounts))
	for i := range agent.EmailAccounts {
		accountIDs = append(accountIDs, agent.EmailAccounts[i].ID)
		accountEmails = append(accountEmails, agent.EmailAccounts[i].EmailAddress)
	}

	return AgentResponse{
		ID:                 agent.ID,
		Name:               agent.Name,
		Trigger:            agent.Trigger,
		TriggerType:        string(agent.TriggerType),
		Prompt:             agent.Prompt,
		ResponseFormat:     string(agent.ResponseFormat),
		JSONSchema:         agent.JSONSchema,
		WebhookURL:         agent.WebhookURL,
		ShouldExtractFiles: agent.ShouldExtractFiles,
		Model:              agent.Model,
		ModelProvider:      agent.ModelProvider,
		IsActive:           agent.IsActive,
		EmailAccountIDs:    accountIDs,
		EmailAccounts:      accountEmails,
		CreatedAt:          agent.CreatedAt.Unix(),
	}
}

// handleAgentError writes the error envelope for agent service failures
func handleAgentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAgentNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Agent not found",
			},
		})
	case errors.Is(err, services.ErrInvalidAgentData):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Agent operation failed",
			},
		})
	}
}

// ListAgents returns all configured agents
// GET /api/agents
func (h *AgentHandler) ListAgents(c *gin.Context) {
	agents, err := h.agentService.ListAgents()
	if err != nil {
		handleAgentError(c, err)
		return
	}

	response := make([]AgentResponse, 0, len(agents))
	for i := range agents {
		response = append(response, toAgentResponse(&agents[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
	})
}

// GetAgent returns a single agent
// GET /api/agents/:id
func (h *AgentHandler) GetAgent(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	agent, err := h.agentService.GetAgentByID(id)
	if err != nil {
		handleAgentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toAgentResponse(agent),
	})
}

// CreateAgent creates a new agent
// POST /api/agents
func (h *AgentHandler) CreateAgent(c *gin.Context) {
	var input services.CreateAgentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid request body",
			},
		})
		return
	}

	agent, err := h.agentService.CreateAgent(input)
	if err != nil {
		handleAgentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    toAgentResponse(agent),
	})
}

// UpdateAgent updates an agent's configuration
// PUT /api/agents/:id
func (h *AgentHandler) UpdateAgent(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var input services.UpdateAgentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid request body",
			},
		})
		return
	}

	agent, err := h.agentService.UpdateAgent(id, input)
	if err != nil {
		handleAgentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toAgentResponse(agent),
	})
}

// DeleteAgent deletes an agent. Run history is preserved.
// DELETE /api/agents/:id
func (h *AgentHandler) DeleteAgent(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.agentService.DeleteAgent(id); err != nil {
		handleAgentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Agent deleted",
	})
}

// EnableAgent activates an agent
// PUT /api/agents/:id/enable
func (h *AgentHandler) EnableAgent(c *gin.Context) {
	h.setActive(c, true)
}

// DisableAgent deactivates an agent
// PUT /api/agents/:id/disable
func (h *AgentHandler) DisableAgent(c *gin.Context) {
	h.setActive(c, false)
}

func (h *AgentHandler) setActive(c *gin.Context, active bool) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	agent, err := h.agentService.SetAgentActive(id, active)
	if err != nil {
		handleAgentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toAgentResponse(agent),
	})
}

// RunAgentRequest selects the email for a manual agent run
type RunAgentRequest struct {
	EmailID uint `json:"email_id" binding:"required"`
}

// RunAgent executes an agent against one email on demand, regardless
// of the agent's trigger type or account bindings.
// POST /api/agents/:id/run
func (h *AgentHandler) RunAgent(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req RunAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "email_id is required",
			},
		})
		return
	}

	agent, err := h.agentService.GetAgentByID(id)
	if err != nil {
		handleAgentError(c, err)
		return
	}

	email, err := h.emailService.GetEmailByID(req.EmailID)
	if err != nil {
		if errors.Is(err, services.ErrEmailNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Email not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve email",
			},
		})
		return
	}

	run, err := h.agentRunner.RunAgentForEmail(agent, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to record agent run",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toRunResponse(run),
	})
}

// parseUintQuery parses an optional unsigned query parameter
func parseUintQuery(c *gin.Context, name string) uint {
	value, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(value)
}

// parseIntQuery parses an optional integer query parameter
func parseIntQuery(c *gin.Context, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return value
}
