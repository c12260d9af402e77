package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/webagent-cloud/mailagent/internal/database/models"
	"github.com/webagent-cloud/mailagent/internal/services"
)

// RunHandler handles agent run history requests
type RunHandler struct {
	runService *services.RunService
}

// NewRunHandler creates a new RunHandler instance
func NewRunHandler(runService *services.RunService) *RunHandler {
	return &RunHandler{runService: runService}
}

// RunResponse represents the response for an agent run
type RunResponse struct {
	ID            uint   `json:"id"`
	AgentID       uint   `json:"agent_id"`
	EmailID       uint   `json:"email_id"`
	AgentName     string `json:"agent_name"`
	Model         string `json:"model"`
	ModelProvider string `json:"model_provider"`
	Status        string `json:"status"`
	Results       string `json:"results,omitempty"`
	Error         string `json:"error,omitempty"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// toRunResponse converts an AgentRun model to RunResponse
func toRunResponse(run *models.AgentRun) RunResponse {
	return RunResponse{
		ID:            run.ID,
		AgentID:       run.AgentID,
		EmailID:       run.EmailID,
		AgentName:     run.Name,
		Model:         run.Model,
		ModelProvider: run.ModelProvider,
		Status:        string(run.Status),
		Results:       run.Results,
		Error:         run.Error,
		CreatedAt:     run.CreatedAt.Unix(),
		UpdatedAt:     run.UpdatedAt.Unix(),
	}
}

// ListRuns returns run history, newest first
// GET /api/runs?agent_id=&email_id=&status=&limit=&offset=
func (h *RunHandler) ListRuns(c *gin.Context) {
	query := services.RunQuery{
		AgentID: parseUintQuery(c, "agent_id"),
		EmailID: parseUintQuery(c, "email_id"),
		Status:  models.AgentRunStatus(c.Query("status")),
		Limit:   parseIntQuery(c, "limit"),
		Offset:  parseIntQuery(c, "offset"),
	}

	runs, total, err := h.runService.ListRuns(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve runs",
			},
		})
		return
	}

	response := make([]RunResponse, 0, len(runs))
	for i := range runs {
		response = append(response, toRunResponse(&runs[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"runs":  response,
			"total": total,
		},
	})
}

// GetRun returns a single run record
// GET /api/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	run, err := h.runService.GetRunByID(id)
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Run not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve run",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toRunResponse(run),
	})
}
