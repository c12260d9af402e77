package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/webagent-cloud/mailagent/internal/services"
)

// LogHandler handles activity log requests
type LogHandler struct {
	logService *services.LogService
}

// NewLogHandler creates a new LogHandler instance
func NewLogHandler(logService *services.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

// ListLogs returns activity logs, newest first
// GET /api/logs?module=&level=&action=&page=&limit=
func (h *LogHandler) ListLogs(c *gin.Context) {
	query := services.LogQuery{
		Module: c.Query("module"),
		Level:  c.Query("level"),
		Action: c.Query("action"),
		Page:   parseIntQuery(c, "page"),
		Limit:  parseIntQuery(c, "limit"),
	}

	result, err := h.logService.QueryLogs(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve logs",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
