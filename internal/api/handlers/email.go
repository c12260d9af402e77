package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/webagent-cloud/mailagent/internal/database/models"
	"github.com/webagent-cloud/mailagent/internal/services"
)

// EmailHandler handles email query requests
type EmailHandler struct {
	emailService *services.EmailService
}

// NewEmailHandler creates a new EmailHandler instance
func NewEmailHandler(emailService *services.EmailService) *EmailHandler {
	return &EmailHandler{emailService: emailService}
}

// EmailResponse represents the response for an email
type EmailResponse struct {
	ID         uint   `json:"id"`
	AccountID  uint   `json:"account_id"`
	MessageID  string `json:"message_id"`
	ThreadID   string `json:"thread_id,omitempty"`
	Subject    string `json:"subject"`
	From       string `json:"from"`
	To         string `json:"to"`
	ReceivedAt string `json:"received_at"`
	Body       string `json:"body,omitempty"`
	IsRead     bool   `json:"is_read"`
	IsStarred  bool   `json:"is_starred"`
}

// toEmailResponse converts an Email model to EmailResponse. The body is
// omitted from listings to keep responses small.
func toEmailResponse(email *models.Email, includeBody bool) EmailResponse {
	response := EmailResponse{
		ID:         email.ID,
		AccountID:  email.AccountID,
		MessageID:  email.MessageID,
		ThreadID:   email.ThreadID,
		Subject:    email.Subject,
		From:       email.FromAddr,
		To:         email.ToAddrs,
		ReceivedAt: email.ReceivedAt.UTC().Format(time.RFC3339),
		IsRead:     email.IsRead,
		IsStarred:  email.IsStarred,
	}
	if includeBody {
		response.Body = email.Body
	}
	return response
}

// ListEmails returns ingested emails, newest first
// GET /api/emails?account_id=&unread=&starred=&limit=&offset=
func (h *EmailHandler) ListEmails(c *gin.Context) {
	query := services.EmailQuery{
		AccountID: parseUintQuery(c, "account_id"),
		Limit:     parseIntQuery(c, "limit"),
		Offset:    parseIntQuery(c, "offset"),
	}
	if v := c.Query("unread"); v != "" {
		unread := v == "true" || v == "1"
		query.Unread = &unread
	}
	if v := c.Query("starred"); v != "" {
		starred := v == "true" || v == "1"
		query.Starred = &starred
	}

	emails, total, err := h.emailService.ListEmails(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve emails",
			},
		})
		return
	}

	response := make([]EmailResponse, 0, len(emails))
	for i := range emails {
		response = append(response, toEmailResponse(&emails[i], false))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"emails": response,
			"total":  total,
		},
	})
}

// GetEmail returns a single email including its body
// GET /api/emails/:id
func (h *EmailHandler) GetEmail(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	email, err := h.emailService.GetEmailByID(id)
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

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toEmailResponse(email, true),
	})
}

// MarkAsRead sets or clears the read flag
// PUT /api/emails/:id/read
func (h *EmailHandler) MarkAsRead(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	read := true
	if v := c.Query("read"); v == "false" || v == "0" {
		read = false
	}

	email, err := h.emailService.MarkRead(id, read)
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
				"message": "Failed to update email",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toEmailResponse(email, false),
	})
}

// ToggleStar flips the starred flag
// PUT /api/emails/:id/star
func (h *EmailHandler) ToggleStar(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	email, err := h.emailService.ToggleStar(id)
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
				"message": "Failed to update email",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toEmailResponse(email, false),
	})
}

// GetStats returns store-wide email statistics
// GET /api/emails/stats
func (h *EmailHandler) GetStats(c *gin.Context) {
	stats, err := h.emailService.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to compute stats",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}
