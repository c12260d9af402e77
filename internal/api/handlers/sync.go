package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/webagent-cloud/mailagent/internal/services"
)

// SyncHandler handles manual sync trigger requests
type SyncHandler struct {
	syncService    *services.SyncService
	syncScheduler  *services.SyncScheduler
	accountService *services.AccountService
}

// NewSyncHandler creates a new SyncHandler instance
func NewSyncHandler(syncService *services.SyncService, syncScheduler *services.SyncScheduler,
	accountService *services.AccountService) *SyncHandler {
	return &SyncHandler{
		syncService:    syncService,
		syncScheduler:  syncScheduler,
		accountService: accountService,
	}
}

// SyncAccount triggers a sync cycle for one account in the background.
// The account lock shared with the scheduler prevents concurrent cycles
// for the same account.
// POST /api/accounts/:id/sync
func (h *SyncHandler) SyncAccount(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	account, err := h.accountService.GetAccountByID(id)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Account not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve account",
			},
		})
		return
	}

	if !h.syncScheduler.TryLockAccount(account.ID) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SYNC_IN_PROGRESS",
				"message": "Account is already syncing",
			},
		})
		return
	}

	go func() {
		defer h.syncScheduler.UnlockAccount(account.ID)
		if _, err := h.syncService.SyncAccount(account.ID); err != nil {
			log.Printf("[API] Manual sync failed for account %d: %v", account.ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Sync started",
	})
}

// SyncAll triggers a sync sweep over all active accounts in the
// background.
// POST /api/sync
func (h *SyncHandler) SyncAll(c *gin.Context) {
	accounts, err := h.accountService.ListActiveAccounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to list accounts",
			},
		})
		return
	}

	go func() {
		for _, account := range accounts {
			if !h.syncScheduler.TryLockAccount(account.ID) {
				continue
			}
			if _, err := h.syncService.SyncAccount(account.ID); err != nil {
				log.Printf("[API] Manual sync failed for account %d: %v", account.ID, err)
			}
			h.syncScheduler.UnlockAccount(account.ID)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Sync started",
		"data": gin.H{
			"accounts": len(accounts),
		},
	})
}
