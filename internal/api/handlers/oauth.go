package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/webagent-cloud/mailagent/internal/database/models"
	"github.com/webagent-cloud/mailagent/internal/services"
)

// stateTTL bounds how long an issued OAuth state token stays valid
const stateTTL = 10 * time.Minute

// OAuthHandler handles the OAuth connect flow for mail providers
type OAuthHandler struct {
	accountService *services.AccountService
	providers      *services.ProviderRegistry
	stateStore     *StateStore
}

// StateStore stores OAuth state tokens temporarily
type StateStore struct {
	mu     sync.RWMutex
	states map[string]*OAuthState
}

// OAuthState represents one in-flight OAuth flow
type OAuthState struct {
	Provider    models.EmailProvider
	DisplayName string
	CreatedAt   time.Time
}

// NewOAuthHandler creates a new OAuthHandler
func NewOAuthHandler(accountService *services.AccountService, providers *services.ProviderRegistry) *OAuthHandler {
	return &OAuthHandler{
		accountService: accountService,
		providers:      providers,
		stateStore: &StateStore{
			states: make(map[string]*OAuthState),
		},
	}
}

// generateState generates a random state token
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// parseProviderParam parses and validates the :provider path parameter
func parseProviderParam(c *gin.Context) (models.EmailProvider, bool) {
	provider := models.EmailProvider(c.Param("provider"))
	switch c.Param("provider") {
	case "gmail", "google":
		provider = models.ProviderGmail
	case "outlook", "microsoft":
		provider = models.ProviderOutlook
	}
	if !provider.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_PROVIDER",
				"message": "Unknown mail provider",
			},
		})
		return "", false
	}
	return provider, true
}

// GetAuthURL returns the provider's OAuth authorization URL
// GET /api/oauth/:provider/auth
func (h *OAuthHandler) GetAuthURL(c *gin.Context) {
	providerKey, ok := parseProviderParam(c)
	if !ok {
		return
	}

	provider, err := h.providers.Get(providerKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "OAUTH_NOT_CONFIGURED",
				"message": "OAuth is not configured for this provider",
			},
		})
		return
	}

	state, err := generateState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STATE_GENERATION_FAILED",
				"message": "Failed to generate state token",
			},
		})
		return
	}

	h.stateStore.mu.Lock()
	h.stateStore.states[state] = &OAuthState{
		Provider:    providerKey,
		DisplayName: c.Query("display_name"),
		CreatedAt:   time.Now(),
	}
	h.stateStore.mu.Unlock()

	go h.cleanupOldStates()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"auth_url": provider.AuthURL(state),
		},
	})
}

// Callback handles the provider's OAuth redirect: exchanges the code,
// resolves the mailbox identity and upserts the account.
// GET /api/oauth/:provider/callback
func (h *OAuthHandler) Callback(c *gin.Context) {
	providerKey, ok := parseProviderParam(c)
	if !ok {
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	errorParam := c.Query("error")

	if errorParam != "" {
		c.Redirect(http.StatusFound, "/?oauth_error="+errorParam)
		return
	}

	if code == "" || state == "" {
		c.Redirect(http.StatusFound, "/?oauth_error=missing_params")
		return
	}

	h.stateStore.mu.Lock()
	oauthState, exists := h.stateStore.states[state]
	delete(h.stateStore.states, state)
	h.stateStore.mu.Unlock()

	if !exists || oauthState.Provider != providerKey {
		c.Redirect(http.StatusFound, "/?oauth_error=invalid_state")
		return
	}
	if time.Since(oauthState.CreatedAt) > stateTTL {
		c.Redirect(http.StatusFound, "/?oauth_error=state_expired")
		return
	}

	provider, err := h.providers.Get(providerKey)
	if err != nil {
		c.Redirect(http.StatusFound, "/?oauth_error=config_error")
		return
	}

	tokens, err := provider.ExchangeCode(code)
	if err != nil {
		log.Printf("[OAuth] Code exchange failed for %s: %v", providerKey, err)
		c.Redirect(http.StatusFound, "/?oauth_error=token_exchange_failed")
		return
	}

	userInfo, err := provider.GetUserInfo(tokens.AccessToken)
	if err != nil {
		log.Printf("[OAuth] User info fetch failed for %s: %v", providerKey, err)
		c.Redirect(http.StatusFound, "/?oauth_error=get_email_failed")
		return
	}

	if oauthState.DisplayName != "" {
		userInfo.DisplayName = oauthState.DisplayName
	}
	if userInfo.DisplayName == "" {
		userInfo.DisplayName = userInfo.Email
	}

	if _, err := h.accountService.UpsertFromOAuth(providerKey, userInfo, tokens); err != nil {
		log.Printf("[OAuth] Account upsert failed for %s: %v", userInfo.Email, err)
		c.Redirect(http.StatusFound, "/?oauth_error=save_account_failed")
		return
	}

	c.Redirect(http.StatusFound, "/?oauth_success="+string(providerKey)+"&email="+userInfo.Email)
}

// GetOAuthConfig reports which providers are configured
// GET /api/oauth/config
func (h *OAuthHandler) GetOAuthConfig(c *gin.Context) {
	_, gmailErr := h.providers.Get(models.ProviderGmail)
	_, outlookErr := h.providers.Get(models.ProviderOutlook)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"gmail_enabled":   gmailErr == nil,
			"outlook_enabled": outlookErr == nil,
		},
	})
}

// cleanupOldStates removes states older than the TTL
func (h *OAuthHandler) cleanupOldStates() {
	h.stateStore.mu.Lock()
	defer h.stateStore.mu.Unlock()

	for state, oauthState := range h.stateStore.states {
		if time.Since(oauthState.CreatedAt) > stateTTL {
			delete(h.stateStore.states, state)
		}
	}
}
