package services

import (
	"fmt"
	"log"
	"time"

	"github.com/webagent-cloud/mailagent/internal/database/models"
)

// CredentialManager keeps account access tokens valid, refreshing and
// persisting rotations as needed. Whether a failed refresh flags the
// account for re-authentication is the caller's decision.
type CredentialManager struct {
	accountService *AccountService
	providers      *ProviderRegistry
}

// NewCredentialManager creates a new CredentialManager instance
func NewCredentialManager(accountService *AccountService, providers *ProviderRegistry) *CredentialManager {
	return &CredentialManager{
		accountService: accountService,
		providers:      providers,
	}
}

// GetValidAccessToken returns the account's access token, refreshing it
// first when the expiry timestamp is absent or has passed.
func (m *CredentialManager) GetValidAccessToken(account *models.EmailAccount) (string, error) {
	if account.AccessToken != "" && account.TokenExpiry != nil && time.Now().Before(*account.TokenExpiry) {
		return account.AccessToken, nil
	}
	return m.ForceRefresh(account)
}

// ForceRefresh refreshes the account's access token regardless of its
// expiry, persisting the rotated tokens before returning. The passed
// account is updated in place so callers see the fresh credentials.
func (m *CredentialManager) ForceRefresh(account *models.EmailAccount) (string, error) {
	if account.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	provider, err := m.providers.Get(account.Provider)
	if err != nil {
		return "", err
	}

	tokens, err := provider.RefreshToken(account.RefreshToken)
	if err != nil {
		return "", err
	}

	if err := m.accountService.UpdateTokens(account.ID, tokens); err != nil {
		return "", fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	account.AccessToken = tokens.AccessToken
	account.TokenExpiry = tokens.Expiry
	if tokens.RefreshToken != "" {
		account.RefreshToken = tokens.RefreshToken
	}

	log.Printf("[CredentialManager] Refreshed token for account %d (%s)", account.ID, account.EmailAddress)

	return tokens.AccessToken, nil
}
