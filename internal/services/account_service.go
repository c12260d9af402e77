package services

import (
	"errors"
	"time"

	"github.com/webagent-cloud/mailagent/internal/database/models"
	"gorm.io/gorm"
)

var (
	// ErrAccountNotFound indicates the email account was not found
	ErrAccountNotFound = errors.New("email account not found")
	// ErrInvalidAccountData indicates invalid account data
	ErrInvalidAccountData = errors.New("invalid account data")
)

// AccountService handles email account business logic
type AccountService struct {
	db         *gorm.DB
	logService *LogService
}

// NewAccountService creates a new AccountService instance
func NewAccountService(db *gorm.DB, logService *LogService) *AccountService {
	return &AccountService{
		db:         db,
		logService: logService,
	}
}

// GetAccountByID retrieves an account by its ID
func (s *AccountService) GetAccountByID(id uint) (*models.EmailAccount, error) {
	var account models.EmailAccount
	if err := s.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ListAccounts retrieves all accounts
func (s *AccountService) ListAccounts() ([]models.EmailAccount, error) {
	var accounts []models.EmailAccount
	if err := s.db.Order("created_at DESC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// ListActiveAccounts retrieves all active accounts
func (s *AccountService) ListActiveAccounts() ([]models.EmailAccount, error) {
	var accounts []models.EmailAccount
	if err := s.db.Where("is_active = ?", true).Order("id").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpsertFromOAuth creates an account from a completed OAuth exchange,
// or updates the existing account when one with the same email address
// and provider is already connected. Re-connecting clears any sticky
// auth error.
func (s *AccountService) UpsertFromOAuth(provider models.EmailProvider, info *UserInfo, tokens *TokenSet) (*models.EmailAccount, error) {
	if !provider.IsValid() || info == nil || info.Email == "" || tokens == nil {
		return nil, ErrInvalidAccountData
	}

	var account models.EmailAccount
	err := s.db.Where("email_address = ? AND provider = ?", info.Email, provider).First(&account).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		account = models.EmailAccount{
			Provider:     provider,
			EmailAddress: info.Email,
			DisplayName:  info.DisplayName,
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			TokenExpiry:  tokens.Expiry,
			IsActive:     true,
		}
		if err := s.db.Create(&account).Error; err != nil {
			return nil, err
		}

		s.logService.LogAccountCreated(account.ID, account.EmailAddress)
		return &account, nil
	}

	account.DisplayName = info.DisplayName
	account.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		account.RefreshToken = tokens.RefreshToken
	}
	account.TokenExpiry = tokens.Expiry
	account.IsActive = true
	account.AuthError = ""

	if err := s.db.Save(&account).Error; err != nil {
		return nil, err
	}

	return &account, nil
}

// UpdateTokens persists a token rotation for an account. The refresh
// token is only overwritten when the provider rotated it.
func (s *AccountService) UpdateTokens(accountID uint, tokens *TokenSet) error {
	updates := map[string]interface{}{
		"access_token": tokens.AccessToken,
		"token_expiry": tokens.Expiry,
	}
	if tokens.RefreshToken != "" {
		updates["refresh_token"] = tokens.RefreshToken
	}
	return s.db.Model(&models.EmailAccount{}).Where("id = ?", accountID).Updates(updates).Error
}

// SetAuthError marks an account as needing re-authentication. Sync is
// suppressed while the flag is set.
func (s *AccountService) SetAuthError(accountID uint, message string) error {
	return s.db.Model(&models.EmailAccount{}).Where("id = ?", accountID).
		Update("auth_error", message).Error
}

// ClearAuthError clears the re-authentication flag
func (s *AccountService) ClearAuthError(accountID uint) error {
	return s.db.Model(&models.EmailAccount{}).Where("id = ?", accountID).
		Update("auth_error", "").Error
}

// UpdateLastSyncAt advances the account's sync watermark
func (s *AccountService) UpdateLastSyncAt(accountID uint, at time.Time) error {
	return s.db.Model(&models.EmailAccount{}).Where("id = ?", accountID).
		Update("last_sync_at", at).Error
}

// UpdateAccountInput represents the updatable account fields
type UpdateAccountInput struct {
	DisplayName  *string `json:"display_name"`
	SyncInterval *int    `json:"sync_interval"`
	IsActive     *bool   `json:"is_active"`
}

// UpdateAccount updates an email account's settings
func (s *AccountService) UpdateAccount(id uint, input UpdateAccountInput) (*models.EmailAccount, error) {
	account, err := s.GetAccountByID(id)
	if err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		account.DisplayName = *input.DisplayName
	}
	if input.SyncInterval != nil && *input.SyncInterval > 0 {
		account.SyncInterval = *input.SyncInterval
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}

	if err := s.db.Save(account).Error; err != nil {
		return nil, err
	}

	return account, nil
}

// DeleteAccount deletes an email account
func (s *AccountService) DeleteAccount(id uint) error {
	account, err := s.GetAccountByID(id)
	if err != nil {
		return err
	}

	email := account.EmailAddress

	if err := s.db.Select("Emails").Delete(account).Error; err != nil {
		return err
	}

	s.logService.LogAccountDeleted(id, email)

	return nil
}

// SetAccountActive activates or deactivates an account
func (s *AccountService) SetAccountActive(id uint, active bool) (*models.EmailAccount, error) {
	account, err := s.GetAccountByID(id)
	if err != nil {
		return nil, err
	}

	account.IsActive = active
	if err := s.db.Save(account).Error; err != nil {
		return nil, err
	}

	s.logService.LogAccountStatusChanged(account.ID, account.EmailAddress, active)

	return account, nil
}
