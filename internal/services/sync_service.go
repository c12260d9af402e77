package services

import (
	"errors"
	"log"
	"time"

	"github.com/webagent-cloud/mailagent/internal/database/models"
	"gorm.io/gorm"
)

// SyncService owns the per-account synchronization cycle: credential
// check, fetch, dedup, ingest, dispatch, watermark advance.
type SyncService struct {
	db             *gorm.DB
	accountService *AccountService
	credentials    *CredentialManager
	providers      *ProviderRegistry
	agentRunner    *AgentRunner
	logService     *LogService
	lookback       time.Duration
}

// NewSyncService creates a new SyncService instance
func NewSyncService(db *gorm.DB, accountService *AccountService, credentials *CredentialManager,
	providers *ProviderRegistry, agentRunner *AgentRunner, logService *LogService, lookback time.Duration) *SyncService {
	return &SyncService{
		db:             db,
		accountService: accountService,
		credentials:    credentials,
		providers:      providers,
		agentRunner:    agentRunner,
		logService:     logService,
		lookback:       lookback,
	}
}

// SyncResult summarizes one per-account sync cycle
type SyncResult struct {
	Fetched int
	Saved   int
	Skipped int
}

// SyncAllActiveAccounts runs one sync cycle for every active account,
// sequentially. Individual account failures are logged and never abort
// the batch.
func (s *SyncService) SyncAllActiveAccounts() {
	accounts, err := s.accountService.ListActiveAccounts()
	if err != nil {
		log.Printf("[SyncService] Failed to list active accounts: %v", err)
		return
	}

	log.Printf("[SyncService] Syncing %d active accounts", len(accounts))

	for _, account := range accounts {
		if _, err := s.SyncAccount(account.ID); err != nil {
			log.Printf("[SyncService] Account %d (%s) sync failed: %v", account.ID, account.EmailAddress, err)
			s.logService.LogSyncFailed(account.ID, account.EmailAddress, err)
		}
	}
}

// SyncAccount runs one synchronization cycle for a single account.
// Accounts that are inactive or carry a sticky auth error are skipped
// without any network call; the flag must be cleared externally.
func (s *SyncService) SyncAccount(accountID uint) (*SyncResult, error) {
	account, err := s.accountService.GetAccountByID(accountID)
	if err != nil {
		return nil, err
	}

	if !account.IsActive {
		log.Printf("[SyncService] Account %d is inactive, skipping", accountID)
		return &SyncResult{}, nil
	}

	if account.AuthError != "" {
		log.Printf("[SyncService] Account %d has auth error, skipping sync. Re-authentication required.", accountID)
		return &SyncResult{}, nil
	}

	provider, err := s.providers.Get(account.Provider)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.credentials.GetValidAccessToken(account)
	if err != nil {
		return nil, s.markAuthFailed(account, err)
	}

	watermark := s.watermarkFor(account)

	messages, err := provider.ListNewMessages(accessToken, watermark)
	if err != nil {
		if !isAuthError(err) {
			return nil, err
		}

		// Auth-class failure: force one refresh and retry the fetch
		// exactly once, then give up and flag the account.
		log.Printf("[SyncService] Got auth failure for account %d, refreshing token and retrying", accountID)
		accessToken, refreshErr := s.credentials.ForceRefresh(account)
		if refreshErr != nil {
			return nil, s.markAuthFailed(account, refreshErr)
		}
		messages, err = provider.ListNewMessages(accessToken, watermark)
		if err != nil {
			return nil, s.markAuthFailed(account, err)
		}
	}

	log.Printf("[SyncService] Found %d new messages for account %d (%s)", len(messages), account.ID, account.EmailAddress)

	result := &SyncResult{Fetched: len(messages)}

	for _, raw := range messages {
		saved, err := s.ingestMessage(account, raw)
		if err != nil {
			log.Printf("[SyncService] Failed to ingest message %s for account %d: %v", raw.MessageID, account.ID, err)
			continue
		}
		if saved {
			result.Saved++
		} else {
			result.Skipped++
		}
	}

	// The watermark advances to now even when messages were skipped, so
	// unsynced backlog cannot grow without bound.
	if err := s.accountService.UpdateLastSyncAt(account.ID, time.Now()); err != nil {
		return nil, err
	}

	s.logService.LogSyncCompleted(account.ID, account.EmailAddress, result.Fetched, result.Saved, result.Skipped)
	log.Printf("[SyncService] Sync completed for account %d: %d fetched, %d saved, %d skipped",
		account.ID, result.Fetched, result.Saved, result.Skipped)

	return result, nil
}

// watermarkFor returns the time lower bound for an account's fetch:
// the last successful sync, or the lookback window for new accounts.
func (s *SyncService) watermarkFor(account *models.EmailAccount) time.Time {
	if account.LastSyncAt != nil && !account.LastSyncAt.IsZero() {
		return *account.LastSyncAt
	}
	return time.Now().Add(-s.lookback)
}

// ingestMessage persists one fetched message unless it was already
// ingested, then dispatches agents for it. Returns whether a new row
// was created.
func (s *SyncService) ingestMessage(account *models.EmailAccount, raw RawMessage) (bool, error) {
	var existing models.Email
	err := s.db.Where("account_id = ? AND message_id = ?", account.ID, raw.MessageID).First(&existing).Error
	if err == nil {
		return false, nil // already synced
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	email := &models.Email{
		AccountID:  account.ID,
		MessageID:  raw.MessageID,
		ThreadID:   raw.ThreadID,
		Subject:    raw.Subject,
		FromAddr:   raw.From,
		ToAddrs:    raw.To,
		ReceivedAt: raw.ReceivedAt,
		Body:       raw.Body,
		IsRead:     raw.IsRead,
		IsStarred:  false,
	}

	if err := s.db.Create(email).Error; err != nil {
		// A concurrent cycle may have won the insert race; the unique
		// index on (account_id, message_id) collapses that to a skip.
		return false, err
	}

	log.Printf("[SyncService] Synced email: %s", email.Subject)

	// Dispatch failures are recorded by the runner and must not block
	// ingestion of subsequent messages.
	if err := s.agentRunner.TriggerAgentsForEmail(email); err != nil {
		log.Printf("[SyncService] Agent dispatch failed for email %d: %v", email.ID, err)
	}

	return true, nil
}

// markAuthFailed persists the sticky auth-error flag and returns the
// original failure for the caller to log.
func (s *SyncService) markAuthFailed(account *models.EmailAccount, cause error) error {
	log.Printf("[SyncService] Auth failed for account %d (%s), marking for re-authentication: %v",
		account.ID, account.EmailAddress, cause)

	if err := s.accountService.SetAuthError(account.ID, cause.Error()); err != nil {
		log.Printf("[SyncService] Failed to persist auth error for account %d: %v", account.ID, err)
	}
	s.logService.LogAuthError(account.ID, account.EmailAddress, cause)

	return cause
}
