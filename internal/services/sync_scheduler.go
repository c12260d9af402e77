package services

import (
	"log"
	"sync"
	"time"
)

// SyncScheduler drives the recurring mailbox synchronization sweeps
type SyncScheduler struct {
	syncService  *SyncService
	interval     time.Duration
	initialDelay time.Duration
	stopChan     chan struct{}
	running      bool
	mu           sync.Mutex
	sweeping     sync.Mutex // guards against overlapping sweeps
	accountLocks sync.Map   // per-account locks so manual syncs don't race the sweep
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(syncService *SyncService, interval, initialDelay time.Duration) *SyncScheduler {
	return &SyncScheduler{
		syncService:  syncService,
		interval:     interval,
		initialDelay: initialDelay,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the automatic sync process
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Printf("[SyncScheduler] Starting with interval %v (first sweep in %v)", s.interval, s.initialDelay)

	go func() {
		// Short initial delay so startup settles before the first sweep
		select {
		case <-time.After(s.initialDelay):
			log.Println("[SyncScheduler] Running first sweep...")
			s.sweep()
		case <-s.stopChan:
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				log.Println("[SyncScheduler] Stopping")
				return
			}
		}
	}()
}

// Stop stops the automatic sync process
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	close(s.stopChan)
	s.running = false
}

// IsAccountSyncing reports whether an account sync is in flight
func (s *SyncScheduler) IsAccountSyncing(accountID uint) bool {
	_, loaded := s.accountLocks.Load(accountID)
	return loaded
}

// TryLockAccount claims an account for syncing, returning false when it
// is already claimed. Manual sync triggers use this to avoid racing the
// scheduled sweep.
func (s *SyncScheduler) TryLockAccount(accountID uint) bool {
	_, loaded := s.accountLocks.LoadOrStore(accountID, true)
	return !loaded
}

// UnlockAccount releases an account claimed with TryLockAccount
func (s *SyncScheduler) UnlockAccount(accountID uint) {
	s.accountLocks.Delete(accountID)
}

// sweep runs one sync cycle over all active accounts, sequentially.
// If the previous sweep is still running the new one is skipped;
// ingestion is idempotent but duplicate concurrent fetches are wasted
// provider calls.
func (s *SyncScheduler) sweep() {
	if !s.sweeping.TryLock() {
		log.Println("[SyncScheduler] Previous sweep still running, skipping this cycle")
		return
	}
	defer s.sweeping.Unlock()

	accounts, err := s.syncService.accountService.ListActiveAccounts()
	if err != nil {
		log.Printf("[SyncScheduler] Failed to list accounts: %v", err)
		return
	}

	if len(accounts) == 0 {
		return
	}

	log.Printf("[SyncScheduler] Sweeping %d active accounts", len(accounts))

	for _, account := range accounts {
		if !s.TryLockAccount(account.ID) {
			log.Printf("[SyncScheduler] Account %d (%s) is already syncing, skipping", account.ID, account.EmailAddress)
			continue
		}

		if _, err := s.syncService.SyncAccount(account.ID); err != nil {
			log.Printf("[SyncScheduler] Account %d (%s) sync failed: %v", account.ID, account.EmailAddress, err)
			s.syncService.logService.LogSyncFailed(account.ID, account.EmailAddress, err)
		}

		s.UnlockAccount(account.ID)
	}

	log.Println("[SyncScheduler] Sweep completed")
}
