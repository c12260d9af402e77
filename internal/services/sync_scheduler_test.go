package services

import (
	"testing"
	"time"

	"github.com/webagent-cloud/mailagent/internal/database/models"
)

func waitForCondition(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSyncScheduler_AccountLocking(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	provider := &fakeProvider{providerName: models.ProviderGmail}
	syncService, _, _ := newSyncStack(t, db, provider)
	scheduler := NewSyncScheduler(syncService, time.Hour, time.Hour)

	if !scheduler.TryLockAccount(1) {
		t.Fatal("first TryLockAccount must succeed")
	}
	if scheduler.TryLockAccount(1) {
		t.Error("TryLockAccount must fail while the account is held")
	}
	if !scheduler.IsAccountSyncing(1) {
		t.Error("IsAccountSyncing must report a held account")
	}

	// Other accounts are independent.
	if !scheduler.TryLockAccount(2) {
		t.Error("locking one account must not block another")
	}
	scheduler.UnlockAccount(2)

	scheduler.UnlockAccount(1)
	if scheduler.IsAccountSyncing(1) {
		t.Error("IsAccountSyncing must clear after unlock")
	}
	if !scheduler.TryLockAccount(1) {
		t.Error("TryLockAccount must succeed again after unlock")
	}
	scheduler.UnlockAccount(1)
}

func TestSyncScheduler_OverlappingSweepIsSkipped(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	gate := make(chan struct{})
	provider := &fakeProvider{
		providerName: models.ProviderGmail,
		listGate:     gate,
	}
	syncService, _, _ := newSyncStack(t, db, provider)
	createSyncTestAccount(t, db, models.ProviderGmail)
	scheduler := NewSyncScheduler(syncService, time.Hour, time.Hour)

	done := make(chan struct{})
	go func() {
		scheduler.sweep()
		close(done)
	}()

	// Wait until the first sweep is blocked inside the provider call.
	waitForCondition(t, "first sweep to reach the provider", func() bool {
		return provider.listCallCount() == 1
	})

	// A sweep fired while the first one is in flight must return
	// immediately without touching the provider.
	scheduler.sweep()
	if calls := provider.listCallCount(); calls != 1 {
		t.Errorf("overlapping sweep must be skipped, got %d provider calls", calls)
	}

	close(gate)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first sweep did not finish")
	}

	if calls := provider.listCallCount(); calls != 1 {
		t.Errorf("expected exactly 1 provider call total, got %d", calls)
	}
}

func TestSyncScheduler_SweepSkipsManuallyLockedAccount(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	provider := &fakeProvider{providerName: models.ProviderGmail}
	syncService, _, _ := newSyncStack(t, db, provider)
	account := createSyncTestAccount(t, db, models.ProviderGmail)
	scheduler := NewSyncScheduler(syncService, time.Hour, time.Hour)

	if !scheduler.TryLockAccount(account.ID) {
		t.Fatal("TryLockAccount failed")
	}
	defer scheduler.UnlockAccount(account.ID)

	scheduler.sweep()

	if calls := provider.listCallCount(); calls != 0 {
		t.Errorf("sweep must skip a manually locked account, got %d provider calls", calls)
	}
	if !scheduler.IsAccountSyncing(account.ID) {
		t.Error("sweep must leave the manual lock in place")
	}
}

func TestSyncScheduler_StartRunsFirstSweepAfterDelay(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	provider := &fakeProvider{providerName: models.ProviderGmail}
	syncService, _, _ := newSyncStack(t, db, provider)
	createSyncTestAccount(t, db, models.ProviderGmail)
	scheduler := NewSyncScheduler(syncService, time.Hour, 10*time.Millisecond)

	scheduler.Start()
	defer scheduler.Stop()

	waitForCondition(t, "first sweep after the initial delay", func() bool {
		return provider.listCallCount() == 1
	})
}

func TestSyncScheduler_StopBeforeInitialDelayCancelsFirstSweep(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	provider := &fakeProvider{providerName: models.ProviderGmail}
	syncService, _, _ := newSyncStack(t, db, provider)
	createSyncTestAccount(t, db, models.ProviderGmail)
	scheduler := NewSyncScheduler(syncService, time.Hour, time.Hour)

	scheduler.Start()
	scheduler.Stop()

	time.Sleep(50 * time.Millisecond)
	if calls := provider.listCallCount(); calls != 0 {
		t.Errorf("stopped scheduler must not sweep, got %d provider calls", calls)
	}
}
