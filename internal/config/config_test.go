package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Run from an empty directory so no config.json is picked up.
	wd, _ := os.Getwd()
	tmpDir := t.TempDir()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	defer os.Chdir(wd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.SyncIntervalSeconds != 60 {
		t.Errorf("expected sync interval 60, got %d", cfg.SyncIntervalSeconds)
	}
	if cfg.SyncInitialDelay != 5 {
		t.Errorf("expected initial delay 5, got %d", cfg.SyncInitialDelay)
	}
	if cfg.SyncLookbackDays != 7 {
		t.Errorf("expected lookback 7 days, got %d", cfg.SyncLookbackDays)
	}
	if cfg.SyncPageSize != 50 {
		t.Errorf("expected page size 50, got %d", cfg.SyncPageSize)
	}
	if cfg.MaxConcurrentRuns != 4 {
		t.Errorf("expected max concurrent runs 4, got %d", cfg.MaxConcurrentRuns)
	}

	if cfg.SyncInterval() != 60*time.Second {
		t.Errorf("unexpected interval duration: %v", cfg.SyncInterval())
	}
	if cfg.InitialSyncDelay() != 5*time.Second {
		t.Errorf("unexpected delay duration: %v", cfg.InitialSyncDelay())
	}
	if cfg.LookbackWindow() != 7*24*time.Hour {
		t.Errorf("unexpected lookback duration: %v", cfg.LookbackWindow())
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	wd, _ := os.Getwd()
	tmpDir := t.TempDir()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	defer os.Chdir(wd)

	t.Setenv("MAILAGENT_SYNC_INTERVAL", "120")
	t.Setenv("MAILAGENT_API_PORT", "9000")
	t.Setenv("GMAIL_CLIENT_ID", "client-id")
	t.Setenv("GMAIL_CLIENT_SECRET", "client-secret")
	t.Setenv("GMAIL_REDIRECT_URI", "http://localhost/cb")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.SyncIntervalSeconds != 120 {
		t.Errorf("expected env override 120, got %d", cfg.SyncIntervalSeconds)
	}
	if cfg.APIPort != "9000" {
		t.Errorf("expected port 9000, got %s", cfg.APIPort)
	}
	if !cfg.Gmail.IsConfigured() {
		t.Error("expected Gmail OAuth configured via env")
	}
	if cfg.Outlook.IsConfigured() {
		t.Error("Outlook must stay unconfigured")
	}
}

func TestLoad_FileOverriddenByEnv(t *testing.T) {
	wd, _ := os.Getwd()
	tmpDir := t.TempDir()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	defer os.Chdir(wd)

	content := `{"api_port": "7000", "sync_page_size": 25}`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("MAILAGENT_API_PORT", "7100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIPort != "7100" {
		t.Errorf("env must win over file, got %s", cfg.APIPort)
	}
	if cfg.SyncPageSize != 25 {
		t.Errorf("file value must win over default, got %d", cfg.SyncPageSize)
	}
}
