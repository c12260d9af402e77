package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// OAuthConfig holds the OAuth client settings for one mail provider
type OAuthConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
	TenantID     string `json:"tenant_id,omitempty"` // Outlook only, defaults to "common"
}

// IsConfigured reports whether the provider can be used
func (o OAuthConfig) IsConfigured() bool {
	return o.ClientID != "" && o.ClientSecret != "" && o.RedirectURI != ""
}

// Config holds the application configuration
type Config struct {
	DatabasePath string `json:"database_path"`
	APIPort      string `json:"api_port"`
	LogLevel     string `json:"log_level"`
	DataDir      string `json:"data_dir"`
	CORSOrigins  string `json:"cors_origins"` // comma separated, * for all

	SyncIntervalSeconds int `json:"sync_interval_seconds"` // scheduler sweep interval
	SyncInitialDelay    int `json:"sync_initial_delay"`    // seconds before the first sweep
	SyncLookbackDays    int `json:"sync_lookback_days"`    // watermark fallback for never-synced accounts
	SyncPageSize        int `json:"sync_page_size"`        // max messages fetched per account per cycle
	MaxConcurrentRuns   int `json:"max_concurrent_runs"`   // agent fan-out bound per email
	ModelTimeoutSeconds int `json:"model_timeout_seconds"` // per model invocation

	Gmail   OAuthConfig `json:"gmail"`
	Outlook OAuthConfig `json:"outlook"`

	// Model provider API keys
	OpenAIAPIKey    string `json:"openai_api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key"`
	GoogleAPIKey    string `json:"google_api_key"`
}

// Default configuration values
const (
	DefaultDatabasePath      = "data/mailagent.db"
	DefaultAPIPort           = "8080"
	DefaultLogLevel          = "INFO"
	DefaultDataDir           = "data"
	DefaultCORSOrigins       = "*"
	DefaultSyncInterval      = 60
	DefaultSyncInitialDelay  = 5
	DefaultSyncLookbackDays  = 7
	DefaultSyncPageSize      = 50
	DefaultMaxConcurrentRuns = 4
	DefaultModelTimeout      = 60
)

// Load loads configuration from environment variables and config file
// Priority: Environment variables > Config file > Default values
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:        DefaultDatabasePath,
		APIPort:             DefaultAPIPort,
		LogLevel:            DefaultLogLevel,
		DataDir:             DefaultDataDir,
		CORSOrigins:         DefaultCORSOrigins,
		SyncIntervalSeconds: DefaultSyncInterval,
		SyncInitialDelay:    DefaultSyncInitialDelay,
		SyncLookbackDays:    DefaultSyncLookbackDays,
		SyncPageSize:        DefaultSyncPageSize,
		MaxConcurrentRuns:   DefaultMaxConcurrentRuns,
		ModelTimeoutSeconds: DefaultModelTimeout,
	}

	// Config file is optional
	if err := cfg.loadFromFile(); err != nil {
		return nil, err
	}

	cfg.loadFromEnv()

	return cfg, nil
}

// loadFromFile loads configuration from config.json
func (c *Config) loadFromFile() error {
	configPaths := []string{
		"config.json",
		filepath.Join(c.DataDir, "config.json"),
	}

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		if err := json.Unmarshal(data, c); err != nil {
			return err
		}
		return nil
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	setString(&c.DatabasePath, "MAILAGENT_DATABASE_PATH")
	setString(&c.APIPort, "MAILAGENT_API_PORT")
	setString(&c.LogLevel, "MAILAGENT_LOG_LEVEL")
	setString(&c.DataDir, "MAILAGENT_DATA_DIR")
	setString(&c.CORSOrigins, "MAILAGENT_CORS_ORIGINS")

	setInt(&c.SyncIntervalSeconds, "MAILAGENT_SYNC_INTERVAL")
	setInt(&c.SyncInitialDelay, "MAILAGENT_SYNC_INITIAL_DELAY")
	setInt(&c.SyncLookbackDays, "MAILAGENT_SYNC_LOOKBACK_DAYS")
	setInt(&c.SyncPageSize, "MAILAGENT_SYNC_PAGE_SIZE")
	setInt(&c.MaxConcurrentRuns, "MAILAGENT_MAX_CONCURRENT_RUNS")
	setInt(&c.ModelTimeoutSeconds, "MAILAGENT_MODEL_TIMEOUT")

	setString(&c.Gmail.ClientID, "GMAIL_CLIENT_ID")
	setString(&c.Gmail.ClientSecret, "GMAIL_CLIENT_SECRET")
	setString(&c.Gmail.RedirectURI, "GMAIL_REDIRECT_URI")

	setString(&c.Outlook.ClientID, "OUTLOOK_CLIENT_ID")
	setString(&c.Outlook.ClientSecret, "OUTLOOK_CLIENT_SECRET")
	setString(&c.Outlook.RedirectURI, "OUTLOOK_REDIRECT_URI")
	setString(&c.Outlook.TenantID, "OUTLOOK_TENANT_ID")

	setString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&c.GoogleAPIKey, "GOOGLE_API_KEY")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

// SyncInterval returns the scheduler sweep interval as a duration
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

// InitialSyncDelay returns the delay before the first scheduler sweep
func (c *Config) InitialSyncDelay() time.Duration {
	return time.Duration(c.SyncInitialDelay) * time.Second
}

// LookbackWindow returns the default watermark window for never-synced accounts
func (c *Config) LookbackWindow() time.Duration {
	return time.Duration(c.SyncLookbackDays) * 24 * time.Hour
}

// ModelTimeout returns the per-invocation model call timeout
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutSeconds) * time.Second
}

// Save saves the current configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
