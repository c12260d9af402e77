package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/webagent-cloud/mailagent/internal/api/middleware"
	"github.com/webagent-cloud/mailagent/internal/config"
	"github.com/webagent-cloud/mailagent/internal/services"
	"gorm.io/gorm"
)

var (
	db            *gorm.DB
	cfg           *config.Config
	apiKeyManager *middleware.APIKeyManager
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mailagent",
	Short: "Mailbox sync and agent dispatch service",
	Long: `mailagent connects Gmail and Outlook mailboxes, polls them for new
messages and dispatches each new message to the automation agents bound
to its account.

Available commands:
  mailagent key show        # show the current API key
  mailagent key reset       # reset the API key
  mailagent account list    # list connected email accounts
  mailagent sync            # run one sync sweep over all active accounts
  mailagent sync <id>       # sync a single account by ID

Running without arguments starts the API server and the background
sync scheduler.`,
}

// Execute runs the CLI with the provided database and config
func Execute(database *gorm.DB, config *config.Config) {
	db = database
	cfg = config

	var err error
	apiKeyManager, err = middleware.NewAPIKeyManager(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize API key manager: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildSyncService wires the full sync stack for CLI use
func buildSyncService() (*services.SyncService, *services.AccountService) {
	logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
	accountService := services.NewAccountService(db, logService)

	var providerList []services.MailProvider
	if cfg.Gmail.IsConfigured() {
		providerList = append(providerList, services.NewGmailProvider(cfg.Gmail, cfg.SyncPageSize))
	}
	if cfg.Outlook.IsConfigured() {
		providerList = append(providerList, services.NewOutlookProvider(cfg.Outlook, cfg.SyncPageSize))
	}
	providers := services.NewProviderRegistry(providerList...)
	credentials := services.NewCredentialManager(accountService, providers)

	generator := newModelClient()
	agentRunner := services.NewAgentRunner(db, generator, logService, cfg.MaxConcurrentRuns)

	syncService := services.NewSyncService(db, accountService, credentials, providers,
		agentRunner, logService, cfg.LookbackWindow())

	return syncService, accountService
}

func init() {
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(syncCmd)
}
