package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/webagent-cloud/mailagent/internal/ai"
	"github.com/webagent-cloud/mailagent/internal/services"
)

// newModelClient builds the model client from the configured API keys
func newModelClient() services.TextGenerator {
	return ai.NewClient(ai.Keys{
		OpenAI:    cfg.OpenAIAPIKey,
		Anthropic: cfg.AnthropicAPIKey,
		Google:    cfg.GoogleAPIKey,
	}, cfg.ModelTimeout())
}

// syncCmd runs a one-off sync sweep from the command line
var syncCmd = &cobra.Command{
	Use:   "sync [account-id]",
	Short: "Run a sync cycle",
	Long: `Run one synchronization cycle. Without arguments every active account
is synced in turn; with an account ID only that account is synced.
New messages are dispatched to the agents bound to their account.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		syncService, accountService := buildSyncService()

		if len(args) == 1 {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid account ID %q\n", args[0])
				os.Exit(1)
			}

			account, err := accountService.GetAccountByID(uint(id))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			result, err := syncService.SyncAccount(account.ID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: sync failed for %s: %v\n", account.EmailAddress, err)
				os.Exit(1)
			}

			fmt.Printf("Synced %s: %d fetched, %d saved, %d skipped\n",
				account.EmailAddress, result.Fetched, result.Saved, result.Skipped)
			return
		}

		syncService.SyncAllActiveAccounts()
		fmt.Println("Sync sweep completed.")
	},
}
