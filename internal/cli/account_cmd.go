package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/webagent-cloud/mailagent/internal/services"
)

// accountCmd represents the account command group
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Email account management",
}

// accountListCmd lists all connected email accounts
var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected email accounts",
	Run: func(cmd *cobra.Command, args []string) {
		logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
		accountService := services.NewAccountService(db, logService)

		accounts, err := accountService.ListAccounts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list accounts: %v\n", err)
			os.Exit(1)
		}

		if len(accounts) == 0 {
			fmt.Println("No accounts connected.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPROVIDER\tEMAIL\tACTIVE\tLAST SYNC\tAUTH ERROR")
		for _, account := range accounts {
			lastSync := "never"
			if account.LastSyncAt != nil {
				lastSync = account.LastSyncAt.Format("2006-01-02 15:04:05")
			}
			authError := "-"
			if account.AuthError != "" {
				authError = "re-auth required"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\t%s\n",
				account.ID, account.Provider, account.EmailAddress, account.IsActive, lastSync, authError)
		}
		w.Flush()
	},
}

func init() {
	accountCmd.AddCommand(accountListCmd)
}
