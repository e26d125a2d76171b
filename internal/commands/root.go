package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledgerbotd",
		Short: "Transaction evidence extraction pipeline",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to ledgerbot.yaml")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newQueueCommand())

	return rootCmd
}
