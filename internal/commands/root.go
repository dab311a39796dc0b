package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/coindesk/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "coindesk",
		Short:   "Bank statement acquisition and expense categorization",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newFetchCommand(),
		newRecategorizeCommand(),
		newNotifyCommand(),
		newExportCommand(),
		newMapCommand(),
		newMigrateCommand(),
	)

	return rootCmd
}
