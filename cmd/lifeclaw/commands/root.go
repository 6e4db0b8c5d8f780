// Package commands implements the LifeClaw CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root CLI command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lifeclaw",
		Short: "LifeClaw - Personal Assistant",
		Long: `LifeClaw is a personal assistant that tracks your money, reminders,
calendar, contacts and health through plain conversation. Runs as a CLI
or as a messaging daemon (Telegram, Discord).

Examples:
  lifeclaw chat "I spent $25 on groceries"
  lifeclaw serve
  lifeclaw remember "my wife's birthday is March 12"
  lifeclaw plugins`,
		Version: version,
	}

	rootCmd.AddCommand(
		newChatCmd(),
		newServeCmd(),
		newSetupCmd(),
		newRememberCmd(),
		newPluginsCmd(),
	)

	// Global flags.
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")

	return rootCmd
}
