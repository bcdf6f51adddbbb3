package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "dailyplanner",
	Short: "Telegram daily planner with recurring tasks",
	Long: `dailyplanner keeps one-off and recurring tasks for Telegram users and
sends them periodic reports. Without a subcommand it runs the bot.`,
	SilenceUsage: true,
	RunE:         runBot,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("dailyplanner version {{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
