package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "empire",
		Short: "Empire game backend",
		Long: `Empire runs the game backend: the HTTP API, the job workers that drive
production ticks, training and upgrades, and maintenance commands.

Examples:
  empire serve
  empire schedule-production
  empire reap-jobs`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./config.yaml)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newScheduleProductionCommand())
	rootCmd.AddCommand(newReapJobsCommand())

	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
