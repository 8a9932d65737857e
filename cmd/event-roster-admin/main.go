// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the event roster admin CLI. It runs maintenance jobs
// against the same stores as the service.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(&App{}).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree around app.
func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "event-roster-admin",
		Short:         "Event roster maintenance",
		Long:          `Maintenance jobs for the event roster service: preview recurrences, purge events, run the reschedule sweep and inspect rosters.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.debug, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(nextCmd(app))
	rootCmd.AddCommand(purgeCmd(app))
	rootCmd.AddCommand(sweepCmd(app))
	rootCmd.AddCommand(rosterCmd(app))

	return rootCmd
}
