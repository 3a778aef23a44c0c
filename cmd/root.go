// Package cmd wires the cindy command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cindy",
		Short: "Polls calendar feeds and announces new events on Mastodon.",
		Long: `cindy periodically pulls configured iCalendar feeds, determines which
events are new or changed since the last successful poll, and publishes
a length-bounded Mastodon status for each qualifying event.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgFile)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (environment variables are used when omitted)")
	cmd.AddCommand(newCheckHealthCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cindy: %v\n", err)
		os.Exit(1)
	}
}
