// Package cmd defines and implements the CLI commands for the timerboard
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timerboard",
		Short: "A live countdown/progress display service.",
		Long: `timerboard maintains live countdown and count-up timers. Each timer is a
time window (start, optional end, overdue policy) whose display state is
continuously derived on shared, adaptively paced clock sources and exposed
over HTTP.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./timerboard.yaml)")

	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
