// Package main provides the keiba-edge command line interface: race
// analysis, race selection, live monitoring and ledger management.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exitCode lets subcommands signal non-error outcomes, such as a race
// analysis that produced no actionable bet.
var exitCode int

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	os.Exit(exitCode)
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "keiba-edge",
		Short:         "JRA race probability estimation and value betting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to configuration file")

	root.AddCommand(
		newRecommendCmd(&configPath),
		newScoreRacesCmd(&configPath),
		newMonitorCmd(&configPath),
		newLedgerCmd(&configPath),
		newSettleCmd(&configPath),
	)
	return root
}
