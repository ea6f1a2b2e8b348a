package main

import (
	"github.com/spf13/cobra"
)

func newLedgerCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Bankroll ledger operations",
	}
	cmd.AddCommand(newLedgerReportCmd(configPath), newLedgerAdviceCmd(configPath))
	return cmd
}

func newLedgerReportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the bankroll performance report",
		Long: `Print the bankroll state, per-bet-type breakdown, recent settlements
and the current strategy advice as JSON. Requires a database for history
across invocations; otherwise only this process's settlements appear.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			return printJSON(app.ledger.Report())
		},
	}
}

func newLedgerAdviceCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "advice",
		Short: "Print the current strategy adjustment advice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			return printJSON(app.ledger.RecommendStrategy())
		},
	}
}
