package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satory074/keiba-edge/internal/bankroll"
	"github.com/satory074/keiba-edge/internal/metrics"
	"github.com/satory074/keiba-edge/internal/models"
)

func newSettleCmd(configPath *string) *cobra.Command {
	var (
		betType string
		horses  []int
		amount  int
		odds    float64
		result  string
		payout  int
	)

	cmd := &cobra.Command{
		Use:   "settle <race_id>",
		Short: "Record the outcome of a placed bet",
		Long: `Record a resolved bet against the bankroll. A win credits the payout
minus the stake; a loss debits the stake. The record is persisted when a
database is configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			betResult := models.BetResult(result)
			if betResult != models.ResultWin && betResult != models.ResultLose {
				return fmt.Errorf("result must be %q or %q", models.ResultWin, models.ResultLose)
			}
			if _, known := models.BreakevenThreshold[models.BetType(betType)]; !known {
				return fmt.Errorf("unknown bet type %q", betType)
			}
			if betResult == models.ResultWin && payout <= 0 {
				return fmt.Errorf("a winning bet requires --payout")
			}

			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			record, err := app.ledger.RecordBet(ctx, bankroll.SettleInput{
				RaceID:  args[0],
				BetType: models.BetType(betType),
				Horses:  horses,
				Amount:  amount,
				Odds:    odds,
				Result:  betResult,
				Payout:  payout,
			})
			if err != nil {
				return err
			}

			metrics.RecordBetSettled()
			metrics.UpdateBankroll(app.ledger.Current())
			metrics.UpdateDrawdown(app.ledger.CurrentDrawdown())
			app.audit.LogSettlement(
				record.ID.String(), record.RaceID, string(record.BetType),
				string(record.Result), record.Amount, record.Payout,
				record.BankrollAfter, record.SettledAt,
			)

			return printJSON(record)
		},
	}

	cmd.Flags().StringVar(&betType, "type", "", "bet type (tan, fuku, umaren, umatan, wide, sanrentan, sanrenpuku)")
	cmd.Flags().IntSliceVar(&horses, "horses", nil, "umaban numbers of the bet")
	cmd.Flags().IntVar(&amount, "amount", 0, "stake in yen")
	cmd.Flags().Float64Var(&odds, "odds", 0, "odds taken")
	cmd.Flags().StringVar(&result, "result", "", "bet result (win or lose)")
	cmd.Flags().IntVar(&payout, "payout", 0, "gross payout in yen for a win")
	cobra.CheckErr(cmd.MarkFlagRequired("type"))
	cobra.CheckErr(cmd.MarkFlagRequired("amount"))
	cobra.CheckErr(cmd.MarkFlagRequired("result"))
	return cmd
}
