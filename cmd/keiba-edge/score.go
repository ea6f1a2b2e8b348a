package main

import (
	"github.com/spf13/cobra"

	"github.com/satory074/keiba-edge/internal/selector"
)

func newScoreRacesCmd(configPath *string) *cobra.Command {
	var (
		minScore float64
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "score-races",
		Short: "Rank available races by betting suitability",
		Long: `Score every available race on field size, class, track condition,
market inefficiency and data completeness, and print the top candidates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			races, err := app.loadRaces(ctx)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("min-score") {
				minScore = app.cfg.Selection.MinScore
			}
			if !cmd.Flags().Changed("limit") {
				limit = app.cfg.Selection.Limit
			}

			sel := selector.NewSelector(selector.DefaultCriteria(), nil, app.log)
			ranked := sel.RecommendedRaces(races, minScore, limit)
			return printJSON(ranked)
		},
	}

	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum score for a race to be listed")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of races to list")
	return cmd
}
