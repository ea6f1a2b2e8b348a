package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/satory074/keiba-edge/internal/models"
	"github.com/satory074/keiba-edge/internal/pipeline"
)

func newRecommendCmd(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "recommend <race_id>",
		Short: "Analyze one race and print betting recommendations",
		Long: `Analyze one race and print betting recommendations. A recommendation
JSON file is also written to the configured output directory.

Exit codes: 0 when at least one bet is recommended, 1 when the analysis
completes but finds no value, 2 on error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.analyzer.Analyze(ctx, args[0])
			if err != nil {
				if errors.Is(err, models.ErrNoRaceData) {
					return fmt.Errorf("no collector data for race %s; export it into %s first (race_data_%s.json)",
						args[0], app.cfg.Data.Dir, args[0])
				}
				return fmt.Errorf("analyzing race %s: %w", args[0], err)
			}

			if asJSON {
				if err := printJSON(result); err != nil {
					return err
				}
			} else {
				printSummary(result)
			}
			if !result.HasBets() {
				exitCode = 1
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func printSummary(result *pipeline.AnalysisResult) {
	fmt.Printf("Race %s", result.RaceID)
	if result.RaceName != "" {
		fmt.Printf(" (%s)", result.RaceName)
	}
	fmt.Println()

	for _, rec := range result.Recommendations {
		if rec.BetType == models.BetNone {
			fmt.Printf("  no bet: %s\n", rec.Reason)
			continue
		}
		fmt.Printf("  %-10s horses %v  odds %.1f  p=%.3f  EV=%.2f  stake %d yen",
			rec.BetType, rec.Horses, rec.Odds, rec.Probability, rec.ExpectedValue, rec.Amount)
		if rec.PortfolioAdjusted {
			fmt.Print("  (portfolio capped)")
		}
		fmt.Println()
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
