package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/satory074/keiba-edge/internal/health"
	"github.com/satory074/keiba-edge/internal/live"
	"github.com/satory074/keiba-edge/internal/scheduler"
)

func newMonitorCmd(configPath *string) *cobra.Command {
	var healthPort int

	cmd := &cobra.Command{
		Use:   "monitor <race_id> [race_id...]",
		Short: "Poll live market conditions and re-analyze when they shift",
		Long: `Track one or more races, polling odds, weather and track condition on
the configured intervals. When the market moves past the staleness
thresholds the probability model is rebuilt and fresh recommendations
are produced.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.collector == nil {
				return fmt.Errorf("monitoring requires a collector endpoint; set collector.base_url")
			}

			monitor := scheduler.NewMonitor(
				app.collector,
				live.NewReconciler(app.log),
				app.analyzer,
				app.audit,
				app.log,
			)
			for _, raceID := range args {
				monitor.Track(raceID)
			}

			if err := monitor.ScheduleOddsPolling(app.cfg.Monitor.OddsIntervalMinutes); err != nil {
				return err
			}
			if err := monitor.ScheduleConditionPolling(app.cfg.Monitor.WeatherIntervalMinutes); err != nil {
				return err
			}

			stopMetrics := app.startMetricsServer()
			defer stopMetrics()

			healthCtx, cancelHealth := context.WithCancel(ctx)
			defer cancelHealth()
			healthServer := health.NewServer(app.cfg.App.Name, healthPort, app.log)
			if app.db != nil {
				healthServer.RegisterCheck("database", app.db.Ping)
			}
			healthServer.RegisterCheck("collector", func(ctx context.Context) error {
				_, err := app.collector.ListRaceIDs(ctx)
				return err
			})
			if err := healthServer.Start(healthCtx); err != nil {
				return err
			}

			// Establish the baseline and initial analysis before the cron
			// cadence takes over.
			monitor.PollNow(ctx)

			if err := monitor.Start(); err != nil {
				return err
			}
			healthServer.SetReady(true)
			app.log.WithField("races", args).Info("Monitoring started, press Ctrl+C to stop")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-sigCh:
				app.log.WithField("signal", sig.String()).Info("Shutting down")
			case <-ctx.Done():
			}

			return monitor.Stop()
		},
	}

	cmd.Flags().IntVar(&healthPort, "health-port", 8080, "port for the health check endpoints")
	return cmd
}
