package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/satory074/keiba-edge/internal/bankroll"
	"github.com/satory074/keiba-edge/internal/betting"
	"github.com/satory074/keiba-edge/internal/config"
	"github.com/satory074/keiba-edge/internal/database"
	"github.com/satory074/keiba-edge/internal/datasource"
	"github.com/satory074/keiba-edge/internal/ingest"
	"github.com/satory074/keiba-edge/internal/logger"
	"github.com/satory074/keiba-edge/internal/metrics"
	"github.com/satory074/keiba-edge/internal/models"
	"github.com/satory074/keiba-edge/internal/pipeline"
	"github.com/satory074/keiba-edge/internal/probability"
	"github.com/satory074/keiba-edge/internal/repository"
)

const ledgerRestoreLimit = 1000

// app holds the wired application components shared by all subcommands.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	audit     *logger.AuditLogger
	db        *database.DB
	collector *datasource.CollectorClient
	loader    *ingest.Loader
	ledger    *bankroll.Ledger
	analyzer  *pipeline.Analyzer
}

// newApp loads configuration and wires the full analysis stack. The
// database and collector endpoint are both optional; without them the app
// runs from local JSON files with an in-memory ledger.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return nil, fmt.Errorf("loading secrets: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	log.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"data_dir":    cfg.Data.Dir,
	}).Debug("Configuration loaded")

	a := &app{
		cfg:    cfg,
		log:    log,
		audit:  logger.NewAuditLogger(log),
		loader: ingest.NewLoader(cfg.Data.Dir, log),
	}

	var store bankroll.RecordStore
	if cfg.Database.Enabled() {
		db, err := database.Initialize(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("initializing database: %w", err)
		}
		a.db = db
		store = repository.NewPostgresBetRecordRepository(db)
	}

	a.ledger = bankroll.NewLedger(cfg.Betting.InitialBankroll, store, log)
	if repo, ok := store.(*repository.PostgresBetRecordRepository); ok {
		if err := restoreLedger(ctx, a.ledger, repo); err != nil {
			log.WithError(err).Warn("Could not restore ledger history")
		}
	}
	metrics.UpdateBankroll(a.ledger.Current())
	metrics.UpdateDrawdown(a.ledger.CurrentDrawdown())

	var source pipeline.RaceSource = a.loader
	if cfg.Collector.BaseURL != "" {
		a.collector = datasource.NewCollectorClientFromConfig(cfg, log)
		source = datasource.NewSource(a.collector)
	}

	engine := probability.NewEngine(probability.DefaultFactorWeights(), log)
	simulator := probability.NewSimulator(probability.SimulatorConfig{
		Iterations: cfg.Simulation.Iterations,
		Workers:    cfg.Simulation.Workers,
		Seed:       cfg.Simulation.Seed,
	}, log)
	sizer := betting.NewSizer(cfg.Betting.MaxRiskFraction, log)
	values := betting.NewValueAnalyzer(betting.AnalyzerConfig{
		MinExpectedValue: cfg.Betting.MinExpectedValue,
		MaxPortfolio:     cfg.Betting.MaxPortfolio,
		Confidence:       cfg.Betting.Confidence,
	}, sizer, log)

	a.analyzer = pipeline.NewAnalyzer(source, engine, simulator, values, a.ledger, a.audit, cfg.Data.OutputDir, cfg.CacheTTL(), log)

	return a, nil
}

func restoreLedger(ctx context.Context, ledger *bankroll.Ledger, repo *repository.PostgresBetRecordRepository) error {
	recent, err := repo.ListRecent(ctx, ledgerRestoreLimit)
	if err != nil {
		return err
	}
	// ListRecent returns newest first; the ledger replays chronologically.
	records := make([]models.BetRecord, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		records = append(records, *recent[i])
	}
	ledger.Restore(records)
	return nil
}

// Close releases database and HTTP resources.
func (a *app) Close() {
	if a.collector != nil {
		if err := a.collector.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close collector client")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

// startMetricsServer exposes the Prometheus registry when metrics are
// enabled. The returned function shuts the server down.
func (a *app) startMetricsServer() func() {
	if !a.cfg.Metrics.Enabled {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, metrics.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Metrics.Port),
		Handler: mux,
	}

	go func() {
		a.log.WithField("addr", server.Addr).Info("Metrics server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.WithError(err).Error("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			a.log.WithError(err).Warn("Metrics server shutdown failed")
		}
	}
}

// loadRaces fetches every known race snapshot from the configured source.
func (a *app) loadRaces(ctx context.Context) ([]*models.RaceSnapshot, error) {
	ids, err := a.listRaceIDs(ctx)
	if err != nil {
		return nil, err
	}

	races := make([]*models.RaceSnapshot, 0, len(ids))
	for _, id := range ids {
		race, err := a.loadRace(ctx, id)
		if err != nil {
			a.log.WithError(err).WithField("race_id", id).Warn("Skipping unreadable race")
			continue
		}
		races = append(races, race)
	}
	return races, nil
}

func (a *app) listRaceIDs(ctx context.Context) ([]string, error) {
	if a.collector != nil {
		return a.collector.ListRaceIDs(ctx)
	}
	return a.loader.ListRaceIDs()
}

func (a *app) loadRace(ctx context.Context, raceID string) (*models.RaceSnapshot, error) {
	if a.collector != nil {
		return a.collector.GetRaceSnapshot(ctx, raceID)
	}
	return a.loader.LoadRace(raceID)
}
