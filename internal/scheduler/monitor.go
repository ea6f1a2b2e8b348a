// Package scheduler runs the live race monitor: periodic polling of the
// collector for odds, weather and track changes, triggering model
// recalculation when the reconciler flags the current model as stale.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/satory074/keiba-edge/internal/live"
	"github.com/satory074/keiba-edge/internal/logger"
	"github.com/satory074/keiba-edge/internal/metrics"
	"github.com/satory074/keiba-edge/internal/models"
	"github.com/satory074/keiba-edge/internal/pipeline"
)

// SnapshotFetcher fetches the current collector snapshot for a race.
// datasource.CollectorClient is the production implementation.
type SnapshotFetcher interface {
	GetRaceSnapshot(ctx context.Context, raceID string) (*models.RaceSnapshot, error)
}

// AnalysisRunner runs and invalidates race analyses.
type AnalysisRunner interface {
	Analyze(ctx context.Context, raceID string) (*pipeline.AnalysisResult, error)
	Invalidate(raceID string)
}

// raceWatch is the reconciliation baseline for one tracked race: the market
// state at the last recalculation. It only advances when a recalculation
// fires, so gradual drift accumulates against a fixed reference.
type raceWatch struct {
	baseline   *live.MarketState
	lastRecalc time.Time
}

// Monitor polls tracked races on fixed intervals and re-runs the analysis
// pipeline when market conditions move past the reconciler's thresholds.
type Monitor struct {
	cron       *cron.Cron
	fetcher    SnapshotFetcher
	reconciler *live.Reconciler
	analyzer   AnalysisRunner
	audit      *logger.AuditLogger
	logger     *logrus.Logger

	mu        sync.RWMutex
	isRunning bool
	jobIDs    []cron.EntryID
	watches   map[string]*raceWatch

	pollTimeout time.Duration
}

// NewMonitor creates a live race monitor.
func NewMonitor(fetcher SnapshotFetcher, reconciler *live.Reconciler, analyzer AnalysisRunner, audit *logger.AuditLogger, log *logrus.Logger) *Monitor {
	return &Monitor{
		cron:        cron.New(cron.WithLocation(time.UTC)),
		fetcher:     fetcher,
		reconciler:  reconciler,
		analyzer:    analyzer,
		audit:       audit,
		logger:      log,
		jobIDs:      make([]cron.EntryID, 0),
		watches:     make(map[string]*raceWatch),
		pollTimeout: 2 * time.Minute,
	}
}

// Track adds a race to the monitored set. The first poll establishes the
// reconciliation baseline and runs the initial analysis.
func (m *Monitor) Track(raceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.watches[raceID]; exists {
		return
	}
	m.watches[raceID] = &raceWatch{}
	metrics.UpdateMonitoredRaces(float64(len(m.watches)))
	m.logger.WithField("race_id", raceID).Info("Tracking race")
}

// Untrack removes a race from the monitored set.
func (m *Monitor) Untrack(raceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.watches[raceID]; !exists {
		return
	}
	delete(m.watches, raceID)
	metrics.UpdateMonitoredRaces(float64(len(m.watches)))
	m.logger.WithField("race_id", raceID).Info("Stopped tracking race")
}

// TrackedRaces returns the IDs of all monitored races.
func (m *Monitor) TrackedRaces() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.watches))
	for id := range m.watches {
		ids = append(ids, id)
	}
	return ids
}

// ScheduleOddsPolling schedules market polling at the given interval.
func (m *Monitor) ScheduleOddsPolling(intervalMinutes int) error {
	return m.schedule(intervalMinutes, "odds")
}

// ScheduleConditionPolling schedules weather and track condition polling at
// the given interval. Slower than odds polling; both run the same full
// market comparison.
func (m *Monitor) ScheduleConditionPolling(intervalMinutes int) error {
	return m.schedule(intervalMinutes, "conditions")
}

func (m *Monitor) schedule(intervalMinutes int, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("cannot schedule job while monitor is running")
	}
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.pollTimeout)
		defer cancel()
		m.PollNow(ctx)
	}

	entryID, err := m.cron.AddFunc(fmt.Sprintf("@every %dm", intervalMinutes), jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add %s polling job: %w", kind, err)
	}

	m.jobIDs = append(m.jobIDs, entryID)
	m.logger.WithFields(logrus.Fields{
		"kind":             kind,
		"interval_minutes": intervalMinutes,
	}).Info("Scheduled polling job")

	return nil
}

// PollNow polls every tracked race once. Called by the cron jobs and
// usable directly for a manual refresh.
func (m *Monitor) PollNow(ctx context.Context) {
	for _, raceID := range m.TrackedRaces() {
		if err := m.pollRace(ctx, raceID); err != nil {
			m.logger.WithError(err).WithField("race_id", raceID).Warn("Poll failed")
		}
	}
}

func (m *Monitor) pollRace(ctx context.Context, raceID string) error {
	race, err := m.fetcher.GetRaceSnapshot(ctx, raceID)
	if err != nil {
		return fmt.Errorf("fetching snapshot: %w", err)
	}
	curr := marketStateFromSnapshot(race)
	now := time.Now()

	m.mu.Lock()
	watch, tracked := m.watches[raceID]
	if !tracked {
		m.mu.Unlock()
		return nil
	}
	baseline, lastRecalc := watch.baseline, watch.lastRecalc
	m.mu.Unlock()

	if baseline == nil {
		return m.recalculate(ctx, raceID, curr, now, []string{"initial analysis"})
	}

	stale, reasons := m.reconciler.NeedsRecalculation(baseline, curr, lastRecalc, now)
	if !stale {
		return nil
	}
	return m.recalculate(ctx, raceID, curr, now, reasons)
}

func (m *Monitor) recalculate(ctx context.Context, raceID string, curr *live.MarketState, now time.Time, reasons []string) error {
	metrics.RecordRecalculation()
	if m.audit != nil {
		m.audit.LogRecalculation(raceID, reasons)
	}

	m.analyzer.Invalidate(raceID)
	if _, err := m.analyzer.Analyze(ctx, raceID); err != nil {
		return fmt.Errorf("reanalyzing: %w", err)
	}

	m.mu.Lock()
	if watch, tracked := m.watches[raceID]; tracked {
		watch.baseline = curr
		watch.lastRecalc = now
	}
	m.mu.Unlock()

	return nil
}

// marketStateFromSnapshot projects a collector snapshot onto the fields the
// reconciler compares.
func marketStateFromSnapshot(race *models.RaceSnapshot) *live.MarketState {
	weights := make(map[int]float64)
	for _, horse := range race.Horses {
		if horse.WeightKG != nil {
			weights[horse.Umaban] = *horse.WeightKG
		}
	}

	return &live.MarketState{
		TanOdds: race.Odds.Tan,
		Track: live.TrackState{
			Condition: race.TrackCondition,
		},
		Weather: live.WeatherState{
			Category: race.Weather,
		},
		HorseWeights: weights,
	}
}

// Start starts the polling jobs.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("monitor is already running")
	}
	if len(m.jobIDs) == 0 {
		return fmt.Errorf("no polling jobs scheduled")
	}

	m.cron.Start()
	m.isRunning = true
	m.logger.WithField("jobs", len(m.jobIDs)).Info("Monitor started")

	return nil
}

// Stop stops the polling jobs, waiting for any in-flight poll to finish.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return nil
	}

	<-m.cron.Stop().Done()
	m.isRunning = false
	m.logger.Info("Monitor stopped")

	return nil
}

// IsRunning reports whether the polling jobs are active.
func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}

// NextRun returns the earliest upcoming job time, or the zero time when
// the monitor is not running.
func (m *Monitor) NextRun() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.isRunning {
		return time.Time{}
	}

	var next time.Time
	for _, jobID := range m.jobIDs {
		entry := m.cron.Entry(jobID)
		if entry.Valid() && (next.IsZero() || entry.Next.Before(next)) {
			next = entry.Next
		}
	}
	return next
}
