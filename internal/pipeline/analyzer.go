// Package pipeline runs the end-to-end analysis flow for a single race:
// load collector data, estimate probabilities, simulate outcomes, and
// produce betting recommendations.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/satory074/keiba-edge/internal/betting"
	"github.com/satory074/keiba-edge/internal/logger"
	"github.com/satory074/keiba-edge/internal/metrics"
	"github.com/satory074/keiba-edge/internal/models"
	"github.com/satory074/keiba-edge/internal/probability"
)

// RaceSource supplies race snapshots and factor analyses by race ID.
// ingest.Loader is the file-backed implementation.
type RaceSource interface {
	LoadRace(raceID string) (*models.RaceSnapshot, error)
	LoadFactorAnalysis(raceID string) (models.FactorAnalysis, error)
}

// AnalysisResult is the full output of one analysis pass over a race.
type AnalysisResult struct {
	RaceID          string                  `json:"race_id"`
	RaceName        string                  `json:"race_name,omitempty"`
	GeneratedAt     time.Time               `json:"generated_at"`
	Probabilities   *models.ProbabilitySet  `json:"probabilities"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

// HasBets reports whether the result contains at least one actionable bet.
func (r *AnalysisResult) HasBets() bool {
	for _, rec := range r.Recommendations {
		if rec.BetType != models.BetNone && rec.BetType != models.BetError {
			return true
		}
	}
	return false
}

// Analyzer orchestrates one analysis pass and caches results per race so
// repeated requests within the TTL reuse the prior computation.
type Analyzer struct {
	source    RaceSource
	engine    *probability.Engine
	simulator *probability.Simulator
	values    *betting.ValueAnalyzer
	bankroll  betting.BankrollView
	audit     *logger.AuditLogger
	cache     *cache.Cache
	outputDir string
	logger    *logrus.Logger
}

// NewAnalyzer creates an analysis pipeline. outputDir may be empty to
// disable writing recommendation files.
func NewAnalyzer(
	source RaceSource,
	engine *probability.Engine,
	simulator *probability.Simulator,
	values *betting.ValueAnalyzer,
	bankroll betting.BankrollView,
	audit *logger.AuditLogger,
	outputDir string,
	cacheTTL time.Duration,
	log *logrus.Logger,
) *Analyzer {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}
	return &Analyzer{
		source:    source,
		engine:    engine,
		simulator: simulator,
		values:    values,
		bankroll:  bankroll,
		audit:     audit,
		cache:     cache.New(cacheTTL, cacheTTL*2),
		outputDir: outputDir,
		logger:    log,
	}
}

// Analyze runs the full pipeline for one race. Results are cached by race
// ID; use Invalidate to force a fresh pass after market conditions change.
func (a *Analyzer) Analyze(ctx context.Context, raceID string) (*AnalysisResult, error) {
	if cached, found := a.cache.Get(raceID); found {
		if result, ok := cached.(*AnalysisResult); ok {
			metrics.RecordCacheHit()
			a.logger.WithField("race_id", raceID).Debug("Returning cached analysis")
			return result, nil
		}
	}

	start := time.Now()
	result, err := a.analyze(ctx, raceID)
	if err != nil {
		metrics.RecordAnalysisFailure()
		return nil, err
	}
	metrics.RecordAnalysis(time.Since(start).Seconds())

	a.cache.Set(raceID, result, cache.DefaultExpiration)
	return result, nil
}

// Invalidate drops the cached result for a race so the next Analyze call
// recomputes from current data.
func (a *Analyzer) Invalidate(raceID string) {
	a.cache.Delete(raceID)
}

func (a *Analyzer) analyze(ctx context.Context, raceID string) (*AnalysisResult, error) {
	race, err := a.source.LoadRace(raceID)
	if err != nil {
		return nil, fmt.Errorf("loading race %s: %w", raceID, err)
	}

	analysis, err := a.source.LoadFactorAnalysis(raceID)
	if err != nil {
		return nil, fmt.Errorf("loading factor analysis for %s: %w", raceID, err)
	}

	a.logger.WithFields(logrus.Fields{
		"race_id":    raceID,
		"race_name":  race.RaceName,
		"field_size": race.FieldSize(),
		"factors":    len(analysis),
	}).Info("Analyzing race")

	probs, err := a.estimate(ctx, race, analysis)
	if err != nil {
		return nil, err
	}

	recs := a.values.Analyze(race, probs, a.bankroll)
	a.logRecommendations(raceID, recs)

	result := &AnalysisResult{
		RaceID:          raceID,
		RaceName:        race.RaceName,
		GeneratedAt:     time.Now(),
		Probabilities:   probs,
		Recommendations: recs,
	}

	if a.outputDir != "" {
		if err := a.writeResult(result); err != nil {
			a.logger.WithError(err).WithField("race_id", raceID).Warn("Failed to write recommendation file")
		}
	}

	return result, nil
}

// estimate builds the full probability set: market priors adjusted by the
// factor analysis for single-horse markets, Monte Carlo simulation for
// combination markets.
func (a *Analyzer) estimate(ctx context.Context, race *models.RaceSnapshot, analysis models.FactorAnalysis) (*models.ProbabilitySet, error) {
	priors := probability.MarketPriors(race.Odds.Tan, race.Umabans())
	win := a.engine.Posterior(priors, analysis, race.PaceScenario)
	place := a.engine.PlaceProbabilities(win)
	show := a.engine.ShowProbabilities(win, place)

	simStart := time.Now()
	tally := a.simulator.Simulate(ctx, win, analysis, race.PaceScenario)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metrics.RecordSimulation(time.Since(simStart).Seconds())

	return &models.ProbabilitySet{
		Win:      win,
		Place:    place,
		Show:     show,
		Exacta:   tally.Probabilities(tally.ExactaCounts),
		Quinella: tally.Probabilities(tally.QuinellaCounts),
		Trifecta: tally.Probabilities(tally.TrifectaCounts),
		Trio:     tally.Probabilities(tally.TrioCounts),
	}, nil
}

func (a *Analyzer) logRecommendations(raceID string, recs []models.Recommendation) {
	for _, rec := range recs {
		switch rec.BetType {
		case models.BetNone:
			metrics.RecordNoBet()
			if a.audit != nil {
				a.audit.LogNoBet(raceID, rec.Threshold)
			}
		case models.BetError:
		default:
			metrics.RecordRecommendation(string(rec.BetType))
			if a.audit != nil {
				a.audit.LogRecommendation(raceID, string(rec.BetType), rec.Horses, rec.Amount, rec.Odds, rec.ExpectedValue, rec.Probability)
			}
		}
	}
}

func (a *Analyzer) writeResult(result *AnalysisResult) error {
	if err := os.MkdirAll(a.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	path := filepath.Join(a.outputDir, fmt.Sprintf("betting_recommendation_%s.json", result.RaceID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	a.logger.WithField("path", path).Debug("Wrote recommendation file")
	return nil
}
