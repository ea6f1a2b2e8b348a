package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satory074/keiba-edge/internal/betting"
	"github.com/satory074/keiba-edge/internal/models"
	"github.com/satory074/keiba-edge/internal/probability"
)

type fakeSource struct {
	race     *models.RaceSnapshot
	analysis models.FactorAnalysis
	raceErr  error
	loads    int
}

func (f *fakeSource) LoadRace(raceID string) (*models.RaceSnapshot, error) {
	f.loads++
	if f.raceErr != nil {
		return nil, f.raceErr
	}
	return f.race, nil
}

func (f *fakeSource) LoadFactorAnalysis(raceID string) (models.FactorAnalysis, error) {
	return f.analysis, nil
}

type fakeBankroll struct {
	current  float64
	drawdown float64
}

func (f *fakeBankroll) Current() float64         { return f.current }
func (f *fakeBankroll) CurrentDrawdown() float64 { return f.drawdown }

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func floatPtr(v float64) *float64 { return &v }

func evenFieldRace() *models.RaceSnapshot {
	return &models.RaceSnapshot{
		RaceID:       "202606010811",
		RaceName:     "テスト記念",
		PaceScenario: models.PaceBalanced,
		Horses: []*models.HorseEntry{
			{Umaban: 1, Name: "アオイホマレ"},
			{Umaban: 2, Name: "キタノサクラ"},
			{Umaban: 3, Name: "ミナミノカゼ"},
		},
		Odds: models.LiveOdds{
			Tan: map[int]float64{1: 4.0, 2: 4.0, 3: 4.0},
		},
	}
}

func newTestAnalyzer(t *testing.T, source RaceSource, outputDir string) *Analyzer {
	t.Helper()
	log := testLogger()
	engine := probability.NewEngine(probability.DefaultFactorWeights(), log)
	simulator := probability.NewSimulator(probability.SimulatorConfig{
		Iterations: 2000,
		Workers:    2,
		Seed:       42,
	}, log)
	sizer := betting.NewSizer(0.05, log)
	values := betting.NewValueAnalyzer(betting.DefaultAnalyzerConfig(), sizer, log)
	bankroll := &fakeBankroll{current: 100000}
	return NewAnalyzer(source, engine, simulator, values, bankroll, nil, outputDir, 10*time.Minute, log)
}

func TestAnalyzeEfficientMarketProducesNoBet(t *testing.T) {
	// Three horses at fair odds leave no expected value anywhere.
	source := &fakeSource{race: evenFieldRace(), analysis: models.FactorAnalysis{}}
	analyzer := newTestAnalyzer(t, source, "")

	result, err := analyzer.Analyze(context.Background(), "202606010811")
	require.NoError(t, err)

	assert.False(t, result.HasBets())
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, models.BetNone, result.Recommendations[0].BetType)
	assert.InDelta(t, 1.0/3.0, result.Probabilities.Win[1], 0.001)
}

func TestAnalyzeFactorEdgeProducesValueBet(t *testing.T) {
	// A strong closing-kick score for horse 1 lifts its posterior above the
	// market price, creating a qualifying win bet.
	race := evenFieldRace()
	source := &fakeSource{
		race: race,
		analysis: models.FactorAnalysis{
			1: {LapTime: &models.LapTimeAnalysis{FinishingKickScore: floatPtr(100)}},
		},
	}
	analyzer := newTestAnalyzer(t, source, "")

	result, err := analyzer.Analyze(context.Background(), race.RaceID)
	require.NoError(t, err)

	require.True(t, result.HasBets())
	rec := result.Recommendations[0]
	assert.Equal(t, models.BetTan, rec.BetType)
	assert.Equal(t, []int{1}, rec.Horses)
	// Posterior: 1.15/3.15 vs 1/3.15 for the others.
	assert.InDelta(t, 1.15/3.15, rec.Probability, 0.001)
	assert.Greater(t, rec.ExpectedValue, 1.375)
	assert.Greater(t, rec.Amount, 0)
}

func TestAnalyzeWithoutFactorAnalysisUsesPriorsOnly(t *testing.T) {
	race := evenFieldRace()
	race.Odds.Tan = map[int]float64{1: 1.5, 2: 6.0, 3: 9.0}
	source := &fakeSource{race: race, analysis: models.FactorAnalysis{}}
	analyzer := newTestAnalyzer(t, source, "")

	result, err := analyzer.Analyze(context.Background(), race.RaceID)
	require.NoError(t, err)

	total := 1.0/1.5 + 1.0/6.0 + 1.0/9.0
	assert.InDelta(t, (1.0/1.5)/total, result.Probabilities.Win[1], 0.001)
	assert.NotEmpty(t, result.Probabilities.Quinella)
	assert.NotEmpty(t, result.Probabilities.Trio)
}

func TestAnalyzeCachesResult(t *testing.T) {
	source := &fakeSource{race: evenFieldRace(), analysis: models.FactorAnalysis{}}
	analyzer := newTestAnalyzer(t, source, "")

	first, err := analyzer.Analyze(context.Background(), "202606010811")
	require.NoError(t, err)
	second, err := analyzer.Analyze(context.Background(), "202606010811")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, source.loads)

	analyzer.Invalidate("202606010811")
	_, err = analyzer.Analyze(context.Background(), "202606010811")
	require.NoError(t, err)
	assert.Equal(t, 2, source.loads)
}

func TestAnalyzeLoadErrorIsReturned(t *testing.T) {
	source := &fakeSource{raceErr: models.ErrNoRaceData}
	analyzer := newTestAnalyzer(t, source, "")

	_, err := analyzer.Analyze(context.Background(), "202606010811")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNoRaceData)
}

func TestAnalyzeWritesRecommendationFile(t *testing.T) {
	dir := t.TempDir()
	source := &fakeSource{race: evenFieldRace(), analysis: models.FactorAnalysis{}}
	analyzer := newTestAnalyzer(t, source, dir)

	result, err := analyzer.Analyze(context.Background(), "202606010811")
	require.NoError(t, err)

	path := filepath.Join(dir, "betting_recommendation_202606010811.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var written AnalysisResult
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, result.RaceID, written.RaceID)
	assert.Len(t, written.Recommendations, len(result.Recommendations))
}
