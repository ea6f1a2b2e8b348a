package betting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satory074/keiba-edge/internal/models"
)

type fakeBankroll struct {
	balance  float64
	drawdown float64
}

func (f *fakeBankroll) Current() float64         { return f.balance }
func (f *fakeBankroll) CurrentDrawdown() float64 { return f.drawdown }

func newTestAnalyzer() *ValueAnalyzer {
	logger := testLogger()
	return NewValueAnalyzer(DefaultAnalyzerConfig(), NewSizer(defaultMaxRiskFraction, logger), logger)
}

func snapshotWithOdds(odds models.LiveOdds) *models.RaceSnapshot {
	return &models.RaceSnapshot{
		RaceID: "202606010811",
		Horses: []*models.HorseEntry{
			{Umaban: 1, Name: "アルファ"},
			{Umaban: 2, Name: "ベータ"},
			{Umaban: 3, Name: "ガンマ"},
		},
		Odds: odds,
	}
}

func TestAnalyzeTanValueBet(t *testing.T) {
	analyzer := newTestAnalyzer()

	race := snapshotWithOdds(models.LiveOdds{
		Tan: map[int]float64{1: 5.0, 2: 3.0, 3: 3.0},
	})
	probs := &models.ProbabilitySet{
		// Horse 1 EV = 0.30*5.0 = 1.50, above the 1.375 tan cutoff.
		Win: map[int]float64{1: 0.30, 2: 0.40, 3: 0.30},
	}

	recs := analyzer.Analyze(race, probs, &fakeBankroll{balance: 100000})
	require.Len(t, recs, 1)
	assert.Equal(t, models.BetTan, recs[0].BetType)
	assert.Equal(t, []int{1}, recs[0].Horses)
	assert.Equal(t, []string{"アルファ"}, recs[0].HorseNames)
	assert.InDelta(t, 1.50, recs[0].ExpectedValue, 1e-9)
	assert.GreaterOrEqual(t, recs[0].Amount, MinStake)
}

func TestAnalyzeThresholdIsStrict(t *testing.T) {
	analyzer := newTestAnalyzer()

	// EV lands exactly on the qualification cutoff 1.25 * 1.1 = 1.375 and
	// must be rejected.
	race := snapshotWithOdds(models.LiveOdds{
		Tan: map[int]float64{1: 5.5},
	})
	probs := &models.ProbabilitySet{
		Win: map[int]float64{1: 0.25},
	}

	recs := analyzer.Analyze(race, probs, &fakeBankroll{balance: 100000})
	require.Len(t, recs, 1)
	assert.Equal(t, models.BetNone, recs[0].BetType)
}

func TestAnalyzeNoBetEntry(t *testing.T) {
	analyzer := newTestAnalyzer()

	race := snapshotWithOdds(models.LiveOdds{
		Tan: map[int]float64{1: 2.0, 2: 3.0, 3: 4.0},
	})
	probs := &models.ProbabilitySet{
		Win: map[int]float64{1: 0.40, 2: 0.35, 3: 0.25},
	}

	recs := analyzer.Analyze(race, probs, &fakeBankroll{balance: 100000})
	require.Len(t, recs, 1)
	assert.Equal(t, models.BetNone, recs[0].BetType)
	assert.Equal(t, 0, recs[0].Amount)
	assert.NotEmpty(t, recs[0].Reason)
	assert.InDelta(t, 1.1, recs[0].Threshold, 1e-9)
}

func TestAnalyzeQuinellaFallbackApproximation(t *testing.T) {
	analyzer := newTestAnalyzer()

	race := snapshotWithOdds(models.LiveOdds{
		Umaren: map[string]float64{models.QuinellaKey(1, 2): 15.0},
	})
	// No simulated quinella probability: the either-order approximation
	// 2 * 0.25 * 0.20 = 0.10 applies, EV = 1.50 > 1.29 * 1.1.
	probs := &models.ProbabilitySet{
		Win:      map[int]float64{1: 0.25, 2: 0.20, 3: 0.55},
		Quinella: map[string]float64{},
	}

	recs := analyzer.Analyze(race, probs, &fakeBankroll{balance: 100000})
	require.Len(t, recs, 1)
	assert.Equal(t, models.BetUmaren, recs[0].BetType)
	assert.InDelta(t, 0.10, recs[0].Probability, 1e-9)
	assert.InDelta(t, 1.50, recs[0].ExpectedValue, 1e-9)
}

func TestAnalyzeSimulatedQuinellaPreferred(t *testing.T) {
	analyzer := newTestAnalyzer()

	key := models.QuinellaKey(1, 2)
	race := snapshotWithOdds(models.LiveOdds{
		Umaren: map[string]float64{key: 10.0},
	})
	probs := &models.ProbabilitySet{
		Win:      map[int]float64{1: 0.25, 2: 0.20, 3: 0.55},
		Quinella: map[string]float64{key: 0.18},
	}

	recs := analyzer.Analyze(race, probs, &fakeBankroll{balance: 100000})
	require.Len(t, recs, 1)
	assert.InDelta(t, 0.18, recs[0].Probability, 1e-9)
	assert.InDelta(t, 1.80, recs[0].ExpectedValue, 1e-9)
}

func TestAnalyzeFukuUsesMinOdds(t *testing.T) {
	analyzer := newTestAnalyzer()

	race := snapshotWithOdds(models.LiveOdds{
		Fuku: map[int]models.OddsRange{1: {Min: 2.5, Max: 4.0}},
	})
	probs := &models.ProbabilitySet{
		Place: map[int]float64{1: 0.60},
	}

	recs := analyzer.Analyze(race, probs, &fakeBankroll{balance: 100000})
	require.Len(t, recs, 1)
	assert.Equal(t, models.BetFuku, recs[0].BetType)
	assert.Equal(t, 2.5, recs[0].Odds)
	assert.InDelta(t, 1.50, recs[0].ExpectedValue, 1e-9)
}

func TestAnalyzeWideFromTrioProbabilities(t *testing.T) {
	analyzer := newTestAnalyzer()

	race := snapshotWithOdds(models.LiveOdds{
		Wide: map[string]models.OddsRange{models.QuinellaKey(1, 2): {Min: 6.0, Max: 8.0}},
	})
	probs := &models.ProbabilitySet{
		Trio: map[string]float64{
			models.TrioKey(1, 2, 3): 0.20,
			models.TrioKey(1, 2, 4): 0.10,
			models.TrioKey(1, 3, 4): 0.15,
		},
	}

	recs := analyzer.Analyze(race, probs, &fakeBankroll{balance: 100000})
	require.Len(t, recs, 1)
	assert.Equal(t, models.BetWide, recs[0].BetType)
	// Triples containing both 1 and 2 sum to 0.30.
	assert.InDelta(t, 0.30, recs[0].Probability, 1e-9)
	assert.InDelta(t, 1.80, recs[0].ExpectedValue, 1e-9)
}

func TestAnalyzeRankedByExpectedValue(t *testing.T) {
	analyzer := newTestAnalyzer()

	race := snapshotWithOdds(models.LiveOdds{
		Tan:    map[int]float64{1: 5.0},
		Umatan: map[string]float64{models.ExactaKey(1, 2): 20.0},
	})
	probs := &models.ProbabilitySet{
		Win:    map[int]float64{1: 0.30},
		Exacta: map[string]float64{models.ExactaKey(1, 2): 0.09},
	}

	recs := analyzer.Analyze(race, probs, &fakeBankroll{balance: 100000})
	require.Len(t, recs, 2)
	assert.Equal(t, models.BetUmatan, recs[0].BetType)
	assert.InDelta(t, 1.80, recs[0].ExpectedValue, 1e-9)
	assert.Equal(t, models.BetTan, recs[1].BetType)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].ExpectedValue, recs[i].ExpectedValue)
	}
}

func TestAnalyzePortfolioCap(t *testing.T) {
	logger := testLogger()
	cfg := DefaultAnalyzerConfig()
	cfg.MaxPortfolio = 5000
	analyzer := NewValueAnalyzer(cfg, NewSizer(defaultMaxRiskFraction, logger), logger)

	race := snapshotWithOdds(models.LiveOdds{
		Tan:    map[int]float64{1: 5.0},
		Umatan: map[string]float64{models.ExactaKey(1, 2): 20.0},
	})
	probs := &models.ProbabilitySet{
		Win:    map[int]float64{1: 0.30},
		Exacta: map[string]float64{models.ExactaKey(1, 2): 0.09},
	}

	// A large bankroll makes both raw stakes hit the 5% risk cap, well
	// above the portfolio limit.
	recs := analyzer.Analyze(race, probs, &fakeBankroll{balance: 1000000})
	require.Len(t, recs, 2)

	total := 0
	for _, r := range recs {
		assert.True(t, r.PortfolioAdjusted)
		assert.Equal(t, 0, r.Amount%stakeIncrement)
		total += r.Amount
	}
	assert.LessOrEqual(t, total, cfg.MaxPortfolio)
}

func TestAnalyzePortfolioCapIsHardAfterRounding(t *testing.T) {
	logger := testLogger()
	cfg := DefaultAnalyzerConfig()
	// Raw stakes of 8500 (umatan) and 25000 (tan) scale to 1243 and 3657,
	// which round up to 1300 and 3700 and would sum to 5000 without the
	// trimming pass.
	cfg.MaxPortfolio = 4900
	analyzer := NewValueAnalyzer(cfg, NewSizer(defaultMaxRiskFraction, logger), logger)

	race := snapshotWithOdds(models.LiveOdds{
		Tan:    map[int]float64{1: 5.0},
		Umatan: map[string]float64{models.ExactaKey(1, 2): 20.0},
	})
	probs := &models.ProbabilitySet{
		Win:    map[int]float64{1: 0.30},
		Exacta: map[string]float64{models.ExactaKey(1, 2): 0.09},
	}

	recs := analyzer.Analyze(race, probs, &fakeBankroll{balance: 1000000})
	require.Len(t, recs, 2)

	total := recs[0].Amount + recs[1].Amount
	assert.LessOrEqual(t, total, cfg.MaxPortfolio)
	// The lower-EV entry absorbs the trim.
	assert.Equal(t, models.BetUmatan, recs[0].BetType)
	assert.Equal(t, 1300, recs[0].Amount)
	assert.Equal(t, 3600, recs[1].Amount)
	assert.True(t, recs[0].PortfolioAdjusted)
	assert.True(t, recs[1].PortfolioAdjusted)
}

func TestAnalyzeDrawdownReducesStake(t *testing.T) {
	analyzer := newTestAnalyzer()

	race := snapshotWithOdds(models.LiveOdds{
		Tan: map[int]float64{1: 5.0},
	})
	probs := &models.ProbabilitySet{
		Win: map[int]float64{1: 0.30},
	}

	calm := analyzer.Analyze(race, probs, &fakeBankroll{balance: 100000})
	stressed := analyzer.Analyze(race, probs, &fakeBankroll{balance: 100000, drawdown: 0.35})
	require.Len(t, calm, 1)
	require.Len(t, stressed, 1)
	assert.Less(t, stressed[0].Amount, calm[0].Amount)
}
