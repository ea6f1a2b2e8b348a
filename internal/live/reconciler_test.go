package live

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func baseState() *MarketState {
	return &MarketState{
		TanOdds:      map[int]float64{1: 3.0, 2: 5.0, 3: 5.4, 4: 12.0},
		Track:        TrackState{Condition: "良", Moisture: 8},
		Weather:      WeatherState{Category: "晴", PrecipPercent: 10, WindSpeed: 3},
		HorseWeights: map[int]float64{1: 480, 2: 466, 3: 502, 4: 455},
	}
}

func TestNoChangeNoRecalc(t *testing.T) {
	r := NewReconciler(testLogger())
	now := time.Now()

	need, reasons := r.NeedsRecalculation(baseState(), baseState(), now.Add(-5*time.Minute), now)
	assert.False(t, need)
	assert.Empty(t, reasons)
}

func TestStaleModelForcesRecalc(t *testing.T) {
	r := NewReconciler(testLogger())
	now := time.Now()

	need, reasons := r.NeedsRecalculation(baseState(), baseState(), now.Add(-31*time.Minute), now)
	assert.True(t, need)
	assert.Len(t, reasons, 1)
}

func TestOddsMoveTriggersRecalc(t *testing.T) {
	r := NewReconciler(testLogger())
	now := time.Now()

	// 3.0 to 2.5 is a 16.7% relative move, above the 15% threshold.
	curr := baseState()
	curr.TanOdds[1] = 2.5

	need, reasons := r.NeedsRecalculation(baseState(), curr, now.Add(-time.Minute), now)
	assert.True(t, need)
	assert.NotEmpty(t, reasons)
}

func TestSmallOddsMoveIgnored(t *testing.T) {
	r := NewReconciler(testLogger())
	now := time.Now()

	// 3.0 to 2.8 is under 15% and leaves the favorite order intact.
	curr := baseState()
	curr.TanOdds[1] = 2.8

	need, _ := r.NeedsRecalculation(baseState(), curr, now.Add(-time.Minute), now)
	assert.False(t, need)
}

func TestFavoriteReorderTriggersRecalc(t *testing.T) {
	r := NewReconciler(testLogger())
	now := time.Now()

	// Horses 2 and 3 swap places inside the top three while each drifts
	// less than 15% on its own.
	curr := baseState()
	curr.TanOdds[2] = 5.6
	curr.TanOdds[3] = 5.5

	need, reasons := r.NeedsRecalculation(baseState(), curr, now.Add(-time.Minute), now)
	assert.True(t, need)
	assert.Contains(t, reasons, "top favorites reordered")
}

func TestMoistureBelowThresholdIgnored(t *testing.T) {
	r := NewReconciler(testLogger())
	now := time.Now()

	curr := baseState()
	curr.Track.Moisture = 9

	need, _ := r.NeedsRecalculation(baseState(), curr, now.Add(-time.Minute), now)
	assert.False(t, need)
}

func TestMoistureJumpTriggersRecalc(t *testing.T) {
	r := NewReconciler(testLogger())
	now := time.Now()

	curr := baseState()
	curr.Track.Moisture = 10

	need, _ := r.NeedsRecalculation(baseState(), curr, now.Add(-time.Minute), now)
	assert.True(t, need)
}

func TestTrackConditionChangeTriggersRecalc(t *testing.T) {
	r := NewReconciler(testLogger())
	now := time.Now()

	curr := baseState()
	curr.Track.Condition = "稍重"

	need, _ := r.NeedsRecalculation(baseState(), curr, now.Add(-time.Minute), now)
	assert.True(t, need)
}

func TestWeatherTriggers(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(*MarketState)
		want   bool
	}{
		{"category change", func(m *MarketState) { m.Weather.Category = "雨" }, true},
		{"precip jump", func(m *MarketState) { m.Weather.PrecipPercent = 40 }, true},
		{"precip drift", func(m *MarketState) { m.Weather.PrecipPercent = 25 }, false},
		{"wind crosses threshold", func(m *MarketState) { m.Weather.WindSpeed = 6 }, true},
		{"wind stays weak", func(m *MarketState) { m.Weather.WindSpeed = 4.5 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler(testLogger())
			curr := baseState()
			tt.mutate(curr)
			need, _ := r.NeedsRecalculation(baseState(), curr, now.Add(-time.Minute), now)
			assert.Equal(t, tt.want, need)
		})
	}
}

func TestWindAlreadyStrongDoesNotRetrigger(t *testing.T) {
	r := NewReconciler(testLogger())
	now := time.Now()

	prev := baseState()
	prev.Weather.WindSpeed = 7
	curr := baseState()
	curr.Weather.WindSpeed = 9

	need, _ := r.NeedsRecalculation(prev, curr, now.Add(-time.Minute), now)
	assert.False(t, need)
}

func TestWeightChangeTriggersRecalc(t *testing.T) {
	r := NewReconciler(testLogger())
	now := time.Now()

	curr := baseState()
	curr.HorseWeights[3] = 510 // +8kg

	need, _ := r.NeedsRecalculation(baseState(), curr, now.Add(-time.Minute), now)
	assert.True(t, need)

	small := baseState()
	small.HorseWeights[3] = 507 // +5kg
	need, _ = r.NeedsRecalculation(baseState(), small, now.Add(-time.Minute), now)
	assert.False(t, need)
}
