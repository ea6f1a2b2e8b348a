// Package live decides when fresh market data invalidates the current
// probability model for a race. Re-running the full analysis on every poll
// would drown the pipeline; the reconciler gates recomputation on material
// changes only.
package live

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// TrackState is the going report at one point in time.
type TrackState struct {
	Condition string  `json:"condition"`
	Moisture  float64 `json:"moisture"`
}

// WeatherState is the weather observation at one point in time.
type WeatherState struct {
	Category      string  `json:"category"`
	PrecipPercent float64 `json:"precip_percent"`
	WindSpeed     float64 `json:"wind_speed"`
}

// MarketState is everything the reconciler compares between polls.
type MarketState struct {
	TanOdds      map[int]float64 `json:"tan_odds"`
	Track        TrackState      `json:"track"`
	Weather      WeatherState    `json:"weather"`
	HorseWeights map[int]float64 `json:"horse_weights"`
}

// Thresholds below which changes are treated as market noise.
const (
	maxModelAge       = 30 * time.Minute
	moistureDelta     = 2.0
	precipDelta       = 20.0
	strongWindSpeed   = 5.0
	oddsRelativeDelta = 0.15
	weightDeltaKG     = 6.0
	favoriteCount     = 3
)

// Reconciler evaluates whether a race's probability model is stale.
type Reconciler struct {
	logger *logrus.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(logger *logrus.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// NeedsRecalculation compares the previous and current market state and
// reports whether a full model rebuild is due, with the trigger reasons.
func (r *Reconciler) NeedsRecalculation(prev, curr *MarketState, lastRecalc, now time.Time) (bool, []string) {
	var reasons []string

	if age := now.Sub(lastRecalc); age > maxModelAge {
		reasons = append(reasons, fmt.Sprintf("model age %s exceeds %s", age.Round(time.Second), maxModelAge))
	}

	reasons = append(reasons, trackReasons(prev.Track, curr.Track)...)
	reasons = append(reasons, weatherReasons(prev.Weather, curr.Weather)...)
	reasons = append(reasons, oddsReasons(prev.TanOdds, curr.TanOdds)...)
	reasons = append(reasons, weightReasons(prev.HorseWeights, curr.HorseWeights)...)

	if len(reasons) > 0 {
		r.logger.WithField("reasons", reasons).Info("Model recalculation triggered")
		return true, reasons
	}
	return false, nil
}

func trackReasons(prev, curr TrackState) []string {
	var reasons []string
	if prev.Condition != curr.Condition {
		reasons = append(reasons, fmt.Sprintf("track condition changed %s to %s", prev.Condition, curr.Condition))
	}
	if math.Abs(curr.Moisture-prev.Moisture) >= moistureDelta {
		reasons = append(reasons, fmt.Sprintf("track moisture moved %.1f to %.1f", prev.Moisture, curr.Moisture))
	}
	return reasons
}

func weatherReasons(prev, curr WeatherState) []string {
	var reasons []string
	if prev.Category != curr.Category {
		reasons = append(reasons, fmt.Sprintf("weather changed %s to %s", prev.Category, curr.Category))
	}
	if math.Abs(curr.PrecipPercent-prev.PrecipPercent) >= precipDelta {
		reasons = append(reasons, fmt.Sprintf("precipitation probability moved %.0f%% to %.0f%%", prev.PrecipPercent, curr.PrecipPercent))
	}
	if prev.WindSpeed < strongWindSpeed && curr.WindSpeed >= strongWindSpeed {
		reasons = append(reasons, fmt.Sprintf("wind strengthened to %.1f m/s", curr.WindSpeed))
	}
	return reasons
}

func oddsReasons(prev, curr map[int]float64) []string {
	var reasons []string
	for umaban, before := range prev {
		after, ok := curr[umaban]
		if !ok || before <= 0 {
			continue
		}
		if math.Abs(after-before)/before >= oddsRelativeDelta {
			reasons = append(reasons, fmt.Sprintf("odds for horse %d moved %.1f to %.1f", umaban, before, after))
		}
	}
	if favoritesChanged(prev, curr) {
		reasons = append(reasons, "top favorites reordered")
	}
	return reasons
}

// favoritesChanged reports whether the identity or order of the lowest-odds
// runners differs between snapshots.
func favoritesChanged(prev, curr map[int]float64) bool {
	before := topFavorites(prev)
	after := topFavorites(curr)
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i] != after[i] {
			return true
		}
	}
	return false
}

func topFavorites(odds map[int]float64) []int {
	type entry struct {
		umaban int
		odds   float64
	}
	entries := make([]entry, 0, len(odds))
	for umaban, o := range odds {
		if o > 0 {
			entries = append(entries, entry{umaban, o})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].odds != entries[j].odds {
			return entries[i].odds < entries[j].odds
		}
		return entries[i].umaban < entries[j].umaban
	})
	n := favoriteCount
	if len(entries) < n {
		n = len(entries)
	}
	favorites := make([]int, 0, n)
	for _, e := range entries[:n] {
		favorites = append(favorites, e.umaban)
	}
	return favorites
}

func weightReasons(prev, curr map[int]float64) []string {
	var reasons []string
	for umaban, before := range prev {
		after, ok := curr[umaban]
		if !ok {
			continue
		}
		if math.Abs(after-before) > weightDeltaKG {
			reasons = append(reasons, fmt.Sprintf("horse %d body weight moved %.0fkg to %.0fkg", umaban, before, after))
		}
	}
	return reasons
}
