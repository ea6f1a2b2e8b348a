package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PaceScenario classifies the expected overall pace of a race. It is
// supplied by the upstream factor analysis, not computed here.
type PaceScenario string

const (
	PaceFast     PaceScenario = "fast"
	PaceSlow     PaceScenario = "slow"
	PaceBalanced PaceScenario = "balanced"
)

// OddsRange represents a quoted min-max odds band, as published for place
// (fuku) and wide bets.
type OddsRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// LiveOdds holds the current market odds per bet type. Single-horse markets
// are keyed by umaban, combination markets by a CombinationKey.
type LiveOdds struct {
	Tan        map[int]float64      `json:"tan"`
	Fuku       map[int]OddsRange    `json:"fuku"`
	Umaren     map[string]float64   `json:"umaren"`
	Umatan     map[string]float64   `json:"umatan"`
	Wide       map[string]OddsRange `json:"wide"`
	Sanrentan  map[string]float64   `json:"sanrentan"`
	Sanrenpuku map[string]float64   `json:"sanrenpuku"`
}

// FactorScores holds the per-horse handicapping sub-scores on a 0-100 scale
// and their weighted total.
type FactorScores struct {
	SpeedScore     float64 `json:"speed_score"`
	FormScore      float64 `json:"form_score"`
	JockeyScore    float64 `json:"jockey_score"`
	TrainerScore   float64 `json:"trainer_score"`
	PedigreeScore  float64 `json:"pedigree_score"`
	ConditionScore float64 `json:"condition_score"`
	TotalScore     float64 `json:"total_score"`
}

// HorseEntry represents a single runner within a race. Umaban is the post
// position number, unique within a race, and the primary key for every
// per-horse mapping in the system.
type HorseEntry struct {
	Umaban        int           `json:"umaban" validate:"required,gt=0"`
	Name          string        `json:"horse_name"`
	Scores        *FactorScores `json:"factor_scores,omitempty"`
	WeightKG      *float64      `json:"weight_kg,omitempty"`
	HasPedigree   bool          `json:"has_pedigree"`
	HasTraining   bool          `json:"has_training"`
	JockeyName    string        `json:"jockey_name,omitempty"`
	TrainerName   string        `json:"trainer_name,omitempty"`
	HasJockey     bool          `json:"has_jockey_profile"`
	HasTrainer    bool          `json:"has_trainer_profile"`
	HasSpeedIndex bool          `json:"has_speed_index"`
}

// RaceSnapshot is the per-race dataset assembled by the upstream collector.
// It is mutable over time: odds, weather and track condition may be revised
// between analysis passes.
type RaceSnapshot struct {
	RaceID         string        `json:"race_id" validate:"required"`
	RaceName       string        `json:"race_name"`
	VenueName      string        `json:"venue_name"`
	RaceClass      string        `json:"race_class"`
	CourseType     string        `json:"course_type"`
	DistanceMeters int           `json:"distance_meters"`
	TrackCondition string        `json:"track_condition"`
	Weather        string        `json:"weather"`
	Date           *time.Time    `json:"date,omitempty"`
	PaceScenario   PaceScenario  `json:"pace_scenario"`
	Horses         []*HorseEntry `json:"horses"`
	Odds           LiveOdds      `json:"live_odds_data"`
	HasSpeedData   bool          `json:"has_speed_figures"`
}

// FieldSize returns the number of runners.
func (r *RaceSnapshot) FieldSize() int {
	return len(r.Horses)
}

// Horse returns the entry for the given umaban, or nil.
func (r *RaceSnapshot) Horse(umaban int) *HorseEntry {
	for _, h := range r.Horses {
		if h.Umaban == umaban {
			return h
		}
	}
	return nil
}

// HorseName returns the horse name for the given umaban, falling back to a
// placeholder when the entry is unknown.
func (r *RaceSnapshot) HorseName(umaban int) string {
	if h := r.Horse(umaban); h != nil && h.Name != "" {
		return h.Name
	}
	return fmt.Sprintf("Horse #%d", umaban)
}

// Umabans returns the post numbers of all runners in card order.
func (r *RaceSnapshot) Umabans() []int {
	nums := make([]int, 0, len(r.Horses))
	for _, h := range r.Horses {
		nums = append(nums, h.Umaban)
	}
	return nums
}

// ExactaKey builds the ordered pair key "first-second".
func ExactaKey(first, second int) string {
	return fmt.Sprintf("%d-%d", first, second)
}

// QuinellaKey builds the unordered pair key with ascending umaban order.
func QuinellaKey(a, b int) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

// TrifectaKey builds the ordered triple key "first-second-third".
func TrifectaKey(first, second, third int) string {
	return fmt.Sprintf("%d-%d-%d", first, second, third)
}

// TrioKey builds the unordered triple key with ascending umaban order.
func TrioKey(a, b, c int) string {
	nums := []int{a, b, c}
	sort.Ints(nums)
	return fmt.Sprintf("%d-%d-%d", nums[0], nums[1], nums[2])
}

// SplitCombinationKey parses a combination key back into umaban values.
func SplitCombinationKey(key string) ([]int, error) {
	parts := strings.Split(key, "-")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid combination key %q: %w", key, err)
		}
		nums = append(nums, n)
	}
	return nums, nil
}
