// Package ingest decodes the collector's raw JSON exports and coerces them
// into domain models. The collector publishes everything as strings, so all
// numeric coercion happens here and nowhere else.
package ingest

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// flexNumber decodes a JSON number whether the collector quoted it or not.
// Empty strings and placeholder dashes decode to the unset state.
type flexNumber struct {
	value float64
	set   bool
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	parsed, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		// Tolerate scraper placeholders like "---".
		return nil
	}
	f.value = parsed
	f.set = true
	return nil
}

// Float64 returns the parsed value and whether one was present.
func (f flexNumber) Float64() (float64, bool) {
	return f.value, f.set
}

// Int returns the parsed value truncated to int and whether one was present.
func (f flexNumber) Int() (int, bool) {
	return int(f.value), f.set
}

// rawRaceData mirrors race_data_<race_id>.json as the collector writes it.
// Umaban keys arrive as JSON strings and odds as quoted decimals.
type rawRaceData struct {
	RaceID         string          `json:"race_id"`
	RaceName       string          `json:"race_name"`
	VenueName      string          `json:"venue_name"`
	RaceClass      string          `json:"race_class"`
	CourseType     string          `json:"course_type"`
	DistanceMeters flexNumber      `json:"distance_meters"`
	TrackCondition string          `json:"track_condition"`
	Weather        string          `json:"weather"`
	Date           string          `json:"date"`
	Horses         []rawHorse      `json:"horses"`
	LiveOdds       *rawLiveOdds    `json:"live_odds_data"`
	RaceAnalysis   *rawPaceContext `json:"race_analysis"`
	SpeedFigures   json.RawMessage `json:"speed_figures"`
}

type rawPaceContext struct {
	PaceScenario string `json:"pace_scenario"`
}

type rawHorse struct {
	Umaban         flexNumber      `json:"umaban"`
	HorseName      string          `json:"horse_name"`
	WeightKG       flexNumber      `json:"weight_kg"`
	FactorScores   *rawScores      `json:"factor_scores"`
	PedigreeData   json.RawMessage `json:"pedigree_data"`
	TrainingData   json.RawMessage `json:"training_data"`
	JockeyName     string          `json:"jockey_name"`
	TrainerName    string          `json:"trainer_name"`
	JockeyProfile  json.RawMessage `json:"jockey_profile"`
	TrainerProfile json.RawMessage `json:"trainer_profile"`
	SpeedIndex     flexNumber      `json:"speed_index"`
}

type rawScores struct {
	SpeedScore     flexNumber `json:"speed_score"`
	FormScore      flexNumber `json:"form_score"`
	JockeyScore    flexNumber `json:"jockey_score"`
	TrainerScore   flexNumber `json:"trainer_score"`
	PedigreeScore  flexNumber `json:"pedigree_score"`
	ConditionScore flexNumber `json:"condition_score"`
	TotalScore     flexNumber `json:"total_score"`
}

// rawLiveOdds holds string-valued odds keyed by string umaban or
// combination key. Fuku and wide odds arrive as "low-high" ranges.
type rawLiveOdds struct {
	Tan        map[string]string `json:"tan_odds"`
	Fuku       map[string]string `json:"fuku_odds"`
	Umaren     map[string]string `json:"umaren_odds"`
	Umatan     map[string]string `json:"umatan_odds"`
	Wide       map[string]string `json:"wide_odds"`
	Sanrentan  map[string]string `json:"sanrentan_odds"`
	Sanrenpuku map[string]string `json:"sanrenpuku_odds"`
}

// Factor analysis JSON matches the models.HorseFactors shape directly; only
// the string umaban keys need coercion, handled in DecodeFactorAnalysis.
