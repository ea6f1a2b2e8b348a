package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/satory074/keiba-edge/internal/models"
)

var dateLayouts = []string{"2006-01-02", "2006/01/02", "2006年01月02日"}

// DecodeRaceSnapshot parses one race_data JSON document into a snapshot.
func DecodeRaceSnapshot(data []byte) (*models.RaceSnapshot, error) {
	var raw rawRaceData
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode race data: %w", err)
	}
	if raw.RaceID == "" {
		return nil, models.ErrInvalidRaceID
	}

	snapshot := &models.RaceSnapshot{
		RaceID:         raw.RaceID,
		RaceName:       raw.RaceName,
		VenueName:      raw.VenueName,
		RaceClass:      raw.RaceClass,
		CourseType:     raw.CourseType,
		TrackCondition: raw.TrackCondition,
		Weather:        raw.Weather,
		PaceScenario:   models.PaceBalanced,
		HasSpeedData:   len(raw.SpeedFigures) > 0 && string(raw.SpeedFigures) != "null",
	}

	if distance, ok := raw.DistanceMeters.Int(); ok {
		snapshot.DistanceMeters = distance
	}
	if raw.RaceAnalysis != nil {
		switch raw.RaceAnalysis.PaceScenario {
		case string(models.PaceFast):
			snapshot.PaceScenario = models.PaceFast
		case string(models.PaceSlow):
			snapshot.PaceScenario = models.PaceSlow
		}
	}
	if date, ok := parseDate(raw.Date); ok {
		snapshot.Date = &date
	}

	for _, rawHorse := range raw.Horses {
		horse, err := coerceHorse(rawHorse)
		if err != nil {
			return nil, err
		}
		snapshot.Horses = append(snapshot.Horses, horse)
	}

	if raw.LiveOdds != nil {
		snapshot.Odds = coerceOdds(raw.LiveOdds)
	}

	return snapshot, nil
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func coerceHorse(raw rawHorse) (*models.HorseEntry, error) {
	umaban, ok := raw.Umaban.Int()
	if !ok || umaban <= 0 {
		return nil, fmt.Errorf("horse %q: missing or invalid umaban", raw.HorseName)
	}

	_, hasSpeedIndex := raw.SpeedIndex.Float64()
	horse := &models.HorseEntry{
		Umaban:        umaban,
		Name:          raw.HorseName,
		JockeyName:    raw.JockeyName,
		TrainerName:   raw.TrainerName,
		HasPedigree:   presentObject(raw.PedigreeData),
		HasTraining:   presentObject(raw.TrainingData),
		HasJockey:     presentObject(raw.JockeyProfile),
		HasTrainer:    presentObject(raw.TrainerProfile),
		HasSpeedIndex: hasSpeedIndex,
	}
	if weight, okWeight := raw.WeightKG.Float64(); okWeight && weight > 0 {
		horse.WeightKG = &weight
	}
	if raw.FactorScores != nil {
		horse.Scores = coerceScores(raw.FactorScores)
	}
	return horse, nil
}

func presentObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null" && trimmed != "{}" && trimmed != "[]"
}

func coerceScores(raw *rawScores) *models.FactorScores {
	scores := &models.FactorScores{}
	assign := func(dst *float64, src flexNumber) {
		if v, ok := src.Float64(); ok {
			*dst = v
		}
	}
	assign(&scores.SpeedScore, raw.SpeedScore)
	assign(&scores.FormScore, raw.FormScore)
	assign(&scores.JockeyScore, raw.JockeyScore)
	assign(&scores.TrainerScore, raw.TrainerScore)
	assign(&scores.PedigreeScore, raw.PedigreeScore)
	assign(&scores.ConditionScore, raw.ConditionScore)
	assign(&scores.TotalScore, raw.TotalScore)
	return scores
}

// coerceOdds converts string odds maps into numeric form, dropping entries
// that fail to parse. Scrapes routinely contain placeholder dashes for
// suspended runners.
func coerceOdds(raw *rawLiveOdds) models.LiveOdds {
	odds := models.LiveOdds{
		Tan:        make(map[int]float64),
		Fuku:       make(map[int]models.OddsRange),
		Umaren:     make(map[string]float64),
		Umatan:     make(map[string]float64),
		Wide:       make(map[string]models.OddsRange),
		Sanrentan:  make(map[string]float64),
		Sanrenpuku: make(map[string]float64),
	}

	for key, value := range raw.Tan {
		umaban, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if parsed, ok := parseOdds(value); ok {
			odds.Tan[umaban] = parsed
		}
	}
	for key, value := range raw.Fuku {
		umaban, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if rng, ok := parseOddsRange(value); ok {
			odds.Fuku[umaban] = rng
		}
	}
	coerceComboOdds(raw.Umaren, odds.Umaren)
	coerceComboOdds(raw.Umatan, odds.Umatan)
	coerceComboOdds(raw.Sanrentan, odds.Sanrentan)
	coerceComboOdds(raw.Sanrenpuku, odds.Sanrenpuku)
	for key, value := range raw.Wide {
		combo, ok := normalizeComboKey(key)
		if !ok {
			continue
		}
		if rng, okRange := parseOddsRange(value); okRange {
			odds.Wide[combo] = rng
		}
	}
	return odds
}

func coerceComboOdds(raw map[string]string, out map[string]float64) {
	for key, value := range raw {
		combo, ok := normalizeComboKey(key)
		if !ok {
			continue
		}
		if parsed, okOdds := parseOdds(value); okOdds {
			out[combo] = parsed
		}
	}
}

// normalizeComboKey validates that every segment of a combination key is a
// positive integer and strips leading zeros.
func normalizeComboKey(key string) (string, bool) {
	parts := strings.Split(key, "-")
	if len(parts) < 2 || len(parts) > 3 {
		return "", false
	}
	nums := make([]string, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return "", false
		}
		nums = append(nums, strconv.Itoa(n))
	}
	return strings.Join(nums, "-"), true
}

func parseOdds(value string) (float64, bool) {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}

// parseOddsRange parses "low-high". A bare single value is treated as a
// degenerate range.
func parseOddsRange(value string) (models.OddsRange, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), "-", 2)
	low, ok := parseOdds(parts[0])
	if !ok {
		return models.OddsRange{}, false
	}
	high := low
	if len(parts) == 2 {
		if parsed, okHigh := parseOdds(parts[1]); okHigh {
			high = parsed
		}
	}
	return models.OddsRange{Min: low, Max: high}, true
}

// DecodeFactorAnalysis parses one factor_analysis JSON document. Entries
// with non-numeric umaban keys are dropped.
func DecodeFactorAnalysis(data []byte) (models.FactorAnalysis, error) {
	var raw map[string]*models.HorseFactors
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode factor analysis: %w", err)
	}

	analysis := make(models.FactorAnalysis, len(raw))
	for key, factors := range raw {
		umaban, err := strconv.Atoi(key)
		if err != nil || factors == nil {
			continue
		}
		analysis[umaban] = factors
	}
	return analysis, nil
}
