package models

// AdvantageFlag is a categorical aptitude signal emitted by the factor
// analysis for weather, distance and track bias.
type AdvantageFlag string

const (
	FlagAdvantage    AdvantageFlag = "advantage"
	FlagDisadvantage AdvantageFlag = "disadvantage"
	FlagNeutral      AdvantageFlag = "neutral"
)

// LapTimeAnalysis summarizes a horse's closing ability from past lap data.
type LapTimeAnalysis struct {
	FinishingKickScore *float64 `json:"finishing_kick_score,omitempty"`
}

// PedigreeAssessment summarizes pedigree fit for the race profile.
type PedigreeAssessment struct {
	OverallScore *float64 `json:"overall_score,omitempty"`
}

// TrackBiasImpact describes how the current track bias affects a horse.
type TrackBiasImpact struct {
	BiasScore     *float64      `json:"bias_score,omitempty"`
	BiasAdvantage AdvantageFlag `json:"bias_advantage,omitempty"`
}

// PaceAdaptability scores a horse against each pace scenario.
type PaceAdaptability struct {
	FastPaceScore     *float64 `json:"fast_pace_score,omitempty"`
	SlowPaceScore     *float64 `json:"slow_pace_score,omitempty"`
	BalancedPaceScore *float64 `json:"balanced_pace_score,omitempty"`
}

// ScoreFor selects the sub-score matching the race's pace scenario,
// defaulting to the balanced score.
func (p *PaceAdaptability) ScoreFor(scenario PaceScenario) *float64 {
	switch scenario {
	case PaceFast:
		if p.FastPaceScore != nil {
			return p.FastPaceScore
		}
	case PaceSlow:
		if p.SlowPaceScore != nil {
			return p.SlowPaceScore
		}
	}
	return p.BalancedPaceScore
}

// WeatherImpact carries the categorical weather aptitude flag.
type WeatherImpact struct {
	WeatherAdvantage AdvantageFlag `json:"weather_advantage,omitempty"`
}

// DistanceAptitude carries the categorical distance aptitude flag.
type DistanceAptitude struct {
	DistanceAdvantage AdvantageFlag `json:"distance_advantage,omitempty"`
}

// RecoveryPattern scores how well a horse recovers between starts.
type RecoveryPattern struct {
	RecoveryScore *float64 `json:"recovery_score,omitempty"`
}

// HorseFactors bundles the named factor sub-objects for one horse. Any
// sub-object may be nil when the upstream analysis could not produce it.
type HorseFactors struct {
	LapTime      *LapTimeAnalysis    `json:"lap_time_analysis,omitempty"`
	Pedigree     *PedigreeAssessment `json:"pedigree_assessment,omitempty"`
	TrackBias    *TrackBiasImpact    `json:"track_bias_impact,omitempty"`
	Pace         *PaceAdaptability   `json:"pace_adaptability,omitempty"`
	Weather      *WeatherImpact      `json:"weather_impact,omitempty"`
	Distance     *DistanceAptitude   `json:"distance_aptitude,omitempty"`
	Recovery     *RecoveryPattern    `json:"recovery_pattern,omitempty"`
	FactorScores *FactorScores       `json:"factor_scores,omitempty"`
}

// FactorAnalysis maps umaban to that horse's factor sub-objects.
type FactorAnalysis map[int]*HorseFactors
