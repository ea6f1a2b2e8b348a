package probability

import (
	"github.com/sirupsen/logrus"

	"github.com/satory074/keiba-edge/internal/models"
)

// FactorWeights scales the multiplicative likelihood adjustment each named
// factor may apply. The weights do not sum to one; each factor adjusts the
// likelihood ratio independently, bounded by its weight.
type FactorWeights struct {
	LapTime      float64
	Pedigree     float64
	TrackBias    float64
	Pace         float64
	Weather      float64
	Distance     float64
	Recovery     float64
	FactorScores float64
}

// DefaultFactorWeights returns the calibration used in production. These
// are fixed heuristic constants, not fitted parameters.
func DefaultFactorWeights() FactorWeights {
	return FactorWeights{
		LapTime:      0.15,
		Pedigree:     0.10,
		TrackBias:    0.15,
		Pace:         0.20,
		Weather:      0.10,
		Distance:     0.15,
		Recovery:     0.05,
		FactorScores: 0.10,
	}
}

// Engine blends a market prior with per-horse factor analysis into
// posterior win probabilities, then derives place and show probabilities
// from win-probability bands. It is a pure function of its inputs and holds
// no mutable state between calls.
type Engine struct {
	weights FactorWeights
	logger  *logrus.Logger
}

// NewEngine creates a Bayesian probability engine.
func NewEngine(weights FactorWeights, logger *logrus.Logger) *Engine {
	return &Engine{weights: weights, logger: logger}
}

// Posterior applies factor-derived likelihood ratios to the market prior
// and renormalizes. Horses absent from the factor analysis keep their
// prior. When the accumulated posterior mass is zero, renormalization is
// skipped and the degenerate partial state is returned as-is.
func (e *Engine) Posterior(prior map[int]float64, analysis models.FactorAnalysis, pace models.PaceScenario) map[int]float64 {
	posterior := make(map[int]float64, len(prior))
	for umaban, p := range prior {
		posterior[umaban] = p
	}

	for umaban, factors := range analysis {
		p, ok := posterior[umaban]
		if !ok || factors == nil {
			continue
		}
		ratio := e.likelihoodRatio(factors, pace)
		posterior[umaban] = p * ratio

		e.logger.WithFields(logrus.Fields{
			"umaban":           umaban,
			"prior":            p,
			"likelihood_ratio": ratio,
		}).Debug("Applied factor likelihood")
	}

	total := 0.0
	for _, p := range posterior {
		total += p
	}
	if total > 0 {
		for umaban := range posterior {
			posterior[umaban] /= total
		}
	}

	return posterior
}

// likelihoodRatio accumulates the multiplicative adjustment for one horse.
// A neutral 0-100 score of 50 leaves the ratio unchanged.
func (e *Engine) likelihoodRatio(f *models.HorseFactors, pace models.PaceScenario) float64 {
	ratio := 1.0

	if f.LapTime != nil && f.LapTime.FinishingKickScore != nil {
		ratio *= scoreAdjustment(*f.LapTime.FinishingKickScore, e.weights.LapTime)
	}
	if f.Pedigree != nil && f.Pedigree.OverallScore != nil {
		ratio *= scoreAdjustment(*f.Pedigree.OverallScore, e.weights.Pedigree)
	}
	if f.TrackBias != nil && f.TrackBias.BiasScore != nil {
		ratio *= scoreAdjustment(*f.TrackBias.BiasScore, e.weights.TrackBias)
	}
	if f.Pace != nil {
		if score := f.Pace.ScoreFor(pace); score != nil {
			ratio *= scoreAdjustment(*score, e.weights.Pace)
		}
	}
	if f.Weather != nil {
		ratio *= flagAdjustment(f.Weather.WeatherAdvantage, e.weights.Weather)
	}
	if f.Distance != nil {
		ratio *= flagAdjustment(f.Distance.DistanceAdvantage, e.weights.Distance)
	}
	if f.Recovery != nil && f.Recovery.RecoveryScore != nil {
		ratio *= scoreAdjustment(*f.Recovery.RecoveryScore, e.weights.Recovery)
	}
	if f.FactorScores != nil {
		ratio *= scoreAdjustment(f.FactorScores.TotalScore, e.weights.FactorScores)
	}

	return ratio
}

func scoreAdjustment(score, weight float64) float64 {
	return 1.0 + (score/100.0-0.5)*weight*2
}

func flagAdjustment(flag models.AdvantageFlag, weight float64) float64 {
	switch flag {
	case models.FlagAdvantage:
		return 1.0 + weight
	case models.FlagDisadvantage:
		return 1.0 - weight*0.5
	}
	return 1.0
}

// PlaceProbabilities derives place (top-2/3 depending on field size)
// probabilities from win probabilities via banded multipliers, then
// renormalizes across the field.
func (e *Engine) PlaceProbabilities(win map[int]float64) map[int]float64 {
	place := make(map[int]float64, len(win))
	for umaban, w := range win {
		switch {
		case w > 0.30:
			place[umaban] = min(0.8, w*1.5)
		case w > 0.15:
			place[umaban] = min(0.6, w*2.0)
		default:
			place[umaban] = min(0.4, w*2.5)
		}
	}
	normalize(place)
	return place
}

// ShowProbabilities derives top-3 probabilities by scaling the place
// probabilities with a further banded multiplier, then renormalizes.
func (e *Engine) ShowProbabilities(win, place map[int]float64) map[int]float64 {
	show := make(map[int]float64, len(place))
	for umaban, p := range place {
		w := win[umaban]
		switch {
		case w > 0.2:
			show[umaban] = min(0.9, p*1.3)
		case w > 0.1:
			show[umaban] = min(0.7, p*1.5)
		default:
			show[umaban] = min(0.5, p*1.8)
		}
	}
	normalize(show)
	return show
}

func normalize(probs map[int]float64) {
	total := 0.0
	for _, p := range probs {
		total += p
	}
	if total <= 0 {
		return
	}
	for umaban := range probs {
		probs[umaban] /= total
	}
}
