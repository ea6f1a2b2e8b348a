// Package betting turns probability estimates and market odds into stake
// recommendations: expected-value screening per bet type, Kelly-derived
// sizing, drawdown throttling and portfolio-level stake scaling.
package betting

import (
	"math"

	"github.com/sirupsen/logrus"
)

const (
	// MinStake is the smallest acceptable bet, one betting unit.
	MinStake = 100
	// stakeIncrement rounds every stake to ticket-purchasable units.
	stakeIncrement = 100

	defaultMaxRiskFraction = 0.05
	defaultConfidence      = 0.8
)

// Sizer converts a value bet's edge into a stake via a quarter-Kelly rule
// with a hard per-race risk cap.
type Sizer struct {
	maxRiskFraction float64
	logger          *logrus.Logger
}

// NewSizer creates a bet sizer. A non-positive maxRiskFraction falls back
// to the default 5% of bankroll per race.
func NewSizer(maxRiskFraction float64, logger *logrus.Logger) *Sizer {
	if maxRiskFraction <= 0 {
		maxRiskFraction = defaultMaxRiskFraction
	}
	return &Sizer{maxRiskFraction: maxRiskFraction, logger: logger}
}

// Size computes the stake for a bet with the given win probability and
// decimal odds. Invalid inputs (no edge, odds at or below evens,
// non-positive probability) yield the minimum stake rather than an error;
// upstream scraping is unreliable enough that a fail-safe floor beats a
// hard failure.
func (s *Sizer) Size(probability, odds, bankroll, confidence float64) int {
	if confidence <= 0 {
		confidence = defaultConfidence
	}

	if probability <= 0 || odds <= 1.0 || probability*odds <= 1.0 {
		s.logger.WithFields(logrus.Fields{
			"probability": probability,
			"odds":        odds,
		}).Warn("Invalid Kelly inputs, returning minimum stake")
		return MinStake
	}

	netOdds := odds - 1.0
	kelly := (netOdds*probability - (1 - probability)) / netOdds
	kelly *= confidence

	// Quarter Kelly for variance reduction.
	conservative := kelly / 4
	if conservative > s.maxRiskFraction {
		conservative = s.maxRiskFraction
	}

	stake := roundUpToIncrement(bankroll * conservative)
	if stake < MinStake {
		stake = MinStake
	}

	s.logger.WithFields(logrus.Fields{
		"kelly":              kelly,
		"conservative_kelly": conservative,
		"stake":              stake,
	}).Debug("Position size calculated")

	return stake
}

// AdjustForDrawdown scales a stake down when the bankroll is in a deep
// drawdown. Below 20% drawdown the stake passes through unchanged; beyond
// that a linear reduction applies, floored at 25% of the original stake.
func (s *Sizer) AdjustForDrawdown(stake int, drawdown float64) int {
	if drawdown <= 0.2 {
		return stake
	}

	factor := 1.0 - (drawdown-0.2)*2
	if factor < 0.25 {
		factor = 0.25
	}

	adjusted := roundUpToIncrement(float64(stake) * factor)
	s.logger.WithFields(logrus.Fields{
		"drawdown": drawdown,
		"stake":    stake,
		"adjusted": adjusted,
	}).Info("Applied drawdown protection")

	return adjusted
}

func roundUpToIncrement(amount float64) int {
	return int(math.Ceil(amount/stakeIncrement)) * stakeIncrement
}
