package bankroll

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/satory074/keiba-edge/internal/models"
)

// StrategyAction is the coarse stake-direction advice derived from recent
// performance.
type StrategyAction string

const (
	ActionMaintain StrategyAction = "maintain"
	ActionIncrease StrategyAction = "increase"
	ActionDecrease StrategyAction = "decrease"
)

// StrategyAdvice is the output of RecommendStrategy.
type StrategyAdvice struct {
	Action StrategyAction `json:"action"`
	Reason string         `json:"reason"`
	// FocusBetTypes lists the bet types with demonstrated positive returns,
	// best first. Empty until enough history accumulates.
	FocusBetTypes []models.BetType `json:"focus_bet_types,omitempty"`
}

const (
	recoveryDrawdown  = 0.3
	healthyDrawdown   = 0.1
	healthyROI        = 0.05
	focusMinBets      = 5
	focusMaxTypes     = 3
	strategyMinSample = 10
)

// RecommendStrategy inspects the ledger and advises whether staking should
// tighten, loosen, or hold, and which bet types to concentrate on. Ten
// settled bets are required before any advice beyond maintain; smaller
// samples are noise.
func (l *Ledger) RecommendStrategy() StrategyAdvice {
	state := l.State()

	if state.TotalBets < strategyMinSample {
		return StrategyAdvice{
			Action: ActionMaintain,
			Reason: "insufficient betting history",
		}
	}

	advice := StrategyAdvice{Action: ActionMaintain, Reason: "performance within normal bounds"}
	switch {
	case state.Drawdown > recoveryDrawdown:
		advice.Action = ActionDecrease
		advice.Reason = "deep drawdown, reduce stakes until bankroll recovers"
	case state.Drawdown < healthyDrawdown && state.ROI > healthyROI:
		advice.Action = ActionIncrease
		advice.Reason = "positive returns with shallow drawdown"
	}

	advice.FocusBetTypes = l.profitableBetTypes()
	return advice
}

// typePerformance aggregates settlement results for one bet type.
type typePerformance struct {
	betType models.BetType
	bets    int
	roi     float64
}

// profitableBetTypes returns up to three bet types with ROI above the
// healthy threshold and a minimum sample, best ROI first.
func (l *Ledger) profitableBetTypes() []models.BetType {
	perf := l.performanceByType()

	qualified := make([]typePerformance, 0, len(perf))
	for _, p := range perf {
		if p.bets >= focusMinBets && p.roi > healthyROI {
			qualified = append(qualified, p)
		}
	}
	sort.Slice(qualified, func(i, j int) bool {
		return qualified[i].roi > qualified[j].roi
	})
	if len(qualified) > focusMaxTypes {
		qualified = qualified[:focusMaxTypes]
	}

	types := make([]models.BetType, 0, len(qualified))
	for _, p := range qualified {
		types = append(types, p.betType)
	}
	return types
}

func (l *Ledger) performanceByType() []typePerformance {
	l.mu.Lock()
	defer l.mu.Unlock()

	type agg struct {
		bets    int
		stakes  decimal.Decimal
		returns decimal.Decimal
	}
	byType := make(map[models.BetType]*agg)
	for _, r := range l.records {
		a, ok := byType[r.BetType]
		if !ok {
			a = &agg{}
			byType[r.BetType] = a
		}
		a.bets++
		a.stakes = a.stakes.Add(decimal.NewFromInt(int64(r.Amount)))
		a.returns = a.returns.Add(decimal.NewFromInt(int64(r.Payout)))
	}

	perf := make([]typePerformance, 0, len(byType))
	for betType, a := range byType {
		p := typePerformance{betType: betType, bets: a.bets}
		if a.stakes.IsPositive() {
			p.roi = a.returns.Div(a.stakes).InexactFloat64() - 1
		}
		perf = append(perf, p)
	}
	return perf
}
