package betting

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/satory074/keiba-edge/internal/models"
)

// BankrollView is the read-only slice of ledger state the analyzer needs
// for sizing.
type BankrollView interface {
	Current() float64
	CurrentDrawdown() float64
}

// AnalyzerConfig holds the value-bet qualification and portfolio limits.
type AnalyzerConfig struct {
	// MinExpectedValue is the margin a bet must clear above its bet type's
	// breakeven threshold. A candidate qualifies only on strict
	// EV > breakeven * MinExpectedValue.
	MinExpectedValue float64
	// MaxPortfolio caps the summed stake across all recommendations for
	// one race.
	MaxPortfolio int
	// Confidence scales the Kelly fraction during sizing.
	Confidence float64
}

// DefaultAnalyzerConfig returns the production qualification limits.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		MinExpectedValue: 1.1,
		MaxPortfolio:     20000,
		Confidence:       defaultConfidence,
	}
}

// ValueAnalyzer screens every bet type for positive expected value against
// the live odds and emits a ranked list of stake recommendations.
type ValueAnalyzer struct {
	cfg    AnalyzerConfig
	sizer  *Sizer
	logger *logrus.Logger
}

// NewValueAnalyzer creates a value analyzer.
func NewValueAnalyzer(cfg AnalyzerConfig, sizer *Sizer, logger *logrus.Logger) *ValueAnalyzer {
	if cfg.MinExpectedValue <= 0 {
		cfg.MinExpectedValue = 1.1
	}
	if cfg.MaxPortfolio <= 0 {
		cfg.MaxPortfolio = 20000
	}
	if cfg.Confidence <= 0 {
		cfg.Confidence = defaultConfidence
	}
	return &ValueAnalyzer{cfg: cfg, sizer: sizer, logger: logger}
}

// candidate is the best qualifying selection within one bet type.
type candidate struct {
	betType     models.BetType
	horses      []int
	odds        float64
	probability float64
	ev          float64
}

// Analyze computes expected values for every priced selection, keeps the
// best qualifying selection per bet type, and returns the qualifying bet
// types ranked by expected value with Kelly-sized stakes. When nothing
// qualifies, a single structured no-bet entry is returned.
func (a *ValueAnalyzer) Analyze(race *models.RaceSnapshot, probs *models.ProbabilitySet, bankroll BankrollView) []models.Recommendation {
	a.logger.WithFields(logrus.Fields{
		"race_id":   race.RaceID,
		"race_name": race.RaceName,
	}).Info("Analyzing bet types for value opportunities")

	candidates := []*candidate{
		a.bestTan(race, probs),
		a.bestFuku(race, probs),
		a.bestUmaren(race, probs),
		a.bestUmatan(race, probs),
		a.bestWide(race, probs),
		a.bestSanrentan(race, probs),
		a.bestSanrenpuku(race, probs),
	}

	var recs []models.Recommendation
	for _, c := range candidates {
		if c == nil {
			continue
		}
		recs = append(recs, a.recommend(race, c, bankroll))
	}

	if len(recs) == 0 {
		a.logger.Info("No value bets found above threshold")
		return []models.Recommendation{{
			BetType:   models.BetNone,
			Reason:    "no value bets found with expected value above threshold",
			Threshold: a.cfg.MinExpectedValue,
		}}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ExpectedValue > recs[j].ExpectedValue
	})

	return a.applyPortfolioCap(recs)
}

func (a *ValueAnalyzer) recommend(race *models.RaceSnapshot, c *candidate, bankroll BankrollView) models.Recommendation {
	stake := a.sizer.Size(c.probability, c.odds, bankroll.Current(), a.cfg.Confidence)
	stake = a.sizer.AdjustForDrawdown(stake, bankroll.CurrentDrawdown())

	names := make([]string, 0, len(c.horses))
	for _, umaban := range c.horses {
		names = append(names, race.HorseName(umaban))
	}

	threshold := models.BreakevenThreshold[c.betType] * a.cfg.MinExpectedValue
	return models.Recommendation{
		BetType:       c.betType,
		Horses:        c.horses,
		HorseNames:    names,
		Odds:          c.odds,
		ExpectedValue: c.ev,
		Probability:   c.probability,
		Amount:        stake,
		Threshold:     threshold,
		Reason:        fmt.Sprintf("best %s value: EV %.2f above threshold %.2f", c.betType, c.ev, threshold),
	}
}

// qualifies applies the strict qualification rule for one bet type.
func (a *ValueAnalyzer) qualifies(betType models.BetType, ev float64) bool {
	return ev > models.BreakevenThreshold[betType]*a.cfg.MinExpectedValue
}

func (a *ValueAnalyzer) bestTan(race *models.RaceSnapshot, probs *models.ProbabilitySet) *candidate {
	var best *candidate
	for umaban, p := range probs.Win {
		odds, ok := race.Odds.Tan[umaban]
		if !ok || odds <= 0 {
			continue
		}
		ev := p * odds
		if !a.qualifies(models.BetTan, ev) {
			continue
		}
		if best == nil || ev > best.ev {
			best = &candidate{models.BetTan, []int{umaban}, odds, p, ev}
		}
	}
	return best
}

func (a *ValueAnalyzer) bestFuku(race *models.RaceSnapshot, probs *models.ProbabilitySet) *candidate {
	var best *candidate
	for umaban, p := range probs.Place {
		rng, ok := race.Odds.Fuku[umaban]
		if !ok || rng.Min <= 0 {
			continue
		}
		// The low end of the quoted range is the conservative payout.
		ev := p * rng.Min
		if !a.qualifies(models.BetFuku, ev) {
			continue
		}
		if best == nil || ev > best.ev {
			best = &candidate{models.BetFuku, []int{umaban}, rng.Min, p, ev}
		}
	}
	return best
}

func (a *ValueAnalyzer) bestUmaren(race *models.RaceSnapshot, probs *models.ProbabilitySet) *candidate {
	var best *candidate
	for key, odds := range race.Odds.Umaren {
		if odds <= 0 {
			continue
		}
		pair, err := models.SplitCombinationKey(key)
		if err != nil || len(pair) != 2 {
			continue
		}
		p, ok := a.pairProbability(key, pair, probs)
		if !ok {
			continue
		}
		ev := p * odds
		if !a.qualifies(models.BetUmaren, ev) {
			continue
		}
		if best == nil || ev > best.ev {
			best = &candidate{models.BetUmaren, pair, odds, p, ev}
		}
	}
	return best
}

// pairProbability prefers the simulated quinella probability, falling back
// to the 2*pa*pb either-order approximation from win probabilities when the
// pair was never observed in simulation.
func (a *ValueAnalyzer) pairProbability(key string, pair []int, probs *models.ProbabilitySet) (float64, bool) {
	if p, ok := probs.Quinella[key]; ok && p > 0 {
		return p, true
	}
	pa, okA := probs.Win[pair[0]]
	pb, okB := probs.Win[pair[1]]
	if !okA || !okB {
		return 0, false
	}
	return 2 * pa * pb, true
}

func (a *ValueAnalyzer) bestUmatan(race *models.RaceSnapshot, probs *models.ProbabilitySet) *candidate {
	var best *candidate
	for key, odds := range race.Odds.Umatan {
		if odds <= 0 {
			continue
		}
		p, ok := probs.Exacta[key]
		if !ok || p <= 0 {
			continue
		}
		ev := p * odds
		if !a.qualifies(models.BetUmatan, ev) {
			continue
		}
		horses, err := models.SplitCombinationKey(key)
		if err != nil {
			continue
		}
		if best == nil || ev > best.ev {
			best = &candidate{models.BetUmatan, horses, odds, p, ev}
		}
	}
	return best
}

func (a *ValueAnalyzer) bestWide(race *models.RaceSnapshot, probs *models.ProbabilitySet) *candidate {
	var best *candidate
	for key, rng := range race.Odds.Wide {
		if rng.Min <= 0 {
			continue
		}
		pair, err := models.SplitCombinationKey(key)
		if err != nil || len(pair) != 2 {
			continue
		}
		p := wideProbability(pair[0], pair[1], probs.Trio)
		if p <= 0 {
			continue
		}
		ev := p * rng.Min
		if !a.qualifies(models.BetWide, ev) {
			continue
		}
		if best == nil || ev > best.ev {
			best = &candidate{models.BetWide, pair, rng.Min, p, ev}
		}
	}
	return best
}

// wideProbability estimates P(both horses finish top three) by summing the
// simulated trio probabilities of every triple containing the pair.
func wideProbability(a, b int, trio map[string]float64) float64 {
	total := 0.0
	for key, p := range trio {
		horses, err := models.SplitCombinationKey(key)
		if err != nil {
			continue
		}
		foundA, foundB := false, false
		for _, h := range horses {
			if h == a {
				foundA = true
			}
			if h == b {
				foundB = true
			}
		}
		if foundA && foundB {
			total += p
		}
	}
	return total
}

func (a *ValueAnalyzer) bestSanrentan(race *models.RaceSnapshot, probs *models.ProbabilitySet) *candidate {
	return a.bestTriple(models.BetSanrentan, race.Odds.Sanrentan, probs.Trifecta)
}

func (a *ValueAnalyzer) bestSanrenpuku(race *models.RaceSnapshot, probs *models.ProbabilitySet) *candidate {
	return a.bestTriple(models.BetSanrenpuku, race.Odds.Sanrenpuku, probs.Trio)
}

func (a *ValueAnalyzer) bestTriple(betType models.BetType, odds map[string]float64, probs map[string]float64) *candidate {
	var best *candidate
	for key, o := range odds {
		if o <= 0 {
			continue
		}
		p, ok := probs[key]
		if !ok || p <= 0 {
			continue
		}
		ev := p * o
		if !a.qualifies(betType, ev) {
			continue
		}
		horses, err := models.SplitCombinationKey(key)
		if err != nil {
			continue
		}
		if best == nil || ev > best.ev {
			best = &candidate{betType, horses, o, p, ev}
		}
	}
	return best
}

// applyPortfolioCap scales every stake down proportionally when the summed
// stake exceeds the portfolio limit, rounding each back up to the nearest
// increment and flagging the adjusted entries. Rounding up can push the sum
// back over the cap, so increments are then trimmed from the lowest-EV
// entries, down to the minimum stake, until the total fits.
func (a *ValueAnalyzer) applyPortfolioCap(recs []models.Recommendation) []models.Recommendation {
	total := 0
	for _, r := range recs {
		total += r.Amount
	}
	if total <= a.cfg.MaxPortfolio {
		return recs
	}

	factor := float64(a.cfg.MaxPortfolio) / float64(total)
	scaledTotal := 0
	for i := range recs {
		if recs[i].Amount == 0 {
			continue
		}
		scaled := int(math.Ceil(float64(recs[i].Amount)*factor/stakeIncrement)) * stakeIncrement
		recs[i].Amount = scaled
		recs[i].PortfolioAdjusted = true
		scaledTotal += scaled
	}

	// recs arrive sorted by EV descending, so walk from the tail.
	for scaledTotal > a.cfg.MaxPortfolio {
		trimmed := false
		for i := len(recs) - 1; i >= 0 && scaledTotal > a.cfg.MaxPortfolio; i-- {
			if recs[i].Amount <= MinStake {
				continue
			}
			recs[i].Amount -= stakeIncrement
			scaledTotal -= stakeIncrement
			trimmed = true
		}
		if !trimmed {
			break
		}
	}

	a.logger.WithFields(logrus.Fields{
		"total":  total,
		"cap":    a.cfg.MaxPortfolio,
		"factor": factor,
		"capped": scaledTotal,
	}).Info("Applied portfolio scaling")

	return recs
}
