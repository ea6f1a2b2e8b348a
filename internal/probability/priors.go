// Package probability implements the probability estimation core: market
// implied priors, Bayesian posterior blending with handicapping factors,
// heuristic place/show bands, and a Monte Carlo race simulator for
// combination bet probabilities.
package probability

// MarketPriors converts decimal win odds into a normalized implied
// probability map, the Bayesian prior for the race.
//
// Horses with invalid odds (<= 0) are skipped entirely: their prior is left
// undefined rather than set to zero, so downstream consumers treat them as
// excluded from this pass. When no usable odds exist at all, the prior falls
// back to uniform 1/N over the supplied runners.
func MarketPriors(tanOdds map[int]float64, runners []int) map[int]float64 {
	priors := make(map[int]float64, len(runners))

	if len(tanOdds) == 0 {
		if len(runners) == 0 {
			return priors
		}
		uniform := 1.0 / float64(len(runners))
		for _, umaban := range runners {
			priors[umaban] = uniform
		}
		return priors
	}

	implied := make(map[int]float64, len(tanOdds))
	total := 0.0
	for umaban, odds := range tanOdds {
		if odds <= 0 {
			continue
		}
		p := 1.0 / odds
		implied[umaban] = p
		total += p
	}

	if total > 0 {
		for umaban, p := range implied {
			priors[umaban] = p / total
		}
	}

	return priors
}

// Overround returns the bookmaker margin of a win market: the sum of
// implied probabilities minus one. Returns false when no usable odds exist.
func Overround(tanOdds map[int]float64) (float64, bool) {
	total := 0.0
	seen := false
	for _, odds := range tanOdds {
		if odds <= 0 {
			continue
		}
		total += 1.0 / odds
		seen = true
	}
	if !seen {
		return 0, false
	}
	return total - 1.0, true
}
