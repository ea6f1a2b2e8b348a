package probability

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/satory074/keiba-edge/internal/models"
)

// SimulatorConfig configures the Monte Carlo race simulator.
type SimulatorConfig struct {
	Iterations int
	Workers    int
	// Seed makes runs reproducible. Zero seeds from the wall clock.
	Seed int64
}

// DefaultSimulatorConfig returns the production defaults: 10,000 iterations
// on a single worker, seeded from system time.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{Iterations: 10000, Workers: 1}
}

// Simulator draws randomized race outcomes from win-probability-derived
// finish-time proxies and tallies combination frequencies for exotic bets.
//
// Iterations are independent, so the work is sharded across workers and the
// tallies merged additively; only aggregate counts matter.
type Simulator struct {
	cfg    SimulatorConfig
	logger *logrus.Logger
}

// NewSimulator creates a race simulator.
func NewSimulator(cfg SimulatorConfig, logger *logrus.Logger) *Simulator {
	if cfg.Iterations <= 0 {
		cfg.Iterations = 10000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Simulator{cfg: cfg, logger: logger}
}

// Simulate runs the configured number of race simulations and returns the
// raw combination tallies. Combinations never observed carry no entry;
// callers must read an absent key as "not observed", not "impossible".
func (s *Simulator) Simulate(ctx context.Context, win map[int]float64, analysis models.FactorAnalysis, pace models.PaceScenario) *models.SimulationTally {
	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	runners := make([]int, 0, len(win))
	for umaban := range win {
		runners = append(runners, umaban)
	}
	sort.Ints(runners)

	shards := splitIterations(s.cfg.Iterations, s.cfg.Workers)
	tallies := make([]*models.SimulationTally, len(shards))

	var wg sync.WaitGroup
	for i, n := range shards {
		wg.Add(1)
		go func(shard, iterations int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed + int64(shard)))
			tallies[shard] = s.runShard(ctx, rng, iterations, runners, win, analysis, pace)
		}(i, n)
	}
	wg.Wait()

	merged := mergeTallies(tallies)

	s.logger.WithFields(logrus.Fields{
		"iterations": merged.Iterations,
		"exacta":     len(merged.ExactaCounts),
		"quinella":   len(merged.QuinellaCounts),
		"trifecta":   len(merged.TrifectaCounts),
		"trio":       len(merged.TrioCounts),
	}).Debug("Monte Carlo simulation complete")

	return merged
}

func (s *Simulator) runShard(ctx context.Context, rng *rand.Rand, iterations int, runners []int, win map[int]float64, analysis models.FactorAnalysis, pace models.PaceScenario) *models.SimulationTally {
	tally := &models.SimulationTally{
		ExactaCounts:   make(map[string]int),
		QuinellaCounts: make(map[string]int),
		TrifectaCounts: make(map[string]int),
		TrioCounts:     make(map[string]int),
	}

	times := make([]simulatedTime, len(runners))
	for i := 0; i < iterations; i++ {
		if i%1024 == 0 && ctx.Err() != nil {
			break
		}

		for j, umaban := range runners {
			times[j] = simulatedTime{umaban: umaban, value: s.drawRaceTime(rng, win[umaban], analysis[umaban], pace)}
		}
		sort.Slice(times, func(a, b int) bool { return times[a].value < times[b].value })

		if len(times) < 3 {
			tally.Iterations++
			continue
		}

		first, second, third := times[0].umaban, times[1].umaban, times[2].umaban
		tally.ExactaCounts[models.ExactaKey(first, second)]++
		tally.QuinellaCounts[models.QuinellaKey(first, second)]++
		tally.TrifectaCounts[models.TrifectaKey(first, second, third)]++
		tally.TrioCounts[models.TrioKey(first, second, third)]++
		tally.Iterations++
	}

	return tally
}

type simulatedTime struct {
	umaban int
	value  float64
}

// drawRaceTime samples an exponential finish-time proxy with mean
// -ln(p) * 5: near-certain winners draw short times, near-zero-probability
// horses draw very long ones. Pace-fit and track-bias adjustments from the
// factor analysis are applied multiplicatively to the drawn value.
func (s *Simulator) drawRaceTime(rng *rand.Rand, winProb float64, factors *models.HorseFactors, pace models.PaceScenario) float64 {
	p := math.Min(math.Max(winProb, 0.001), 0.999)
	scale := -math.Log(p) * 5
	value := rng.ExpFloat64() * scale

	if factors == nil {
		return value
	}

	if factors.Pace != nil {
		var score *float64
		switch pace {
		case models.PaceFast:
			score = factors.Pace.FastPaceScore
		case models.PaceSlow:
			score = factors.Pace.SlowPaceScore
		}
		if score != nil {
			value *= 1.0 - (*score/100.0-0.5)*0.3
		}
	}

	if factors.TrackBias != nil {
		switch factors.TrackBias.BiasAdvantage {
		case models.FlagAdvantage:
			value *= 0.9
		case models.FlagDisadvantage:
			value *= 1.1
		}
	}

	return value
}

func splitIterations(total, workers int) []int {
	if workers > total {
		workers = total
	}
	if workers < 1 {
		workers = 1
	}
	shards := make([]int, workers)
	base := total / workers
	extra := total % workers
	for i := range shards {
		shards[i] = base
		if i < extra {
			shards[i]++
		}
	}
	return shards
}

func mergeTallies(tallies []*models.SimulationTally) *models.SimulationTally {
	merged := &models.SimulationTally{
		ExactaCounts:   make(map[string]int),
		QuinellaCounts: make(map[string]int),
		TrifectaCounts: make(map[string]int),
		TrioCounts:     make(map[string]int),
	}
	for _, t := range tallies {
		if t == nil {
			continue
		}
		merged.Iterations += t.Iterations
		addCounts(merged.ExactaCounts, t.ExactaCounts)
		addCounts(merged.QuinellaCounts, t.QuinellaCounts)
		addCounts(merged.TrifectaCounts, t.TrifectaCounts)
		addCounts(merged.TrioCounts, t.TrioCounts)
	}
	return merged
}

func addCounts(dst, src map[string]int) {
	for key, count := range src {
		dst[key] += count
	}
}
