package models

import (
	"time"

	"github.com/google/uuid"
)

// BetType identifies a JRA bet category.
type BetType string

const (
	BetTan        BetType = "tan"        // win
	BetFuku       BetType = "fuku"       // place
	BetUmaren     BetType = "umaren"     // quinella
	BetUmatan     BetType = "umatan"     // exacta
	BetWide       BetType = "wide"       // quinella place
	BetSanrentan  BetType = "sanrentan"  // trifecta
	BetSanrenpuku BetType = "sanrenpuku" // trio

	// BetNone marks a structured "do not bet" recommendation.
	BetNone BetType = "no_bet"
	// BetError marks a recommendation entry reporting an analysis failure.
	BetError BetType = "error"
)

// BreakevenThreshold approximates 1 / track payout rate per bet type.
var BreakevenThreshold = map[BetType]float64{
	BetTan:        1.25,
	BetFuku:       1.25,
	BetUmaren:     1.29,
	BetUmatan:     1.29,
	BetWide:       1.29,
	BetSanrentan:  1.33,
	BetSanrenpuku: 1.33,
}

// BetResult is the settled outcome of a bet.
type BetResult string

const (
	ResultWin  BetResult = "win"
	ResultLose BetResult = "lose"
)

// Recommendation is the terminal output of the betting analysis: one
// suggested bet, immutable once produced.
type Recommendation struct {
	BetType           BetType  `json:"bet_type"`
	Horses            []int    `json:"horses,omitempty"`
	HorseNames        []string `json:"horse_names,omitempty"`
	Odds              float64  `json:"odds,omitempty"`
	ExpectedValue     float64  `json:"expected_value,omitempty"`
	Probability       float64  `json:"probability,omitempty"`
	Amount            int      `json:"amount,omitempty"`
	Reason            string   `json:"reason"`
	Threshold         float64  `json:"threshold,omitempty"`
	PortfolioAdjusted bool     `json:"portfolio_adjusted,omitempty"`
}

// BetRecord is an append-only record of a settled bet. Created at
// settlement time and never mutated afterward.
type BetRecord struct {
	ID             uuid.UUID `json:"id" db:"id"`
	RaceID         string    `json:"race_id" db:"race_id"`
	BetType        BetType   `json:"bet_type" db:"bet_type"`
	Horses         []int     `json:"horses" db:"horses"`
	Amount         int       `json:"amount" db:"amount"`
	Odds           float64   `json:"odds" db:"odds"`
	Result         BetResult `json:"result" db:"result"`
	Payout         int       `json:"payout" db:"payout"`
	Profit         int       `json:"profit" db:"profit"`
	BankrollBefore float64   `json:"bankroll_before" db:"bankroll_before"`
	BankrollAfter  float64   `json:"bankroll_after" db:"bankroll_after"`
	SettledAt      time.Time `json:"settled_at" db:"settled_at"`
}

// BankrollState is a snapshot of the ledger's running performance.
type BankrollState struct {
	InitialBankroll float64 `json:"initial_bankroll"`
	CurrentBankroll float64 `json:"current_bankroll"`
	ROI             float64 `json:"roi"`
	HitRate         float64 `json:"hit_rate"`
	Drawdown        float64 `json:"drawdown"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	ProfitFactor    float64 `json:"profit_factor"`
	TotalBets       int     `json:"total_bets"`
}

// SimulationTally holds raw combination counts from one Monte Carlo run.
// Ephemeral: recomputed on every simulation invocation.
type SimulationTally struct {
	ExactaCounts   map[string]int `json:"exacta_counts"`
	QuinellaCounts map[string]int `json:"quinella_counts"`
	TrifectaCounts map[string]int `json:"trifecta_counts"`
	TrioCounts     map[string]int `json:"trio_counts"`
	Iterations     int            `json:"iterations"`
}

// Probabilities normalizes a count map by the iteration count. A zero count
// means "not observed in this run", not "impossible".
func (t *SimulationTally) Probabilities(counts map[string]int) map[string]float64 {
	probs := make(map[string]float64, len(counts))
	if t.Iterations <= 0 {
		return probs
	}
	for key, count := range counts {
		probs[key] = float64(count) / float64(t.Iterations)
	}
	return probs
}

// ProbabilitySet bundles the per-bet-category probability distributions
// produced by one analysis pass.
type ProbabilitySet struct {
	Win        map[int]float64    `json:"win"`
	Place      map[int]float64    `json:"place"`
	Show       map[int]float64    `json:"show"`
	Exacta     map[string]float64 `json:"exacta"`
	Quinella   map[string]float64 `json:"quinella"`
	Trifecta   map[string]float64 `json:"trifecta"`
	Trio       map[string]float64 `json:"trio"`
}
