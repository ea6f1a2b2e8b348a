// Package bankroll tracks betting capital, settles bet outcomes, and
// derives the performance statistics that feed stake sizing and strategy
// adjustment.
package bankroll

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/satory074/keiba-edge/internal/models"
)

// RecordStore persists settled bet records. The ledger works without one;
// records are then held in memory only.
type RecordStore interface {
	Create(ctx context.Context, record *models.BetRecord) error
}

// Ledger is the append-only settlement log plus the running bankroll.
// All monetary arithmetic goes through decimal so stake, payout and
// bankroll always reconcile exactly.
type Ledger struct {
	mu sync.Mutex

	initial decimal.Decimal
	current decimal.Decimal

	records []models.BetRecord

	store  RecordStore
	logger *logrus.Logger
}

// NewLedger creates a ledger starting from the given bankroll. store may be
// nil for in-memory operation.
func NewLedger(initialBankroll float64, store RecordStore, logger *logrus.Logger) *Ledger {
	initial := decimal.NewFromFloat(initialBankroll)
	return &Ledger{
		initial: initial,
		current: initial,
		store:   store,
		logger:  logger,
	}
}

// SettleInput describes one resolved bet to be recorded.
type SettleInput struct {
	RaceID  string
	BetType models.BetType
	Horses  []int
	Amount  int
	Odds    float64
	Result  models.BetResult
	// Payout is the gross return in yen for a winning bet. Ignored for
	// losing bets.
	Payout int
}

// RecordBet settles one bet against the bankroll and appends the record.
// A win adds payout minus stake, a loss subtracts the stake.
func (l *Ledger) RecordBet(ctx context.Context, in SettleInput) (*models.BetRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := l.current

	profit := -in.Amount
	payout := 0
	if in.Result == models.ResultWin {
		payout = in.Payout
		profit = in.Payout - in.Amount
	}

	l.current = l.current.Add(decimal.NewFromInt(int64(profit)))

	record := models.BetRecord{
		ID:             uuid.New(),
		RaceID:         in.RaceID,
		BetType:        in.BetType,
		Horses:         in.Horses,
		Amount:         in.Amount,
		Odds:           in.Odds,
		Result:         in.Result,
		Payout:         payout,
		Profit:         profit,
		BankrollBefore: before.InexactFloat64(),
		BankrollAfter:  l.current.InexactFloat64(),
		SettledAt:      time.Now().UTC(),
	}
	l.records = append(l.records, record)

	l.logger.WithFields(logrus.Fields{
		"race_id":  in.RaceID,
		"bet_type": in.BetType,
		"result":   in.Result,
		"profit":   profit,
		"bankroll": record.BankrollAfter,
	}).Info("Bet settled")

	if l.store != nil {
		if err := l.store.Create(ctx, &record); err != nil {
			// The in-memory ledger stays authoritative; persistence is
			// retried on the next settlement cycle.
			l.logger.WithError(err).Warn("Failed to persist bet record")
		}
	}

	return &record, nil
}

// Current returns the current bankroll.
func (l *Ledger) Current() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.InexactFloat64()
}

// CurrentDrawdown returns the fractional decline from the initial bankroll,
// 0 when at or above it. Stake throttling keys off lost starting capital,
// not off givebacks of interim winnings.
func (l *Ledger) CurrentDrawdown() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.drawdownLocked()
}

func (l *Ledger) drawdownLocked() float64 {
	if !l.initial.IsPositive() || !l.current.LessThan(l.initial) {
		return 0
	}
	dd := l.initial.Sub(l.current).Div(l.initial)
	return dd.InexactFloat64()
}

// State returns a snapshot of the ledger's performance statistics.
func (l *Ledger) State() models.BankrollState {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := models.BankrollState{
		InitialBankroll: l.initial.InexactFloat64(),
		CurrentBankroll: l.current.InexactFloat64(),
		Drawdown:        l.drawdownLocked(),
		MaxDrawdown:     l.maxDrawdownLocked(),
		TotalBets:       len(l.records),
	}
	if len(l.records) == 0 {
		return state
	}

	wins := 0
	stakes := decimal.Zero
	returns := decimal.Zero
	grossWin := decimal.Zero
	grossLoss := decimal.Zero
	for _, r := range l.records {
		stakes = stakes.Add(decimal.NewFromInt(int64(r.Amount)))
		returns = returns.Add(decimal.NewFromInt(int64(r.Payout)))
		if r.Result == models.ResultWin {
			wins++
			grossWin = grossWin.Add(decimal.NewFromInt(int64(r.Profit)))
		} else {
			grossLoss = grossLoss.Add(decimal.NewFromInt(int64(-r.Profit)))
		}
	}

	state.HitRate = float64(wins) / float64(len(l.records))
	if stakes.IsPositive() {
		state.ROI = returns.Div(stakes).InexactFloat64() - 1
	}
	switch {
	case grossLoss.IsZero() && grossWin.IsPositive():
		state.ProfitFactor = math.Inf(1)
	case grossLoss.IsPositive():
		state.ProfitFactor = grossWin.Div(grossLoss).InexactFloat64()
	}
	return state
}

// maxDrawdownLocked walks the settlement history tracking the worst peak
// to trough decline.
func (l *Ledger) maxDrawdownLocked() float64 {
	peak := l.initial
	maxDD := decimal.Zero
	for _, r := range l.records {
		after := decimal.NewFromFloat(r.BankrollAfter)
		if after.GreaterThan(peak) {
			peak = after
			continue
		}
		if peak.IsZero() {
			continue
		}
		dd := peak.Sub(after).Div(peak)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD.InexactFloat64()
}

// Restore replays previously persisted records into a fresh ledger so the
// bankroll and statistics carry across process restarts. Records must be in
// chronological order. No-op on a ledger that already has settlements.
func (l *Ledger) Restore(records []models.BetRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) > 0 || len(records) == 0 {
		return
	}

	l.records = make([]models.BetRecord, len(records))
	copy(l.records, records)
	l.current = decimal.NewFromFloat(records[len(records)-1].BankrollAfter)

	l.logger.WithFields(logrus.Fields{
		"records":  len(l.records),
		"bankroll": l.current.InexactFloat64(),
	}).Info("Ledger restored from persisted records")
}

// Records returns a copy of the settlement history in chronological order.
func (l *Ledger) Records() []models.BetRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.BetRecord, len(l.records))
	copy(out, l.records)
	return out
}
