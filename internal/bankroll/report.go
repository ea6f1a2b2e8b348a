package bankroll

import (
	"github.com/satory074/keiba-edge/internal/models"
)

const recentRecordCount = 10

// BetTypeBreakdown summarizes settled results for one bet type.
type BetTypeBreakdown struct {
	BetType models.BetType `json:"bet_type"`
	Bets    int            `json:"bets"`
	Wins    int            `json:"wins"`
	Staked  int            `json:"staked"`
	Payout  int            `json:"payout"`
	Profit  int            `json:"profit"`
}

// PerformanceReport is a human-readable rollup of ledger state for the CLI
// and scheduled summaries.
type PerformanceReport struct {
	State         models.BankrollState `json:"state"`
	Advice        StrategyAdvice       `json:"advice"`
	ByBetType     []BetTypeBreakdown   `json:"by_bet_type"`
	RecentRecords []models.BetRecord   `json:"recent_records"`
}

// Report builds the performance report with the most recent settlements
// last-in-first.
func (l *Ledger) Report() PerformanceReport {
	report := PerformanceReport{
		State:  l.State(),
		Advice: l.RecommendStrategy(),
	}

	records := l.Records()

	byType := make(map[models.BetType]*BetTypeBreakdown)
	order := make([]models.BetType, 0)
	for _, r := range records {
		b, ok := byType[r.BetType]
		if !ok {
			b = &BetTypeBreakdown{BetType: r.BetType}
			byType[r.BetType] = b
			order = append(order, r.BetType)
		}
		b.Bets++
		if r.Result == models.ResultWin {
			b.Wins++
		}
		b.Staked += r.Amount
		b.Payout += r.Payout
		b.Profit += r.Profit
	}
	for _, betType := range order {
		report.ByBetType = append(report.ByBetType, *byType[betType])
	}

	start := len(records) - recentRecordCount
	if start < 0 {
		start = 0
	}
	recent := records[start:]
	// Newest first.
	report.RecentRecords = make([]models.BetRecord, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		report.RecentRecords = append(report.RecentRecords, recent[i])
	}
	return report
}
