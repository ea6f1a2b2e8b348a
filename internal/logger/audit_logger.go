// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging for every decision
// that moves money.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogRecommendation logs one emitted bet recommendation.
func (al *AuditLogger) LogRecommendation(raceID, betType string, horses []int, stake int, odds, expectedValue, probability float64) {
	al.WithFields(logrus.Fields{
		"race_id":        raceID,
		"bet_type":       betType,
		"horses":         horses,
		"stake":          stake,
		"odds":           odds,
		"expected_value": expectedValue,
		"probability":    probability,
	}).Info("Bet recommendation recorded")
}

// LogNoBet logs an analysis run that declined to recommend anything.
func (al *AuditLogger) LogNoBet(raceID string, threshold float64) {
	al.WithFields(logrus.Fields{
		"race_id":   raceID,
		"threshold": threshold,
	}).Info("No-bet decision recorded")
}

// LogSettlement logs a settled bet and its bankroll effect.
func (al *AuditLogger) LogSettlement(recordID, raceID, betType, result string, stake, payout int, bankrollAfter float64, settledAt time.Time) {
	al.WithFields(logrus.Fields{
		"record_id":      recordID,
		"race_id":        raceID,
		"bet_type":       betType,
		"result":         result,
		"stake":          stake,
		"payout":         payout,
		"bankroll_after": bankrollAfter,
		"settled_at":     settledAt.Unix(),
	}).Info("Bet settlement recorded")
}

// LogRecalculation logs a live-triggered model rebuild with its reasons.
func (al *AuditLogger) LogRecalculation(raceID string, reasons []string) {
	al.WithFields(logrus.Fields{
		"race_id": raceID,
		"reasons": reasons,
	}).Info("Model recalculation recorded")
}
