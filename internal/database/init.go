package database

import (
	"context"
	"fmt"

	"github.com/satory074/keiba-edge/internal/config"
)

const betRecordsSchema = `
CREATE TABLE IF NOT EXISTS bet_records (
	id UUID PRIMARY KEY,
	race_id TEXT NOT NULL,
	bet_type TEXT NOT NULL,
	horses INTEGER[] NOT NULL,
	amount INTEGER NOT NULL,
	odds DOUBLE PRECISION NOT NULL,
	result TEXT NOT NULL,
	payout INTEGER NOT NULL,
	profit INTEGER NOT NULL,
	bankroll_before DOUBLE PRECISION NOT NULL,
	bankroll_after DOUBLE PRECISION NOT NULL,
	settled_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bet_records_race_id ON bet_records (race_id);
CREATE INDEX IF NOT EXISTS idx_bet_records_settled_at ON bet_records (settled_at DESC);
`

// Initialize creates a database connection pool and ensures the settlement
// schema exists.
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if _, err := db.pool.Exec(ctx, betRecordsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}
