package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/satory074/keiba-edge/internal/database"
	"github.com/satory074/keiba-edge/internal/models"
)

// PostgresBetRecordRepository persists settled bet records in PostgreSQL.
type PostgresBetRecordRepository struct {
	db *database.DB
}

// NewPostgresBetRecordRepository creates a new bet record repository
func NewPostgresBetRecordRepository(db *database.DB) *PostgresBetRecordRepository {
	return &PostgresBetRecordRepository{db: db}
}

// Create inserts one settled bet record
func (r *PostgresBetRecordRepository) Create(ctx context.Context, record *models.BetRecord) error {
	query := `
		INSERT INTO bet_records (id, race_id, bet_type, horses, amount, odds, result,
		                         payout, profit, bankroll_before, bankroll_after, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		record.ID, record.RaceID, record.BetType, toInt32(record.Horses), record.Amount,
		record.Odds, record.Result, record.Payout, record.Profit,
		record.BankrollBefore, record.BankrollAfter, record.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bet record: %w", err)
	}

	return nil
}

// GetByID retrieves a bet record by ID
func (r *PostgresBetRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BetRecord, error) {
	query := betRecordSelect + ` WHERE id = $1`

	record, err := scanBetRecord(r.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet record: %w", err)
	}

	return record, nil
}

// ListByRace retrieves all settled bets for one race, newest first
func (r *PostgresBetRecordRepository) ListByRace(ctx context.Context, raceID string) ([]*models.BetRecord, error) {
	query := betRecordSelect + ` WHERE race_id = $1 ORDER BY settled_at DESC`

	rows, err := r.db.GetPool().Query(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bet records by race: %w", err)
	}
	defer rows.Close()

	return collectBetRecords(rows)
}

// ListRecent retrieves the most recent settled bets, newest first
func (r *PostgresBetRecordRepository) ListRecent(ctx context.Context, limit int) ([]*models.BetRecord, error) {
	query := betRecordSelect + ` ORDER BY settled_at DESC LIMIT $1`

	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent bet records: %w", err)
	}
	defer rows.Close()

	return collectBetRecords(rows)
}

const betRecordSelect = `
	SELECT id, race_id, bet_type, horses, amount, odds, result,
	       payout, profit, bankroll_before, bankroll_after, settled_at
	FROM bet_records
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBetRecord(row rowScanner) (*models.BetRecord, error) {
	record := &models.BetRecord{}
	var horses []int32
	err := row.Scan(
		&record.ID, &record.RaceID, &record.BetType, &horses, &record.Amount,
		&record.Odds, &record.Result, &record.Payout, &record.Profit,
		&record.BankrollBefore, &record.BankrollAfter, &record.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	record.Horses = toInt(horses)
	return record, nil
}

func collectBetRecords(rows pgx.Rows) ([]*models.BetRecord, error) {
	var records []*models.BetRecord
	for rows.Next() {
		record, err := scanBetRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func toInt32(nums []int) []int32 {
	out := make([]int32, len(nums))
	for i, n := range nums {
		out[i] = int32(n)
	}
	return out
}

func toInt(nums []int32) []int {
	out := make([]int, len(nums))
	for i, n := range nums {
		out[i] = int(n)
	}
	return out
}
