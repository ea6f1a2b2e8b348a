package database

import (
	"context"
	"testing"
	"time"

	"github.com/satory074/keiba-edge/internal/config"
)

// SetupTestDB creates a test database connection and verifies it. Skips the
// test when no database is reachable.
func SetupTestDB(t *testing.T) *DB {
	cfg, err := config.Load("../../config/config.test.yaml")
	if err != nil {
		t.Skipf("no test database config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := Initialize(ctx, cfg)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	return db
}

// TeardownTestDB closes the database connection cleanly
func TeardownTestDB(t *testing.T, db *DB) {
	t.Helper()
	db.Close()
}
