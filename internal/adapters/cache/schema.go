package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InitSchema creates the distance_cache table and its index. The DDL is valid
// for both SQLite and Postgres.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`
	CREATE TABLE IF NOT EXISTS distance_cache (
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		distance_steps INTEGER NOT NULL,
		PRIMARY KEY (origin, destination)
	);
	`,
		`
	CREATE INDEX IF NOT EXISTS idx_distance_cache_destination_origin
	ON distance_cache(destination, origin);
	`,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}
	return nil
}
