package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pick-allocation-service/internal/platform/obs"
	"pick-allocation-service/internal/ports"
)

// SQLite backed cache for origin->destination walking distances.
// Keys are expected to be layout-scoped by the caller (see distance.CachedProvider).
// Call InitSchema once before use.
type SqliteDistanceCache struct {
	DB *sql.DB
}

func NewSqliteDistanceCache(db *sql.DB) *SqliteDistanceCache {
	return &SqliteDistanceCache{DB: db}
}

// Fetch cached distances for one origin and multiple destinations.
func (s *SqliteDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.sqlite.GetMany")(&err)

	if s.DB == nil {
		return nil, errNilBackend
	}
	if err := validateOrigin("get sqlite distance cache", origin); err != nil {
		return nil, err
	}

	keys := uniqueKeys(destinations)
	out := make(map[string]ports.DistanceResult, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, 0, 1+len(keys))
	args = append(args, origin)
	for _, k := range keys {
		args = append(args, k)
	}

	// SQLite cannot bind a slice to IN (...); only placeholders are interpolated.
	q := fmt.Sprintf(`
	SELECT destination, distance_steps
	FROM distance_cache
	WHERE origin = ?
		AND destination IN (%s);
	`, strings.TrimSuffix(strings.Repeat("?,", len(keys)), ","))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get sqlite distance cache: query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dest string
		var steps int
		if err := rows.Scan(&dest, &steps); err != nil {
			return nil, fmt.Errorf("get sqlite distance cache: scan: %w", err)
		}
		out[dest] = ports.DistanceResult{Steps: steps}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get sqlite distance cache: rows: %w", err)
	}

	return out, nil
}

// Store many distances for a single origin in one transaction.
func (s *SqliteDistanceCache) PutMany(ctx context.Context, origin string, results map[string]ports.DistanceResult) (err error) {
	defer obs.Time(ctx, "distance.sqlite.PutMany")(&err)

	if s.DB == nil {
		return errNilBackend
	}
	if err := validateOrigin("put sqlite distance cache", origin); err != nil {
		return err
	}
	if err := validateResults("put sqlite distance cache", results); err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put sqlite distance cache: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO distance_cache (origin, destination, distance_steps)
	VALUES (?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("put sqlite distance cache: prepare: %w", err)
	}
	defer stmt.Close()

	for dest, r := range results {
		if _, err := stmt.ExecContext(ctx, origin, dest, r.Steps); err != nil {
			return fmt.Errorf("put sqlite distance cache dest=%q: %w", dest, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put sqlite distance cache: commit: %w", err)
	}
	return nil
}
