package cache

import (
	"context"
	"database/sql"
	"fmt"

	"pick-allocation-service/internal/platform/obs"
	"pick-allocation-service/internal/ports"
)

// SQLDistanceCache is a Postgres-backed distance cache shared between planner
// instances. Open the handle with db.Open (pgx stdlib driver).
type SQLDistanceCache struct {
	DB *sql.DB
}

func NewSQLDistanceCache(db *sql.DB) *SQLDistanceCache {
	return &SQLDistanceCache{DB: db}
}

// Fetch cached distances for one origin and multiple destinations.
func (s *SQLDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.postgres.GetMany")(&err)

	if s.DB == nil {
		return nil, errNilBackend
	}
	if err := validateOrigin("get postgres distance cache", origin); err != nil {
		return nil, err
	}

	keys := uniqueKeys(destinations)
	out := make(map[string]ports.DistanceResult, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT destination, distance_steps
	FROM distance_cache
	WHERE origin = $1
		AND destination = ANY($2::text[]);
	`, origin, keys)
	if err != nil {
		return nil, fmt.Errorf("get postgres distance cache: query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dest string
		var steps int
		if err := rows.Scan(&dest, &steps); err != nil {
			return nil, fmt.Errorf("get postgres distance cache: scan: %w", err)
		}
		out[dest] = ports.DistanceResult{Steps: steps}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get postgres distance cache: rows: %w", err)
	}

	return out, nil
}

// Upsert many distances for a single origin.
func (s *SQLDistanceCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) (err error) {
	defer obs.Time(ctx, "distance.postgres.PutMany")(&err)

	if s.DB == nil {
		return errNilBackend
	}
	if err := validateOrigin("put postgres distance cache", origin); err != nil {
		return err
	}
	if err := validateResults("put postgres distance cache", results); err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put postgres distance cache: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO distance_cache (origin, destination, distance_steps)
	VALUES ($1, $2, $3)
	ON CONFLICT (origin, destination) DO UPDATE
	SET distance_steps = EXCLUDED.distance_steps;
	`)
	if err != nil {
		return fmt.Errorf("put postgres distance cache: prepare: %w", err)
	}
	defer stmt.Close()

	for dest, r := range results {
		if _, err := stmt.ExecContext(ctx, origin, dest, r.Steps); err != nil {
			return fmt.Errorf("put postgres distance cache dest=%q: %w", dest, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put postgres distance cache: commit: %w", err)
	}
	return nil
}
