package services

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"pick-allocation-service/internal/domain"
	"pick-allocation-service/internal/platform/obs"
	"pick-allocation-service/internal/ports"
)

// BuildDistanceTable fetches every pairwise distance between the model's
// waypoints (agent bases and zone representatives) up front, so allocation
// and routing run on a pure in-memory table.
//
// Origins are fetched concurrently (at most `parallelism` at a time); the first
// error cancels the rest.
func BuildDistanceTable(
	ctx context.Context,
	model *domain.Model,
	provider ports.DistanceProvider,
	parallelism int,
) (_ *domain.DistanceTable, err error) {
	defer obs.Time(ctx, "distance.table.Build")(&err)

	if provider == nil {
		return nil, fmt.Errorf("build distance table: provider is nil")
	}
	if parallelism <= 0 {
		parallelism = 5
	}

	points := model.Waypoints()
	table := domain.NewDistanceTable()
	if len(points) < 2 {
		return table, nil
	}

	mp, hasMatrix := provider.(ports.DistanceMatrixProvider)

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	// Distances are symmetric: origin i only needs points after it.
	for i := 0; i < len(points)-1; i++ {
		origin := points[i]
		targets := points[i+1:]

		g.Go(func() error {
			res, err := fetchRow(ctx, provider, mp, hasMatrix, origin, targets)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for _, t := range targets {
				r, ok := res[t]
				if !ok {
					return fmt.Errorf("build distance table: missing distance from %s to %s", origin, t)
				}
				table.Set(origin, t, r.Steps)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return table, nil
}

func fetchRow(
	ctx context.Context,
	provider ports.DistanceProvider,
	mp ports.DistanceMatrixProvider,
	hasMatrix bool,
	origin domain.Position,
	targets []domain.Position,
) (map[domain.Position]ports.DistanceResult, error) {
	// Prefer a single origin->many lookup when supported.
	if hasMatrix {
		res, err := mp.GetDistances(ctx, origin, targets)
		if err != nil {
			return nil, fmt.Errorf("build distance table: get distances from %s: %w", origin, err)
		}
		return res, nil
	}

	res := make(map[domain.Position]ports.DistanceResult, len(targets))
	for _, t := range targets {
		r, err := provider.GetDistance(ctx, origin, t)
		if err != nil {
			return nil, fmt.Errorf("build distance table: get distance from %s to %s: %w", origin, t, err)
		}
		res[t] = r
	}
	return res, nil
}
