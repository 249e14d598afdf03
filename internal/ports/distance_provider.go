package ports

import (
	"context"

	"pick-allocation-service/internal/domain"
)

// Walking distance between two cells, in grid steps.
type DistanceResult struct {
	Steps int
}

// Contract for retrieving travel distance between warehouse positions.
type DistanceProvider interface {
	// Return walking distance between two positions.
	GetDistance(ctx context.Context, origin, destination domain.Position) (DistanceResult, error)
}
