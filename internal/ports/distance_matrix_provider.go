package ports

import (
	"context"

	"pick-allocation-service/internal/domain"
)

// Optional extension of DistanceProvider that supports batched lookups.
type DistanceMatrixProvider interface {
	DistanceProvider
	// Return distances from one origin to many destinations, keyed by destination.
	GetDistances(ctx context.Context, origin domain.Position, destinations []domain.Position) (map[domain.Position]DistanceResult, error)
}
