package distance

import (
	"context"

	"pick-allocation-service/internal/domain"
	"pick-allocation-service/internal/ports"
)

// ManhattanProvider measures distance on an obstacle-free grid.
type ManhattanProvider struct{}

func NewManhattanProvider() *ManhattanProvider { return &ManhattanProvider{} }

func (ManhattanProvider) GetDistance(_ context.Context, origin, destination domain.Position) (ports.DistanceResult, error) {
	return ports.DistanceResult{Steps: origin.Manhattan(destination)}, nil
}

func (ManhattanProvider) GetDistances(_ context.Context, origin domain.Position, destinations []domain.Position) (map[domain.Position]ports.DistanceResult, error) {
	out := make(map[domain.Position]ports.DistanceResult, len(destinations))
	for _, d := range destinations {
		out[d] = ports.DistanceResult{Steps: origin.Manhattan(d)}
	}
	return out, nil
}
