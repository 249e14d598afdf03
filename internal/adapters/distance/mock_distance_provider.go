package distance

import (
	"context"
	"fmt"
	"sync/atomic"

	"pick-allocation-service/internal/domain"
	"pick-allocation-service/internal/ports"
)

type MockPair struct {
	From, To domain.Position
	Steps    int
}

// MockDistanceProvider serves a fixed set of symmetric pairs and counts calls.
type MockDistanceProvider struct {
	m     map[[2]domain.Position]ports.DistanceResult
	calls atomic.Int64
}

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[[2]domain.Position]ports.DistanceResult, 2*len(pairs))
	for _, p := range pairs {
		m[[2]domain.Position{p.From, p.To}] = ports.DistanceResult{Steps: p.Steps}
		m[[2]domain.Position{p.To, p.From}] = ports.DistanceResult{Steps: p.Steps}
	}
	return &MockDistanceProvider{m: m}
}

func (p *MockDistanceProvider) GetDistance(ctx context.Context, origin, destination domain.Position) (ports.DistanceResult, error) {
	p.calls.Add(1)
	if origin == destination {
		return ports.DistanceResult{}, nil
	}
	r, ok := p.m[[2]domain.Position{origin, destination}]
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("missing pair %s -> %s", origin, destination)
	}

	return r, nil
}

func (p *MockDistanceProvider) Calls() int { return int(p.calls.Load()) }
