package services

import (
	"context"
	"errors"
	"slices"

	"pick-allocation-service/internal/constraints"
	"pick-allocation-service/internal/domain"
)

// Allocator is one allocation strategy. Every strategy decides feasibility
// through the same verifier, so results are comparable.
type Allocator interface {
	Name() string
	Allocate(ctx context.Context, model *domain.Model, verifier *constraints.Verifier) (domain.AllocationResult, error)
}

var errVerifierModel = errors.New("allocate: verifier was built for a different model")

func checkInputs(model *domain.Model, verifier *constraints.Verifier) error {
	if model == nil || verifier == nil {
		return errors.New("allocate: model and verifier are required")
	}
	if verifier.Model() != model {
		return errVerifierModel
	}
	return nil
}

// costModel prices trips the same way for allocation objectives and metrics.
type costModel struct {
	env constraints.Env
	seq *RouteSequencer
}

func newCostModel(v *constraints.Verifier) costModel {
	env := v.Env()
	return costModel{env: env, seq: NewRouteSequencer(env.Distances, env.Params)}
}

func (c costModel) tripCost(a *domain.Agent, length, lines, orders int) float64 {
	return tripCost(c.env.Params, a, length, lines, orders)
}

func tripMinutes(p domain.Params, a *domain.Agent, length, lines int) float64 {
	return float64(length)/a.Capabilities().Speed() + p.PickMinutesPerLine*float64(lines)
}

// tripCost: distance at the agent's distance rate, trip time at its labour
// rate, plus the fixed cost per order.
func tripCost(p domain.Params, a *domain.Agent, length, lines, orders int) float64 {
	if orders == 0 {
		return 0
	}
	caps := a.Capabilities()
	return float64(length)*caps.CostPerDistance() +
		tripMinutes(p, a, length, lines)*caps.CostPerMinute() +
		p.FixedOrderCost*float64(orders)
}

// zonePoints returns the representative positions of the zones in load.
func (c costModel) zonePoints(load []*domain.Order) []domain.Position {
	var ids []string
	for _, o := range load {
		ids = append(ids, o.Zones(c.env.Model.Products)...)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	pts := make([]domain.Position, 0, len(ids))
	for _, id := range ids {
		if z, ok := c.env.Model.Warehouse.Zone(id); ok {
			pts = append(pts, z.Representative())
		}
	}
	return pts
}

func (c costModel) loadCost(a *domain.Agent, load []*domain.Order) float64 {
	if len(load) == 0 {
		return 0
	}
	lines := 0
	for _, o := range load {
		lines += len(o.Lines)
	}
	length := c.seq.TourLength(a.Base, c.zonePoints(load))
	return c.tripCost(a, length, lines, len(load))
}

// allocationCost sums loadCost over agents in model order.
func (c costModel) allocationCost(v *constraints.Verifier, alloc domain.Allocation) float64 {
	var total float64
	for _, a := range c.env.Model.Agents {
		total += c.loadCost(a, v.LoadOf(alloc, a.ID))
	}
	return total
}
