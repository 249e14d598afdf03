package services

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"pick-allocation-service/internal/constraints"
	"pick-allocation-service/internal/domain"
	"pick-allocation-service/internal/platform/obs"
)

// GreedyAllocator assigns orders one at a time to the cheapest feasible agent.
//
// Orders are processed express first, then by earliest deadline, then by id.
// The cost proxy is the walk from the agent's current position to the order's
// origin zone, priced at the agent's distance rate. Ties go to the lowest agent
// id. It runs in O(orders x agents) verifier calls and never revisits a choice.
type GreedyAllocator struct{}

func NewGreedyAllocator() *GreedyAllocator { return &GreedyAllocator{} }

func (g *GreedyAllocator) Name() string { return "greedy" }

func (g *GreedyAllocator) Allocate(
	ctx context.Context,
	model *domain.Model,
	verifier *constraints.Verifier,
) (_ domain.AllocationResult, err error) {
	defer obs.Time(ctx, "allocate.greedy")(&err)

	if err := checkInputs(model, verifier); err != nil {
		return domain.AllocationResult{}, err
	}

	start := time.Now()
	env := verifier.Env()

	orders := slices.Clone(model.Orders)
	slices.SortStableFunc(orders, compareUrgency)

	alloc := domain.NewAllocation()
	loads := make(map[string][]*domain.Order, len(model.Agents))
	position := make(map[string]domain.Position, len(model.Agents))
	for _, a := range model.Agents {
		position[a.ID] = a.Base
	}

	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return domain.AllocationResult{}, fmt.Errorf("greedy allocate: %w", err)
		}

		var best *domain.Agent
		bestProxy := math.Inf(1)
		var causes []string

		// model.Agents is sorted by id, so strict < keeps the lowest id on ties.
		for _, a := range model.Agents {
			if vs := verifier.CheckAssignment(o, a, loads[a.ID]); len(vs) > 0 {
				for _, v := range vs {
					causes = append(causes, fmt.Sprintf("%s %s: %s", v.Constraint, a.ID, v.Cause))
				}
				continue
			}

			target := originTarget(model, o, position[a.ID])
			proxy := float64(env.Distances.Between(position[a.ID], target)) * a.Capabilities().CostPerDistance()
			if proxy < bestProxy {
				best, bestProxy = a, proxy
			}
		}

		if best == nil {
			alloc.Unassigned = append(alloc.Unassigned, domain.UnassignedOrder{OrderID: o.ID, Causes: causes})
			continue
		}

		alloc.Assignments[o.ID] = best.ID
		loads[best.ID] = append(loads[best.ID], o)
		position[best.ID] = originTarget(model, o, position[best.ID])
	}

	return domain.AllocationResult{
		Strategy:      g.Name(),
		Allocation:    alloc,
		Status:        domain.StatusFeasible,
		Objective:     newCostModel(verifier).allocationCost(verifier, alloc),
		SolveDuration: time.Since(start),
	}, nil
}

// originTarget is the representative of the order's origin zone. An order
// without one leaves the agent where it stands.
func originTarget(model *domain.Model, o *domain.Order, from domain.Position) domain.Position {
	if z, ok := model.Warehouse.Zone(o.OriginZone(model.Products)); ok {
		return z.Representative()
	}
	return from
}

// compareUrgency: express before standard, earlier deadline first (orders
// without a deadline last), then id.
func compareUrgency(a, b *domain.Order) int {
	if a.Express() != b.Express() {
		if a.Express() {
			return -1
		}
		return 1
	}
	if a.HasDeadline() != b.HasDeadline() {
		if a.HasDeadline() {
			return -1
		}
		return 1
	}
	return cmp.Or(cmp.Compare(a.Deadline, b.Deadline), cmp.Compare(a.ID, b.ID))
}
