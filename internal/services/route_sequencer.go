package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"pick-allocation-service/internal/domain"
	"pick-allocation-service/internal/platform/obs"
)

// Held-Karp memory grows as 2^n * n; above this the heuristic is always used.
const maxExactStops = 16

// RouteSequencer orders each agent's stops into a short tour.
//
// Stop counts up to Params.ExactStopLimit are solved exactly with Held-Karp;
// larger sets use nearest-neighbor followed by 2-opt. Stops are put into
// row-major position order before solving, so the same stop set always yields
// the same tour and length.
type RouteSequencer struct {
	dist   domain.Distances
	params domain.Params
}

func NewRouteSequencer(dist domain.Distances, params domain.Params) *RouteSequencer {
	if dist == nil {
		dist = domain.ManhattanDistances{}
	}
	return &RouteSequencer{dist: dist, params: params}
}

// Exact reports whether a tour over n stops is solved exactly.
func (s *RouteSequencer) Exact(n int) bool {
	limit := min(s.params.ExactStopLimit, maxExactStops)
	return n <= limit
}

// solve returns visiting order (indices into points) and tour length.
// points must already be in canonical order.
func (s *RouteSequencer) solve(base domain.Position, points []domain.Position) ([]int, int) {
	n := len(points)
	if n == 0 {
		return nil, 0
	}

	w := func(i, j int) int {
		a, b := base, base
		if i < n {
			a = points[i]
		}
		if j < n {
			b = points[j]
		}
		return s.dist.Between(a, b)
	}

	if s.Exact(n) {
		return heldKarpOrder(n, w, s.params.ClosedTours)
	}

	order := nearestNeighborOrder(n, w)
	order = improveTwoOpt(order, n, w, s.params.ClosedTours)
	return order, tourLength(order, n, w, s.params.ClosedTours)
}

// TourLength is the length of the tour Sequence would produce for stops at
// points, without building the route.
func (s *RouteSequencer) TourLength(base domain.Position, points []domain.Position) int {
	pts := slices.Clone(points)
	slices.SortFunc(pts, comparePositions)
	_, length := s.solve(base, pts)
	return length
}

// Sequence orders stops for one agent. The result is a permutation of stops;
// nothing is added or dropped.
func (s *RouteSequencer) Sequence(agentID string, base domain.Position, stops []domain.RouteStop) (domain.Route, error) {
	route := domain.Route{
		AgentID: agentID,
		Base:    base,
		Stops:   []domain.RouteStop{},
		Closed:  s.params.ClosedTours,
	}
	if len(stops) == 0 {
		return route, nil
	}

	sorted := slices.Clone(stops)
	slices.SortFunc(sorted, func(a, b domain.RouteStop) int { return comparePositions(a.Position, b.Position) })

	points := make([]domain.Position, len(sorted))
	for i, st := range sorted {
		if i > 0 && st.Position == sorted[i-1].Position {
			return domain.Route{}, fmt.Errorf("sequence route: agent %s: duplicate stop at %s", agentID, st.Position)
		}
		points[i] = st.Position
	}

	order, length := s.solve(base, points)

	route.Stops = make([]domain.RouteStop, 0, len(order))
	for _, i := range order {
		route.Stops = append(route.Stops, sorted[i])
	}
	route.Length = length

	return route, nil
}

// StopsFor groups the orders' lines into one stop per zone, at the zone's
// representative position. Order ids inside a stop are sorted.
func StopsFor(model *domain.Model, orders []*domain.Order) ([]domain.RouteStop, error) {
	byZone := make(map[string][]string)
	for _, o := range orders {
		for _, z := range o.Zones(model.Products) {
			byZone[z] = append(byZone[z], o.ID)
		}
	}

	stops := make([]domain.RouteStop, 0, len(byZone))
	for zid, ids := range byZone {
		z, ok := model.Warehouse.Zone(zid)
		if !ok {
			return nil, fmt.Errorf("stops: unknown zone %q", zid)
		}
		slices.Sort(ids)
		stops = append(stops, domain.RouteStop{
			Zone:     zid,
			Position: z.Representative(),
			OrderIDs: slices.Compact(ids),
		})
	}

	slices.SortFunc(stops, func(a, b domain.RouteStop) int { return comparePositions(a.Position, b.Position) })
	return stops, nil
}

// RouteAll sequences every agent of the model independently and in parallel.
// Routes come back in model agent order; idle agents get an empty route.
func (s *RouteSequencer) RouteAll(ctx context.Context, model *domain.Model, alloc domain.Allocation) (_ []domain.Route, err error) {
	defer obs.Time(ctx, "route.RouteAll")(&err)

	if model == nil {
		return nil, errors.New("route all: model is nil")
	}

	routes := make([]domain.Route, len(model.Agents))

	g, ctx := errgroup.WithContext(ctx)
	limit := s.params.RouteParallelism
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, agent := range model.Agents {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			ids := alloc.OrdersFor(agent.ID)
			orders := make([]*domain.Order, 0, len(ids))
			for _, id := range ids {
				o, ok := model.Order(id)
				if !ok {
					return fmt.Errorf("route all: agent %s: unknown order %q", agent.ID, id)
				}
				orders = append(orders, o)
			}

			stops, err := StopsFor(model, orders)
			if err != nil {
				return fmt.Errorf("route all: agent %s: %w", agent.ID, err)
			}

			r, err := s.Sequence(agent.ID, agent.Base, stops)
			if err != nil {
				return fmt.Errorf("route all: %w", err)
			}

			// Each goroutine owns its slot.
			routes[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return routes, nil
}

func comparePositions(a, b domain.Position) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}
