package domain

// Represents a single stop in a pick route.
// A RouteStop corresponds to visiting one zone at its representative position
// and picking every assigned order that has lines stored there.
type RouteStop struct {
	Zone     string
	Position Position
	OrderIDs []string
}

// Represents the planned trip of a single agent.
// A Route starts at the agent's base and, for closed tours, returns to it.
// It is immutable planning data and contains no side effects.
type Route struct {
	AgentID string
	Base    Position
	Stops   []RouteStop
	Length  int
	Closed  bool
}

// Zones in visiting order.
func (r Route) Zones() []string {
	out := make([]string, 0, len(r.Stops))
	for _, s := range r.Stops {
		out = append(out, s.Zone)
	}
	return out
}

// Recompute the tour length of r under d. Used to check sequencer output.
func (r Route) LengthUnder(d Distances) int {
	if len(r.Stops) == 0 {
		return 0
	}
	total := 0
	cur := r.Base
	for _, s := range r.Stops {
		total += d.Between(cur, s.Position)
		cur = s.Position
	}
	if r.Closed {
		total += d.Between(cur, r.Base)
	}
	return total
}
