package domain

import (
	"slices"
	"strings"
	"time"
)

// An order left out of an allocation, with the reasons no agent could take it.
type UnassignedOrder struct {
	OrderID string
	Causes  []string
}

func (u UnassignedOrder) Cause() string { return strings.Join(u.Causes, "; ") }

// Allocation maps order ids to agent ids. Each order maps to at most one agent.
type Allocation struct {
	Assignments map[string]string
	Unassigned  []UnassignedOrder
}

func NewAllocation() Allocation {
	return Allocation{Assignments: make(map[string]string)}
}

func (a Allocation) AgentOf(orderID string) (string, bool) {
	id, ok := a.Assignments[orderID]
	return id, ok
}

// OrdersFor returns the ids of orders assigned to agentID, sorted.
func (a Allocation) OrdersFor(agentID string) []string {
	var out []string
	for o, ag := range a.Assignments {
		if ag == agentID {
			out = append(out, o)
		}
	}
	slices.Sort(out)
	return out
}

func (a Allocation) Fulfilled() int { return len(a.Assignments) }

// Clone returns a deep copy; results handed to callers never share maps.
func (a Allocation) Clone() Allocation {
	out := Allocation{
		Assignments: make(map[string]string, len(a.Assignments)),
		Unassigned:  make([]UnassignedOrder, 0, len(a.Unassigned)),
	}
	for k, v := range a.Assignments {
		out.Assignments[k] = v
	}
	for _, u := range a.Unassigned {
		out.Unassigned = append(out.Unassigned, UnassignedOrder{OrderID: u.OrderID, Causes: slices.Clone(u.Causes)})
	}
	return out
}

type SolveStatus string

const (
	StatusOptimal    SolveStatus = "optimal"
	StatusFeasible   SolveStatus = "feasible"
	StatusTimeout    SolveStatus = "timeout"
	StatusInfeasible SolveStatus = "infeasible"
)

// AllocationResult is what an allocation strategy hands to routing.
type AllocationResult struct {
	Strategy   string
	Allocation Allocation
	Status     SolveStatus

	// Proven is set only when the search finished and the objective is exact.
	Proven bool

	// Conflicts lists the orders that cannot be placed when Status is infeasible.
	Conflicts []UnassignedOrder

	Objective     float64
	SolveDuration time.Duration
}

func (r AllocationResult) TimedOut() bool { return r.Status == StatusTimeout }

// Err reports an infeasible result as an error wrapping ErrSolverInfeasible.
func (r AllocationResult) Err() error {
	if r.Status != StatusInfeasible {
		return nil
	}
	ids := make([]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		ids = append(ids, c.OrderID)
	}
	return &SolverInfeasibleError{Strategy: r.Strategy, OrderIDs: ids}
}
