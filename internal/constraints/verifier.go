package constraints

import (
	"cmp"
	"fmt"
	"slices"

	"pick-allocation-service/internal/domain"
)

// Verifier is the single source of feasibility for both allocators and for
// post-hoc validation. It holds no mutable state; every method is pure.
type Verifier struct {
	env   Env
	rules []Rule
}

// NewVerifier builds a verifier over the model. With no rules given the
// DefaultRules table is used.
func NewVerifier(model *domain.Model, dist domain.Distances, params domain.Params, rules ...Rule) *Verifier {
	if dist == nil {
		dist = domain.ManhattanDistances{}
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Verifier{
		env:   Env{Model: model, Distances: dist, Params: params},
		rules: slices.Clone(rules),
	}
}

func (v *Verifier) Env() Env { return v.env }

func (v *Verifier) Model() *domain.Model { return v.env.Model }

func (v *Verifier) Rules() []Rule { return slices.Clone(v.rules) }

// CheckAssignment evaluates adding order to agent on top of its current load.
// An empty result means the pairing is feasible.
func (v *Verifier) CheckAssignment(order *domain.Order, agent *domain.Agent, current []*domain.Order) []domain.Violation {
	load := make([]*domain.Order, 0, len(current)+1)
	load = append(load, current...)
	load = append(load, order)

	ev := Evaluation{Agent: agent, Load: load, Candidate: order}

	var out []domain.Violation
	for _, r := range v.rules {
		out = append(out, r.Check(v.env, ev)...)
	}
	return out
}

// Feasible reports whether order can be placed on agent with an empty load.
func (v *Verifier) Feasible(order *domain.Order, agent *domain.Agent) bool {
	return len(v.CheckAssignment(order, agent, nil)) == 0
}

// Candidates lists the agents that could take order alone, plus the causes
// recorded for every agent that could not. Agents come back in model order.
func (v *Verifier) Candidates(order *domain.Order) ([]*domain.Agent, []string) {
	var ok []*domain.Agent
	var causes []string
	for _, a := range v.env.Model.Agents {
		vs := v.CheckAssignment(order, a, nil)
		if len(vs) == 0 {
			ok = append(ok, a)
			continue
		}
		for _, vi := range vs {
			causes = append(causes, fmt.Sprintf("%s %s: %s", vi.Constraint, a.ID, vi.Cause))
		}
	}
	return ok, causes
}

// Verify checks a complete allocation and returns every violation found.
func (v *Verifier) Verify(alloc domain.Allocation) []domain.Violation {
	var out []domain.Violation
	loads := make(map[string][]*domain.Order)

	for orderID, agentID := range alloc.Assignments {
		o, ok := v.env.Model.Order(orderID)
		if !ok {
			out = append(out, domain.Violation{Constraint: domain.ConstraintReference, OrderID: orderID, AgentID: agentID, Cause: "unknown order"})
			continue
		}
		if _, ok := v.env.Model.Agent(agentID); !ok {
			out = append(out, domain.Violation{Constraint: domain.ConstraintReference, OrderID: orderID, AgentID: agentID, Cause: "unknown agent"})
			continue
		}
		loads[agentID] = append(loads[agentID], o)
	}

	for _, u := range alloc.Unassigned {
		if agentID, ok := alloc.Assignments[u.OrderID]; ok {
			out = append(out, domain.Violation{Constraint: domain.ConstraintReference, OrderID: u.OrderID, AgentID: agentID, Cause: "order both assigned and unassigned"})
		}
	}

	for agentID, load := range loads {
		agent, _ := v.env.Model.Agent(agentID)
		slices.SortFunc(load, func(a, b *domain.Order) int { return cmp.Compare(a.ID, b.ID) })

		ev := Evaluation{Agent: agent, Load: load}
		for _, r := range v.rules {
			out = append(out, r.Check(v.env, ev)...)
		}
	}

	slices.SortFunc(out, func(a, b domain.Violation) int {
		return cmp.Or(
			cmp.Compare(a.AgentID, b.AgentID),
			cmp.Compare(a.OrderID, b.OrderID),
			cmp.Compare(a.Constraint, b.Constraint),
			cmp.Compare(a.Cause, b.Cause),
		)
	})
	return out
}

// LoadOf resolves the orders assigned to agentID, sorted by id.
func (v *Verifier) LoadOf(alloc domain.Allocation, agentID string) []*domain.Order {
	ids := alloc.OrdersFor(agentID)
	out := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := v.env.Model.Order(id); ok {
			out = append(out, o)
		}
	}
	return out
}
