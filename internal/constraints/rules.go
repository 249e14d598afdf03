package constraints

import (
	"fmt"
	"slices"
	"strings"

	"pick-allocation-service/internal/domain"
)

// Env is the read-only context every rule is evaluated against.
type Env struct {
	Model     *domain.Model
	Distances domain.Distances
	Params    domain.Params
}

// Evaluation is one agent with a prospective load.
//
// Candidate is the order being added when checking a single pairing; it is nil
// when a finished load is verified. Load always includes the candidate.
type Evaluation struct {
	Agent     *domain.Agent
	Load      []*domain.Order
	Candidate *domain.Order
}

// orders a per-order rule has to look at.
func (ev Evaluation) targets() []*domain.Order {
	if ev.Candidate != nil {
		return []*domain.Order{ev.Candidate}
	}
	return ev.Load
}

// Rule is one independent feasibility predicate.
type Rule struct {
	ID    domain.ConstraintID
	Name  string
	Check func(env Env, ev Evaluation) []domain.Violation
}

// DefaultRules is the full rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{ID: domain.ConstraintReference, Name: "order reference", Check: checkReference},
		{ID: domain.ConstraintCapacity, Name: "capacity", Check: checkCapacity},
		{ID: domain.ConstraintZoneAccess, Name: "zone access", Check: checkZoneAccess},
		{ID: domain.ConstraintCompatibility, Name: "compatibility", Check: checkCompatibility},
		{ID: domain.ConstraintTime, Name: "deadline", Check: checkDeadline},
		{ID: domain.ConstraintCoLoading, Name: "co-loading", Check: checkCoLoading},
		{ID: domain.ConstraintOperator, Name: "cart operator", Check: checkOperator},
	}
}

func violation(id domain.ConstraintID, o *domain.Order, a *domain.Agent, format string, args ...any) domain.Violation {
	return domain.Violation{
		Constraint: id,
		OrderID:    o.ID,
		AgentID:    a.ID,
		Cause:      fmt.Sprintf(format, args...),
	}
}

// C0: the order is well formed, with at least one line, positive quantities
// and a zone to pick from.
func checkReference(env Env, ev Evaluation) []domain.Violation {
	var out []domain.Violation
	for _, o := range ev.targets() {
		if len(o.Lines) == 0 {
			out = append(out, violation(domain.ConstraintReference, o, ev.Agent, "order has no lines"))
			continue
		}
		for _, l := range o.Lines {
			if l.Quantity <= 0 {
				out = append(out, violation(domain.ConstraintReference, o, ev.Agent,
					"line %s has non-positive quantity %d", l.ProductID, l.Quantity))
			}
		}
		if len(o.Zones(env.Model.Products)) == 0 {
			out = append(out, violation(domain.ConstraintReference, o, ev.Agent, "order has no resolvable zone"))
		}
	}
	return out
}

// C1: cumulative items, weight and volume of the load, in load order. Reports
// the order at which the load first overflows.
func checkCapacity(env Env, ev Evaluation) []domain.Violation {
	capacity := ev.Agent.Capacity
	items := 0
	var weight, volume float64

	for _, o := range ev.Load {
		items += o.Quantity()
		weight += o.Weight(env.Model.Products)
		volume += o.Volume(env.Model.Products)

		if items > capacity.Items {
			return []domain.Violation{violation(domain.ConstraintCapacity, o, ev.Agent,
				"load of %d items exceeds capacity %d", items, capacity.Items)}
		}
		if capacity.Weight > 0 && weight > capacity.Weight+1e-9 {
			return []domain.Violation{violation(domain.ConstraintCapacity, o, ev.Agent,
				"load of %.2fkg exceeds weight capacity %.2fkg", weight, capacity.Weight)}
		}
		if capacity.Volume > 0 && volume > capacity.Volume+1e-9 {
			return []domain.Violation{violation(domain.ConstraintCapacity, o, ev.Agent,
				"load of %.2fl exceeds volume capacity %.2fl", volume, capacity.Volume)}
		}
	}
	return nil
}

// C2: every zone of the order admits the agent's type and is not denied to it.
func checkZoneAccess(env Env, ev Evaluation) []domain.Violation {
	var out []domain.Violation
	caps := ev.Agent.Capabilities()

	for _, o := range ev.targets() {
		for _, zid := range o.Zones(env.Model.Products) {
			z, ok := env.Model.Warehouse.Zone(zid)
			if !ok {
				out = append(out, violation(domain.ConstraintZoneAccess, o, ev.Agent, "zone %q does not exist", zid))
				continue
			}
			if !z.Admits(ev.Agent.Type) {
				out = append(out, violation(domain.ConstraintZoneAccess, o, ev.Agent,
					"zone %s admits only %s", zid, joinTypes(z.AllowedTypes)))
				continue
			}
			if !caps.MayEnter(zid) {
				out = append(out, violation(domain.ConstraintZoneAccess, o, ev.Agent,
					"%s agents may not enter zone %s", ev.Agent.Type, zid))
			}
		}
	}
	return out
}

// C3: the agent handles every product class in the order, within its item weight limit.
func checkCompatibility(env Env, ev Evaluation) []domain.Violation {
	var out []domain.Violation
	caps := ev.Agent.Capabilities()

	for _, o := range ev.targets() {
		for _, l := range o.Lines {
			p, ok := env.Model.Products[l.ProductID]
			if !ok {
				out = append(out, violation(domain.ConstraintCompatibility, o, ev.Agent, "unknown product %q", l.ProductID))
				continue
			}
			if !caps.CanHandle(p.Class) {
				out = append(out, violation(domain.ConstraintCompatibility, o, ev.Agent,
					"%s agents cannot handle %s product %s", ev.Agent.Type, p.Class, p.ID))
				continue
			}
			if limit := caps.MaxItemWeight(); limit > 0 && p.Weight > limit {
				out = append(out, violation(domain.ConstraintCompatibility, o, ev.Agent,
					"product %s weighs %.2fkg, limit %.2fkg", p.ID, p.Weight, limit))
			}
		}
	}
	return out
}

// C4: estimated trip time of the whole load must meet every deadline in it.
func checkDeadline(env Env, ev Evaluation) []domain.Violation {
	var out []domain.Violation
	minutes := TripMinutes(env, ev.Agent, ev.Load)

	for _, o := range ev.Load {
		if !o.HasDeadline() {
			continue
		}
		if limit := o.Deadline.Minutes(); minutes > limit+1e-9 {
			out = append(out, violation(domain.ConstraintTime, o, ev.Agent,
				"trip estimate %.1f min misses deadline %.1f min", minutes, limit))
		}
	}
	return out
}

// TripMinutes estimates the duration of an agent's trip over load: one-way
// travel from the base to each distinct zone plus picking time per line.
// Order independent and monotone in the load.
func TripMinutes(env Env, a *domain.Agent, load []*domain.Order) float64 {
	zones := make(map[string]struct{})
	lines := 0
	for _, o := range load {
		lines += len(o.Lines)
		for _, z := range o.Zones(env.Model.Products) {
			zones[z] = struct{}{}
		}
	}

	travel := 0
	for zid := range zones {
		if z, ok := env.Model.Warehouse.Zone(zid); ok {
			travel += env.Distances.Between(a.Base, z.Representative())
		}
	}

	return float64(travel)/a.Capabilities().Speed() + env.Params.PickMinutesPerLine*float64(lines)
}

// C5: products flagged as incompatible may not share a load.
func checkCoLoading(env Env, ev Evaluation) []domain.Violation {
	var out []domain.Violation
	seen := make(map[string]string) // product id -> order id

	for _, o := range ev.Load {
		for _, l := range o.Lines {
			p, ok := env.Model.Products[l.ProductID]
			if !ok {
				continue
			}
			for other, owner := range seen {
				if other == p.ID {
					continue
				}
				if incompatible(env.Model.Products, p, other) {
					out = append(out, violation(domain.ConstraintCoLoading, o, ev.Agent,
						"product %s cannot travel with %s (order %s)", p.ID, other, owner))
				}
			}
			if _, ok := seen[p.ID]; !ok {
				seen[p.ID] = o.ID
			}
		}
	}

	slices.SortFunc(out, func(a, b domain.Violation) int { return strings.Compare(a.Cause, b.Cause) })
	return out
}

func incompatible(products map[string]*domain.Product, p *domain.Product, otherID string) bool {
	if slices.Contains(p.IncompatibleWith, otherID) {
		return true
	}
	if q, ok := products[otherID]; ok && slices.Contains(q.IncompatibleWith, p.ID) {
		return true
	}
	return false
}

// C6: a cart runs with one human operator and a human runs at most one cart.
// When carts share an operator the lowest cart id keeps them. A human paired
// with a cart picks only through that cart.
func checkOperator(env Env, ev Evaluation) []domain.Violation {
	var cause string
	switch ev.Agent.Type {
	case domain.AgentCart:
		cause = cartOperatorCause(env.Model, ev.Agent)
	case domain.AgentHuman:
		if cart, ok := env.Model.OperatedCart(ev.Agent.ID); ok {
			cause = fmt.Sprintf("%s operates cart %s", ev.Agent.ID, cart.ID)
		}
	}
	if cause == "" {
		return nil
	}

	out := make([]domain.Violation, 0, len(ev.targets()))
	for _, o := range ev.targets() {
		out = append(out, violation(domain.ConstraintOperator, o, ev.Agent, "%s", cause))
	}
	return out
}

func cartOperatorCause(model *domain.Model, cart *domain.Agent) string {
	if cart.Operator == "" {
		return "cart has no operator"
	}
	op, ok := model.Agent(cart.Operator)
	if !ok || op.Type != domain.AgentHuman {
		return fmt.Sprintf("cart operator %q is not a human agent", cart.Operator)
	}
	if held, _ := model.OperatedCart(op.ID); held.ID != cart.ID {
		return fmt.Sprintf("operator %s already runs cart %s", op.ID, held.ID)
	}
	return ""
}

func joinTypes(ts []domain.AgentType) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ",")
}
