package domain

import (
	"cmp"
	"fmt"
	"slices"
)

// Model is the materialized input of one planning run. It is loaded once and
// treated as read-only by every component.
type Model struct {
	Warehouse *Warehouse
	Products  map[string]*Product
	Agents    []*Agent
	Orders    []*Order

	agentIdx map[string]int
	orderIdx map[string]int
}

// NewModel indexes the inputs. Agents and orders are kept sorted by id so that
// iteration order is stable across runs.
func NewModel(w *Warehouse, products []*Product, agents []*Agent, orders []*Order) (*Model, error) {
	if w == nil {
		return nil, fmt.Errorf("new model: warehouse is nil")
	}

	m := &Model{
		Warehouse: w,
		Products:  make(map[string]*Product, len(products)),
		Agents:    slices.Clone(agents),
		Orders:    slices.Clone(orders),
		agentIdx:  make(map[string]int, len(agents)),
		orderIdx:  make(map[string]int, len(orders)),
	}

	for _, p := range products {
		if _, dup := m.Products[p.ID]; dup {
			return nil, fmt.Errorf("new model: duplicate product %q", p.ID)
		}
		m.Products[p.ID] = p
	}

	slices.SortFunc(m.Agents, func(a, b *Agent) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(m.Orders, func(a, b *Order) int { return cmp.Compare(a.ID, b.ID) })

	for i, a := range m.Agents {
		if _, dup := m.agentIdx[a.ID]; dup {
			return nil, fmt.Errorf("new model: duplicate agent %q", a.ID)
		}
		m.agentIdx[a.ID] = i
	}
	for i, o := range m.Orders {
		if _, dup := m.orderIdx[o.ID]; dup {
			return nil, fmt.Errorf("new model: duplicate order %q", o.ID)
		}
		m.orderIdx[o.ID] = i
	}

	return m, nil
}

func (m *Model) Agent(id string) (*Agent, bool) {
	i, ok := m.agentIdx[id]
	if !ok {
		return nil, false
	}
	return m.Agents[i], true
}

func (m *Model) Order(id string) (*Order, bool) {
	i, ok := m.orderIdx[id]
	if !ok {
		return nil, false
	}
	return m.Orders[i], true
}

// OperatedCart is the cart humanID runs. When several carts name the same
// operator the lowest cart id holds the pairing.
func (m *Model) OperatedCart(humanID string) (*Agent, bool) {
	for _, a := range m.Agents {
		if a.Type == AgentCart && a.Operator == humanID {
			return a, true
		}
	}
	return nil, false
}

// Positions every distance lookup may need: agent bases and zone representatives.
func (m *Model) Waypoints() []Position {
	seen := make(map[Position]struct{})
	out := make([]Position, 0, len(m.Agents)+len(m.Warehouse.Zones))
	add := func(p Position) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, a := range m.Agents {
		add(a.Base)
	}
	for _, z := range m.Warehouse.Zones {
		add(z.Representative())
	}
	return out
}
