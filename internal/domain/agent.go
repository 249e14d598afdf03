package domain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

type AgentType string

const (
	AgentRobot AgentType = "robot"
	AgentHuman AgentType = "human"
	AgentCart  AgentType = "cart"
)

func (t AgentType) Valid() bool {
	switch t {
	case AgentRobot, AgentHuman, AgentCart:
		return true
	}
	return false
}

// Per-trip load limits. A zero Weight or Volume leaves that dimension unlimited.
type Capacity struct {
	Items  int
	Weight float64 // kg
	Volume float64 // litres
}

// CapabilitySpec is the mutable description an agent type's capabilities are
// built from (see config fleet profiles).
type CapabilitySpec struct {
	Speed           float64 // cells per minute
	CostPerDistance float64
	CostPerMinute   float64
	MaxItemWeight   float64 // 0 = unlimited
	Classes         []ProductClass
	DeniedZones     []string
}

// Capabilities of an agent. Fixed at creation; there are no mutators.
type Capabilities struct {
	speed           float64
	costPerDistance float64
	costPerMinute   float64
	maxItemWeight   float64
	classes         map[ProductClass]struct{}
	deniedZones     map[string]struct{}
}

func NewCapabilities(spec CapabilitySpec) (Capabilities, error) {
	if spec.Speed <= 0 {
		return Capabilities{}, fmt.Errorf("capabilities: speed must be positive (got %v)", spec.Speed)
	}
	if spec.CostPerDistance < 0 || spec.CostPerMinute < 0 {
		return Capabilities{}, errors.New("capabilities: cost rates must not be negative")
	}

	c := Capabilities{
		speed:           spec.Speed,
		costPerDistance: spec.CostPerDistance,
		costPerMinute:   spec.CostPerMinute,
		maxItemWeight:   spec.MaxItemWeight,
		classes:         make(map[ProductClass]struct{}, len(spec.Classes)),
		deniedZones:     make(map[string]struct{}, len(spec.DeniedZones)),
	}
	for _, cl := range spec.Classes {
		if !cl.Valid() {
			return Capabilities{}, fmt.Errorf("capabilities: unknown product class %q", cl)
		}
		c.classes[cl] = struct{}{}
	}
	for _, z := range spec.DeniedZones {
		c.deniedZones[z] = struct{}{}
	}
	return c, nil
}

func (c Capabilities) Speed() float64           { return c.speed }
func (c Capabilities) CostPerDistance() float64 { return c.costPerDistance }
func (c Capabilities) CostPerMinute() float64   { return c.costPerMinute }
func (c Capabilities) MaxItemWeight() float64   { return c.maxItemWeight }

func (c Capabilities) CanHandle(class ProductClass) bool {
	_, ok := c.classes[class]
	return ok
}

func (c Capabilities) MayEnter(zoneID string) bool {
	_, denied := c.deniedZones[zoneID]
	return !denied
}

// Classes returns the handled classes in sorted order.
func (c Capabilities) Classes() []ProductClass {
	return slices.Sorted(maps.Keys(c.classes))
}

// A mobile resource that picks orders: robot, human picker or cart.
type Agent struct {
	ID       string
	Type     AgentType
	Capacity Capacity
	Base     Position

	// Operator is the id of the human agent pushing a cart.
	Operator string

	caps Capabilities
}

func NewAgent(id string, typ AgentType, capacity Capacity, base Position, caps Capabilities) (*Agent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("new agent: id must be non-empty")
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("new agent: %s has unknown type %q", id, typ)
	}
	if capacity.Items <= 0 {
		return nil, fmt.Errorf("new agent: %s capacity must be positive (capacity=%d)", id, capacity.Items)
	}
	if capacity.Weight < 0 || capacity.Volume < 0 {
		return nil, fmt.Errorf("new agent: %s weight and volume capacity must not be negative", id)
	}
	if caps.speed <= 0 {
		return nil, fmt.Errorf("new agent: %s capabilities not initialised", id)
	}

	return &Agent{
		ID:       id,
		Type:     typ,
		Capacity: capacity,
		Base:     base,
		caps:     caps,
	}, nil
}

func (a *Agent) Capabilities() Capabilities { return a.caps }
