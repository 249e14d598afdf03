package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"pick-allocation-service/internal/domain"
)

// Fleet models the fleet profile file: one capability profile per agent type.
type Fleet struct {
	Profiles map[domain.AgentType]Profile `yaml:"profiles"`
}

type Profile struct {
	Speed           float64  `yaml:"speed"`
	CostPerDistance float64  `yaml:"cost_per_distance"`
	CostPerMinute   float64  `yaml:"cost_per_minute"`
	MaxItemWeight   float64  `yaml:"max_item_weight"`
	Classes         []string `yaml:"classes"`
	DeniedZones     []string `yaml:"denied_zones"`
}

// DefaultFleetYAML is the profile table used when no file is configured.
const DefaultFleetYAML = `profiles:
  robot:
    speed: 2
    cost_per_distance: 0.05
    cost_per_minute: 0.2
    max_item_weight: 25
    classes: [standard]
  human:
    speed: 1
    cost_per_distance: 0.1
    cost_per_minute: 0.5
    max_item_weight: 30
    classes: [standard, fragile, hazardous]
  cart:
    speed: 0.8
    cost_per_distance: 0.08
    cost_per_minute: 0.3
    classes: [standard, fragile, oversized]
`

// LoadFleet reads the profile file at path, or the default table when path is empty.
func LoadFleet(path string) (*Fleet, error) {
	if path == "" {
		return FromYAML([]byte(DefaultFleetYAML))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("fleet profile %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML decodes and validates a fleet profile document. Unknown fields are rejected.
func FromYAML(data []byte) (*Fleet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fleet
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fleet profile: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fleet) Validate() error {
	if len(f.Profiles) == 0 {
		return fmt.Errorf("fleet.profiles is required")
	}
	for typ, p := range f.Profiles {
		if !typ.Valid() {
			return fmt.Errorf("fleet profile for unknown agent type %q", typ)
		}
		if p.Speed <= 0 {
			return fmt.Errorf("fleet profile %s: speed must be positive", typ)
		}
		if p.CostPerDistance < 0 || p.CostPerMinute < 0 {
			return fmt.Errorf("fleet profile %s: cost rates must not be negative", typ)
		}
		if p.MaxItemWeight < 0 {
			return fmt.Errorf("fleet profile %s: max_item_weight must not be negative", typ)
		}
		if len(p.Classes) == 0 {
			return fmt.Errorf("fleet profile %s: classes is required", typ)
		}
		for _, c := range p.Classes {
			if !domain.ProductClass(c).Valid() {
				return fmt.Errorf("fleet profile %s: unknown product class %q", typ, c)
			}
		}
		for _, z := range p.DeniedZones {
			if z == "" {
				return fmt.Errorf("fleet profile %s has empty denied zone id", typ)
			}
		}
	}
	return nil
}

// Capabilities builds the immutable capability value for every profile.
func (f *Fleet) Capabilities() (map[domain.AgentType]domain.Capabilities, error) {
	out := make(map[domain.AgentType]domain.Capabilities, len(f.Profiles))
	for typ, p := range f.Profiles {
		classes := make([]domain.ProductClass, 0, len(p.Classes))
		for _, c := range p.Classes {
			classes = append(classes, domain.ProductClass(c))
		}
		caps, err := domain.NewCapabilities(domain.CapabilitySpec{
			Speed:           p.Speed,
			CostPerDistance: p.CostPerDistance,
			CostPerMinute:   p.CostPerMinute,
			MaxItemWeight:   p.MaxItemWeight,
			Classes:         classes,
			DeniedZones:     slices.Clone(p.DeniedZones),
		})
		if err != nil {
			return nil, fmt.Errorf("fleet profile %s: %w", typ, err)
		}
		out[typ] = caps
	}
	return out, nil
}

// NewAgent builds an agent of typ using the fleet's profile for that type.
func (f *Fleet) NewAgent(id string, typ domain.AgentType, capacity domain.Capacity, base domain.Position) (*domain.Agent, error) {
	all, err := f.Capabilities()
	if err != nil {
		return nil, err
	}
	caps, ok := all[typ]
	if !ok {
		return nil, fmt.Errorf("fleet has no profile for agent type %q", typ)
	}
	return domain.NewAgent(id, typ, capacity, base, caps)
}
