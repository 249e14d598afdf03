package domain

import (
	"slices"
	"time"
)

type Priority string

const (
	PriorityStandard Priority = "standard"
	PriorityExpress  Priority = "express"
)

// One (product, quantity) pair of an order.
type LineItem struct {
	ProductID string
	Quantity  int
}

// A customer order to be picked as a whole by one agent.
// Deadline is measured from shift start; zero means no deadline.
type Order struct {
	ID       string
	Lines    []LineItem
	Priority Priority
	Deadline time.Duration
}

func (o *Order) HasDeadline() bool { return o.Deadline > 0 }

func (o *Order) Express() bool { return o.Priority == PriorityExpress }

// Total number of units across all lines.
func (o *Order) Quantity() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

// Weight of the order given the product catalogue. Unknown products weigh nothing.
func (o *Order) Weight(products map[string]*Product) float64 {
	var w float64
	for _, l := range o.Lines {
		if p, ok := products[l.ProductID]; ok {
			w += p.Weight * float64(l.Quantity)
		}
	}
	return w
}

// Volume of the order in litres. Unknown products take no space.
func (o *Order) Volume(products map[string]*Product) float64 {
	var v float64
	for _, l := range o.Lines {
		if p, ok := products[l.ProductID]; ok {
			v += p.Volume * float64(l.Quantity)
		}
	}
	return v
}

// Zones visited to pick the order, sorted and deduplicated.
func (o *Order) Zones(products map[string]*Product) []string {
	zones := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		if p, ok := products[l.ProductID]; ok {
			zones = append(zones, p.Zone)
		}
	}
	slices.Sort(zones)
	return slices.Compact(zones)
}

// OriginZone is the zone holding the largest share of the order's units.
// Ties go to the lowest zone id.
func (o *Order) OriginZone(products map[string]*Product) string {
	units := make(map[string]int)
	for _, l := range o.Lines {
		if p, ok := products[l.ProductID]; ok {
			units[p.Zone] += l.Quantity
		}
	}

	best, bestUnits := "", -1
	for _, z := range o.Zones(products) {
		if units[z] > bestUnits {
			best, bestUnits = z, units[z]
		}
	}
	return best
}
