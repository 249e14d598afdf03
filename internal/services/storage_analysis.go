package services

import (
	"cmp"
	"slices"
	"strings"

	"pick-allocation-service/internal/domain"
)

// ProductPair is an unordered pair of product ids with A < B.
type ProductPair struct {
	A, B string
}

func NewProductPair(x, y string) ProductPair {
	if y < x {
		x, y = y, x
	}
	return ProductPair{A: x, B: y}
}

type ProductCount struct {
	ProductID string
	Units     int
}

type PairCount struct {
	Pair   ProductPair
	Orders int
}

// StorageAnalysis summarises pick demand over an order history.
type StorageAnalysis struct {
	Frequency map[string]int      // units ordered per product
	Affinity  map[ProductPair]int // orders holding both products
}

// AnalyzeStorage counts ordered units per product and how often each pair of
// distinct products shares an order.
func AnalyzeStorage(orders []*domain.Order) StorageAnalysis {
	s := StorageAnalysis{
		Frequency: make(map[string]int),
		Affinity:  make(map[ProductPair]int),
	}

	for _, o := range orders {
		ids := make([]string, 0, len(o.Lines))
		for _, l := range o.Lines {
			if l.Quantity <= 0 {
				continue
			}
			s.Frequency[l.ProductID] += l.Quantity
			ids = append(ids, l.ProductID)
		}

		slices.Sort(ids)
		ids = slices.Compact(ids)
		for i := range ids {
			for j := i + 1; j < len(ids); j++ {
				s.Affinity[ProductPair{A: ids[i], B: ids[j]}]++
			}
		}
	}
	return s
}

// TopProducts returns up to n products by ordered units, ties by id.
func (s StorageAnalysis) TopProducts(n int) []ProductCount {
	out := make([]ProductCount, 0, len(s.Frequency))
	for id, units := range s.Frequency {
		out = append(out, ProductCount{ProductID: id, Units: units})
	}
	slices.SortFunc(out, func(a, b ProductCount) int {
		return cmp.Or(cmp.Compare(b.Units, a.Units), cmp.Compare(a.ProductID, b.ProductID))
	})
	return out[:min(max(n, 0), len(out))]
}

// TopPairs returns up to n product pairs by shared orders, ties by pair.
func (s StorageAnalysis) TopPairs(n int) []PairCount {
	out := make([]PairCount, 0, len(s.Affinity))
	for p, c := range s.Affinity {
		out = append(out, PairCount{Pair: p, Orders: c})
	}
	slices.SortFunc(out, func(a, b PairCount) int {
		return cmp.Or(
			cmp.Compare(b.Orders, a.Orders),
			cmp.Compare(a.Pair.A, b.Pair.A),
			cmp.Compare(a.Pair.B, b.Pair.B),
		)
	})
	return out[:min(max(n, 0), len(out))]
}

// SlottingProposal re-slots products so the most demanded sit in the zones
// nearest the dock. Distances are demand weighted: units times dock distance.
type SlottingProposal struct {
	Moves            map[string]string // product id -> proposed zone, changed products only
	CurrentDistance  int
	ProposedDistance int
}

func (p SlottingProposal) ImprovementPct() float64 {
	return PercentReduction(float64(p.CurrentDistance), float64(p.ProposedDistance))
}

// ProposeSlotting keeps every zone's product count and only swaps products
// between zones with the same access rules, so no agent loses reach to a
// product. Within such a group the busiest product takes the closest slot.
// Products in unknown zones are left out.
func ProposeSlotting(model *domain.Model, dist domain.Distances, dock domain.Position, analysis StorageAnalysis) SlottingProposal {
	if dist == nil {
		dist = domain.ManhattanDistances{}
	}

	dockDist := make(map[string]int, len(model.Warehouse.Zones))
	for _, z := range model.Warehouse.Zones {
		dockDist[z.ID] = dist.Between(dock, z.Representative())
	}

	groups := make(map[string][]*domain.Product)
	for _, p := range model.Products {
		z, ok := model.Warehouse.Zone(p.Zone)
		if !ok {
			continue
		}
		key := accessKey(z)
		groups[key] = append(groups[key], p)
	}

	out := SlottingProposal{Moves: make(map[string]string)}
	for _, products := range groups {
		slots := make([]string, 0, len(products))
		for _, p := range products {
			slots = append(slots, p.Zone)
		}
		slices.SortFunc(slots, func(a, b string) int {
			return cmp.Or(cmp.Compare(dockDist[a], dockDist[b]), cmp.Compare(a, b))
		})
		slices.SortFunc(products, func(a, b *domain.Product) int {
			return cmp.Or(
				cmp.Compare(analysis.Frequency[b.ID], analysis.Frequency[a.ID]),
				cmp.Compare(dockDist[a.Zone], dockDist[b.Zone]),
				cmp.Compare(a.Zone, b.Zone),
				cmp.Compare(a.ID, b.ID),
			)
		})

		for i, p := range products {
			units := analysis.Frequency[p.ID]
			out.CurrentDistance += units * dockDist[p.Zone]
			out.ProposedDistance += units * dockDist[slots[i]]
			if slots[i] != p.Zone {
				out.Moves[p.ID] = slots[i]
			}
		}
	}
	return out
}

func accessKey(z domain.Zone) string {
	types := make([]string, 0, len(z.AllowedTypes))
	for _, t := range z.AllowedTypes {
		types = append(types, string(t))
	}
	slices.Sort(types)
	return strings.Join(types, ",")
}
