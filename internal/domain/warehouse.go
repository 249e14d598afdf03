package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// A named partition of the warehouse grid.
//
// AllowedTypes restricts which agent types may enter the zone; an empty list
// means the zone is open to every type.
type Zone struct {
	ID           string
	Name         string
	Cells        []Position
	AllowedTypes []AgentType

	representative Position
}

// Representative is the walkable cell nearest to the zone centroid. Routes
// visit a zone at this position.
func (z Zone) Representative() Position { return z.representative }

// Admits reports whether agents of type t may enter the zone.
func (z Zone) Admits(t AgentType) bool {
	if len(z.AllowedTypes) == 0 {
		return true
	}
	return slices.Contains(z.AllowedTypes, t)
}

// Warehouse grid of Rows x Cols cells partitioned into zones.
// Blocked cells (racks, walls) belong to a zone but cannot be walked through.
type Warehouse struct {
	Rows  int
	Cols  int
	Zones []Zone

	blocked map[Position]struct{}
	zoneOf  map[Position]int
	byID    map[string]int
}

// NewWarehouse validates that the zones partition the grid and returns the warehouse.
func NewWarehouse(rows, cols int, zones []Zone, blocked []Position) (*Warehouse, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("new warehouse: grid must be positive (rows=%d cols=%d)", rows, cols)
	}
	if len(zones) == 0 {
		return nil, errors.New("new warehouse: at least one zone is required")
	}

	w := &Warehouse{
		Rows:    rows,
		Cols:    cols,
		Zones:   make([]Zone, len(zones)),
		blocked: make(map[Position]struct{}, len(blocked)),
		zoneOf:  make(map[Position]int, rows*cols),
		byID:    make(map[string]int, len(zones)),
	}

	for _, b := range blocked {
		if !w.inGrid(b) {
			return nil, fmt.Errorf("new warehouse: blocked cell %s outside grid", b)
		}
		w.blocked[b] = struct{}{}
	}

	for i, z := range zones {
		id := strings.TrimSpace(z.ID)
		if id == "" {
			return nil, fmt.Errorf("new warehouse: zone #%d has empty id", i+1)
		}
		if _, dup := w.byID[id]; dup {
			return nil, fmt.Errorf("new warehouse: duplicate zone id %q", id)
		}
		if len(z.Cells) == 0 {
			return nil, fmt.Errorf("new warehouse: zone %q is empty", id)
		}

		for _, c := range z.Cells {
			if !w.inGrid(c) {
				return nil, fmt.Errorf("new warehouse: zone %q cell %s outside grid", id, c)
			}
			if other, taken := w.zoneOf[c]; taken {
				return nil, fmt.Errorf("new warehouse: cell %s in both %q and %q", c, w.Zones[other].ID, id)
			}
			w.zoneOf[c] = i
		}

		rep, ok := w.representative(z.Cells)
		if !ok {
			return nil, fmt.Errorf("new warehouse: zone %q has no walkable cell", id)
		}

		w.Zones[i] = Zone{
			ID:             id,
			Name:           z.Name,
			Cells:          slices.Clone(z.Cells),
			AllowedTypes:   slices.Clone(z.AllowedTypes),
			representative: rep,
		}
		w.byID[id] = i
	}

	if len(w.zoneOf) != rows*cols {
		return nil, fmt.Errorf("new warehouse: zones cover %d of %d cells", len(w.zoneOf), rows*cols)
	}

	return w, nil
}

// Zone looks up a zone by id.
func (w *Warehouse) Zone(id string) (Zone, bool) {
	i, ok := w.byID[id]
	if !ok {
		return Zone{}, false
	}
	return w.Zones[i], true
}

// ZoneIndex returns the position of zone id in Zones, or -1.
func (w *Warehouse) ZoneIndex(id string) int {
	i, ok := w.byID[id]
	if !ok {
		return -1
	}
	return i
}

// ZoneOf returns the zone containing pos.
func (w *Warehouse) ZoneOf(pos Position) (Zone, bool) {
	i, ok := w.zoneOf[pos]
	if !ok {
		return Zone{}, false
	}
	return w.Zones[i], true
}

// Walkable reports whether pos is inside the grid and not blocked.
func (w *Warehouse) Walkable(pos Position) bool {
	if !w.inGrid(pos) {
		return false
	}
	_, b := w.blocked[pos]
	return !b
}

func (w *Warehouse) inGrid(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < w.Cols && p.Y < w.Rows
}

func (w *Warehouse) representative(cells []Position) (Position, bool) {
	var sx, sy float64
	for _, c := range cells {
		sx += float64(c.X)
		sy += float64(c.Y)
	}
	cx := sx / float64(len(cells))
	cy := sy / float64(len(cells))

	var best Position
	bestDist := math.Inf(1)
	found := false
	for _, c := range cells {
		if !w.Walkable(c) {
			continue
		}
		d := math.Abs(float64(c.X)-cx) + math.Abs(float64(c.Y)-cy)
		if !found || d < bestDist || (d == bestDist && c.Less(best)) {
			best, bestDist, found = c, d, true
		}
	}
	return best, found
}

// Rect returns the cells of the rectangle [x0,x1] x [y0,y1], row-major.
func Rect(x0, y0, x1, y1 int) []Position {
	cells := make([]Position, 0, (x1-x0+1)*(y1-y0+1))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			cells = append(cells, Position{X: x, Y: y})
		}
	}
	return cells
}
