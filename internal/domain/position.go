package domain

import "fmt"

// Immutable grid cell (column X, row Y).
type Position struct {
	X int
	Y int
}

// Key returns a stable "x,y" form used for cache keys and map lookups.
func (p Position) Key() string { return fmt.Sprintf("%d,%d", p.X, p.Y) }

func (p Position) String() string { return "(" + p.Key() + ")" }

// Manhattan distance between two cells.
func (p Position) Manhattan(q Position) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y)
}

// Less orders positions row-major, used for deterministic tie-breaks.
func (p Position) Less(q Position) bool {
	if p.Y != q.Y {
		return p.Y < q.Y
	}
	return p.X < q.X
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
