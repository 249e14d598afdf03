package domain

// Distances answers travel distance (in grid steps) between two positions.
type Distances interface {
	Between(a, b Position) int
}

// DistanceTable is a precomputed, read-only set of pairwise distances.
// Missing pairs fall back to Manhattan distance, which is a lower bound for
// every grid metric in use.
type DistanceTable struct {
	d map[[2]Position]int
}

func NewDistanceTable() *DistanceTable {
	return &DistanceTable{d: make(map[[2]Position]int)}
}

// Set records a symmetric distance. Only meant to be called while building.
func (t *DistanceTable) Set(a, b Position, dist int) {
	t.d[[2]Position{a, b}] = dist
	t.d[[2]Position{b, a}] = dist
}

func (t *DistanceTable) Lookup(a, b Position) (int, bool) {
	if a == b {
		return 0, true
	}
	d, ok := t.d[[2]Position{a, b}]
	return d, ok
}

func (t *DistanceTable) Between(a, b Position) int {
	if d, ok := t.Lookup(a, b); ok {
		return d
	}
	return a.Manhattan(b)
}

// ManhattanDistances is the obstacle-free grid metric.
type ManhattanDistances struct{}

func (ManhattanDistances) Between(a, b Position) int { return a.Manhattan(b) }
