package services

import "math"

// weightFunc returns the distance between two tour nodes. Index n (one past the
// last stop) is the agent's base.
type weightFunc func(i, j int) int

// nearestNeighborOrder builds a tour over n stops starting from the base by
// always walking to the closest unvisited stop.
//
// It minimizes the immediate step only. Ties go to the lower stop index, which
// keeps the result deterministic.
func nearestNeighborOrder(n int, w weightFunc) []int {
	visited := make([]bool, n)
	order := make([]int, 0, n)
	current := n

	for len(order) < n {
		best := -1
		bestDist := math.MaxInt
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			// Strict < keeps the lowest index on equal distances.
			if d := w(current, j); d < bestDist {
				best, bestDist = j, d
			}
		}

		visited[best] = true
		order = append(order, best)
		current = best
	}

	return order
}

// tourLength sums the legs base -> order... (-> base when closed).
func tourLength(order []int, n int, w weightFunc, closed bool) int {
	if len(order) == 0 {
		return 0
	}
	total := 0
	prev := n
	for _, j := range order {
		total += w(prev, j)
		prev = j
	}
	if closed {
		total += w(prev, n)
	}
	return total
}
