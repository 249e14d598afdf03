package services

import "math"

// heldKarpOrder returns a minimum-length tour over n stops from the base using
// the Held-Karp dynamic program, O(2^n * n^2).
//
// dp[mask][j] is the shortest walk from the base through exactly the stops in
// mask ending at j. Strict comparisons keep the lowest indices on ties.
func heldKarpOrder(n int, w weightFunc, closed bool) ([]int, int) {
	if n == 0 {
		return nil, 0
	}

	full := 1<<n - 1
	dp := make([]int, (full+1)*n)
	parent := make([]int, (full+1)*n)
	for i := range dp {
		dp[i] = math.MaxInt
		parent[i] = -1
	}

	for j := 0; j < n; j++ {
		dp[(1<<j)*n+j] = w(n, j)
	}

	for mask := 1; mask <= full; mask++ {
		for j := 0; j < n; j++ {
			if mask&(1<<j) == 0 {
				continue
			}
			cur := dp[mask*n+j]
			if cur == math.MaxInt {
				continue
			}
			for k := 0; k < n; k++ {
				if mask&(1<<k) != 0 {
					continue
				}
				next := mask | 1<<k
				if d := cur + w(j, k); d < dp[next*n+k] {
					dp[next*n+k] = d
					parent[next*n+k] = j
				}
			}
		}
	}

	last, best := -1, math.MaxInt
	for j := 0; j < n; j++ {
		d := dp[full*n+j]
		if closed {
			d += w(j, n)
		}
		if d < best {
			last, best = j, d
		}
	}

	order := make([]int, n)
	mask := full
	for i := n - 1; i >= 0; i-- {
		order[i] = last
		prev := parent[mask*n+last]
		mask &^= 1 << last
		last = prev
	}

	return order, best
}
