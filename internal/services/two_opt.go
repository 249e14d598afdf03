package services

const maxTwoOptPasses = 100

// improveTwoOpt applies first-improvement 2-opt to order. The base stays fixed
// at the start; for open tours the last stop is free to change.
//
// Reversing a segment only preserves the interior legs when the metric is
// symmetric, which holds for every distance provider in use.
func improveTwoOpt(order []int, n int, w weightFunc, closed bool) []int {
	// tour[0] is the base so segment boundaries never need special-casing.
	tour := make([]int, 0, len(order)+1)
	tour = append(tour, n)
	tour = append(tour, order...)
	m := len(tour)

	for pass := 0; pass < maxTwoOptPasses; pass++ {
		improved := false
		for i := 1; i < m-1; i++ {
			for k := i + 1; k < m; k++ {
				a, b, c := tour[i-1], tour[i], tour[k]

				delta := w(a, c) - w(a, b)
				switch {
				case k+1 < m:
					e := tour[k+1]
					delta += w(b, e) - w(c, e)
				case closed:
					delta += w(b, n) - w(c, n)
				}

				if delta < 0 {
					reverse(tour[i : k+1])
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}

	return tour[1:]
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
