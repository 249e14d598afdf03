package services

import (
	"math"

	"pick-allocation-service/internal/domain"
)

// ComputeMetrics summarises one allocation and its routes. Costs use the same
// trip pricing the optimal allocator minimizes. Inputs are not modified.
func ComputeMetrics(
	model *domain.Model,
	result domain.AllocationResult,
	routes []domain.Route,
	violations []domain.Violation,
	params domain.Params,
) domain.Metrics {
	m := domain.Metrics{
		Strategy:      result.Strategy,
		Fulfilled:     result.Allocation.Fulfilled(),
		TotalOrders:   len(model.Orders),
		Violations:    len(violations),
		SolveDuration: result.SolveDuration,
		Status:        result.Status,
		Proven:        result.Proven,
		Agents:        make([]domain.AgentUsage, 0, len(model.Agents)),
	}

	byAgent := make(map[string]domain.Route, len(routes))
	for _, r := range routes {
		byAgent[r.AgentID] = r
	}

	var busy []float64
	for _, a := range model.Agents {
		u := domain.AgentUsage{AgentID: a.ID}

		lines := 0
		for _, id := range result.Allocation.OrdersFor(a.ID) {
			o, ok := model.Order(id)
			if !ok {
				continue
			}
			u.Orders++
			u.Items += o.Quantity()
			lines += len(o.Lines)
		}

		if r, ok := byAgent[a.ID]; ok {
			u.Distance = r.Length
		}
		if a.Capacity.Items > 0 {
			u.Utilization = float64(u.Items) / float64(a.Capacity.Items)
		}
		if u.Orders > 0 {
			u.Minutes = tripMinutes(params, a, u.Distance, lines)
			u.Cost = tripCost(params, a, u.Distance, lines, u.Orders)
			busy = append(busy, u.Minutes)
		}

		m.TotalDistance += u.Distance
		m.TotalMinutes += u.Minutes
		m.Makespan = max(m.Makespan, u.Minutes)
		m.TotalCost += u.Cost
		m.Agents = append(m.Agents, u)
	}

	m.LoadBalanceStd = stddev(busy)
	return m
}

// PercentReduction is how much smaller candidate is than baseline, in percent.
// Negative when candidate is larger; zero when baseline is zero.
func PercentReduction(baseline, candidate float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (baseline - candidate) / baseline * 100
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)))
}
