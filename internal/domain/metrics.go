package domain

import "time"

type AgentUsage struct {
	AgentID     string
	Orders      int
	Items       int
	Utilization float64 // items / capacity
	Distance    int
	Minutes     float64
	Cost        float64
}

// Metrics is a read-only snapshot derived from one allocation and its routes.
type Metrics struct {
	Strategy       string
	TotalDistance  int
	TotalCost      float64
	TotalMinutes   float64
	Makespan       float64 // longest agent trip, minutes
	Fulfilled      int
	TotalOrders    int
	Violations     int
	SolveDuration  time.Duration
	Status         SolveStatus
	Proven         bool
	Agents         []AgentUsage
	LoadBalanceStd float64
}

func (m Metrics) FulfillmentRate() float64 {
	if m.TotalOrders == 0 {
		return 0
	}
	return float64(m.Fulfilled) / float64(m.TotalOrders)
}
