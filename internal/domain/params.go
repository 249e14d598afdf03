package domain

import "time"

// Params is the immutable planning configuration passed into every component,
// so greedy and optimal runs over the same Params are comparable.
type Params struct {
	PickMinutesPerLine  float64
	FixedOrderCost      float64
	ClosedTours         bool
	ExactStopLimit      int
	TimeLimit           time.Duration
	SolverWorkers       int
	RequireFullCoverage bool
	RouteParallelism    int
}

func DefaultParams() Params {
	return Params{
		PickMinutesPerLine:  0.5,
		FixedOrderCost:      0,
		ClosedTours:         true,
		ExactStopLimit:      8,
		TimeLimit:           10 * time.Second,
		SolverWorkers:       4,
		RequireFullCoverage: false,
		RouteParallelism:    5,
	}
}
