package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the planner.
	Registry = prometheus.NewRegistry()

	// SolveDuration records allocator wall time by strategy and status.
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "allocation_solve_seconds", Help: "Allocation solve duration in seconds.", Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}},
		[]string{"strategy", "status"},
	)
	// OrdersFulfilled is the number of orders assigned by the last run of a strategy.
	OrdersFulfilled = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "allocation_orders_fulfilled", Help: "Orders assigned by the last run."},
		[]string{"strategy"},
	)
	// TotalCost is the operating cost of the last run of a strategy.
	TotalCost = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "allocation_total_cost", Help: "Total operating cost of the last run."},
		[]string{"strategy"},
	)
	// ConstraintViolations counts violations found in post-hoc verification.
	ConstraintViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "allocation_constraint_violations_total", Help: "Violations found when verifying allocations."},
		[]string{"strategy", "constraint"},
	)
	// RouteLength records per-agent tour lengths in grid steps.
	RouteLength = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "route_length_steps", Help: "Per-agent tour length in grid steps.", Buckets: prometheus.LinearBuckets(0, 20, 10)},
		[]string{"strategy"},
	)
	// DistanceCacheLookups counts cache hits and misses by backend.
	DistanceCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "distance_cache_lookups_total", Help: "Distance cache lookups by result."},
		[]string{"result"},
	)
)

// RegisterDefault registers collectors to Registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(OrdersFulfilled)
		Registry.MustRegister(TotalCost)
		Registry.MustRegister(ConstraintViolations)
		Registry.MustRegister(RouteLength)
		Registry.MustRegister(DistanceCacheLookups)
		Registry.MustRegister(collectors.NewGoCollector())
	})
}

var regOnce sync.Once
