package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pick-allocation-service/internal/constraints"
	"pick-allocation-service/internal/domain"
	"pick-allocation-service/internal/platform/obs"
)

// RunResult is one strategy's full pass over a model.
type RunResult struct {
	RunID   string
	Result  domain.AllocationResult
	Routes  []domain.Route
	Metrics domain.Metrics
}

// Planner runs allocate, verify, route and measure for one strategy.
type Planner struct {
	dist   domain.Distances
	params domain.Params
	rules  []constraints.Rule
}

// NewPlanner builds a planner. A nil dist falls back to Manhattan distances;
// rules override the default constraint table.
func NewPlanner(dist domain.Distances, params domain.Params, rules ...constraints.Rule) *Planner {
	if dist == nil {
		dist = domain.ManhattanDistances{}
	}
	return &Planner{dist: dist, params: params, rules: rules}
}

func (p *Planner) Params() domain.Params { return p.params }

// Verifier returns the verifier Run uses for model.
func (p *Planner) Verifier(model *domain.Model) *constraints.Verifier {
	return constraints.NewVerifier(model, p.dist, p.params, p.rules...)
}

// Run executes one strategy. An allocation that fails verification is
// discarded and returned as *domain.ConstraintViolationError.
func (p *Planner) Run(ctx context.Context, model *domain.Model, allocator Allocator) (_ RunResult, err error) {
	if allocator == nil {
		return RunResult{}, errors.New("plan: allocator is nil")
	}
	if model == nil {
		return RunResult{}, errors.New("plan: model is nil")
	}

	runID := obs.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = obs.WithRunID(ctx, runID)
	}
	defer obs.Time(ctx, "plan."+allocator.Name())(&err)

	verifier := p.Verifier(model)

	res, err := allocator.Allocate(ctx, model, verifier)
	if err != nil {
		return RunResult{}, fmt.Errorf("plan %s: allocate: %w", allocator.Name(), err)
	}
	if res.Strategy == "" {
		res.Strategy = allocator.Name()
	}
	obs.SolveDuration.WithLabelValues(res.Strategy, string(res.Status)).Observe(res.SolveDuration.Seconds())

	if violations := verifier.Verify(res.Allocation); len(violations) > 0 {
		for _, v := range violations {
			obs.ConstraintViolations.WithLabelValues(res.Strategy, string(v.Constraint)).Inc()
		}
		return RunResult{}, &domain.ConstraintViolationError{Strategy: res.Strategy, Violations: violations}
	}

	routes, err := NewRouteSequencer(p.dist, p.params).RouteAll(ctx, model, res.Allocation)
	if err != nil {
		return RunResult{}, fmt.Errorf("plan %s: %w", res.Strategy, err)
	}

	metrics := ComputeMetrics(model, res, routes, nil, p.params)

	obs.OrdersFulfilled.WithLabelValues(res.Strategy).Set(float64(metrics.Fulfilled))
	obs.TotalCost.WithLabelValues(res.Strategy).Set(metrics.TotalCost)
	for _, r := range routes {
		if len(r.Stops) > 0 {
			obs.RouteLength.WithLabelValues(res.Strategy).Observe(float64(r.Length))
		}
	}

	log.Info().
		Str("run_id", runID).
		Str("strategy", res.Strategy).
		Str("status", string(res.Status)).
		Bool("proven", res.Proven).
		Int("fulfilled", metrics.Fulfilled).
		Int("orders", metrics.TotalOrders).
		Int("distance", metrics.TotalDistance).
		Float64("cost", metrics.TotalCost).
		Float64("makespan_min", metrics.Makespan).
		Dur("solve", res.SolveDuration).
		Msg("plan complete")

	return RunResult{RunID: runID, Result: res, Routes: routes, Metrics: metrics}, nil
}
