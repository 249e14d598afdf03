package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pick-allocation-service/internal/constraints"
	"pick-allocation-service/internal/domain"
	"pick-allocation-service/internal/platform/obs"
)

// fixedAllocator returns a canned allocation without consulting the verifier.
type fixedAllocator struct {
	assignments map[string]string
}

func (f fixedAllocator) Name() string { return "fixed" }

func (f fixedAllocator) Allocate(context.Context, *domain.Model, *constraints.Verifier) (domain.AllocationResult, error) {
	alloc := domain.NewAllocation()
	for k, v := range f.assignments {
		alloc.Assignments[k] = v
	}
	return domain.AllocationResult{Allocation: alloc, Status: domain.StatusFeasible}, nil
}

func TestPlannerRejectsInfeasibleAllocation(t *testing.T) {
	obs.RegisterDefault()
	m := stripModel(t, order("Y", line("pB", 1)))

	// The robot may not enter zone B.
	bogus := fixedAllocator{assignments: map[string]string{"Y": "r1"}}

	_, err := NewPlanner(nil, testParams()).Run(context.Background(), m, bogus)
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrConstraintViolation)

	var cv *domain.ConstraintViolationError
	require.True(t, errors.As(err, &cv))
	require.Equal(t, "fixed", cv.Strategy)
	require.Len(t, cv.Violations, 1)
	require.Equal(t, domain.ConstraintZoneAccess, cv.Violations[0].Constraint)
}

func TestPlannerRun(t *testing.T) {
	obs.RegisterDefault()
	m := stripModel(t, order("X", line("pA", 2)), order("Y", line("pB", 2)))
	p := testParams()

	out, err := NewPlanner(nil, p).Run(context.Background(), m, NewOptimalAllocator())
	require.NoError(t, err)

	_, err = uuid.Parse(out.RunID)
	require.NoError(t, err)

	require.Equal(t, "optimal", out.Metrics.Strategy)
	require.Equal(t, 2, out.Metrics.Fulfilled)
	require.Equal(t, 2, out.Metrics.TotalOrders)
	require.Zero(t, out.Metrics.Violations)
	require.Equal(t, domain.StatusOptimal, out.Metrics.Status)
	require.Len(t, out.Routes, len(m.Agents))

	total := 0
	for _, r := range out.Routes {
		total += r.Length
	}
	require.Equal(t, total, out.Metrics.TotalDistance)

	// The optimal objective is priced exactly like the reported metrics.
	require.InDelta(t, out.Result.Objective, out.Metrics.TotalCost, 1e-9)
}

func TestPlannerKeepsCallerRunID(t *testing.T) {
	m := stripModel(t, order("X", line("pA", 1)))
	ctx := obs.WithRunID(context.Background(), "run-1")

	out, err := NewPlanner(nil, testParams()).Run(ctx, m, NewGreedyAllocator())
	require.NoError(t, err)
	require.Equal(t, "run-1", out.RunID)
}

func TestPlannerObjectiveMatchesMetricsOnRandomModels(t *testing.T) {
	p := testParams()
	planner := NewPlanner(nil, p)

	for seed := uint64(30); seed < 34; seed++ {
		m := randomModel(t, seed, 6)
		for _, a := range []Allocator{NewGreedyAllocator(), NewOptimalAllocator()} {
			out, err := planner.Run(context.Background(), m, a)
			require.NoError(t, err)
			require.InDelta(t, out.Result.Objective, out.Metrics.TotalCost, 1e-9, a.Name())
		}
	}
}

func TestComputeMetrics(t *testing.T) {
	m := stripModel(t, order("X", line("pA", 2)), order("Y", line("pB", 1), line("pA", 1)))
	p := testParams()
	p.PickMinutesPerLine = 1

	alloc := domain.NewAllocation()
	alloc.Assignments["X"] = "r1"
	alloc.Assignments["Y"] = "h1"
	res := domain.AllocationResult{
		Strategy:      "manual",
		Allocation:    alloc,
		Status:        domain.StatusFeasible,
		SolveDuration: 3 * time.Millisecond,
	}

	routes := []domain.Route{
		{AgentID: "h1", Length: 4},
		{AgentID: "r1", Length: 2},
	}

	got := ComputeMetrics(m, res, routes, []domain.Violation{{Constraint: domain.ConstraintCapacity}}, p)

	require.Equal(t, 6, got.TotalDistance)
	require.Equal(t, 2, got.Fulfilled)
	require.Equal(t, 1, got.Violations)
	require.Equal(t, 3*time.Millisecond, got.SolveDuration)
	require.InDelta(t, 1.0, got.FulfillmentRate(), 1e-12)

	// h1: 4 steps at speed 1 + 2 lines = 6 min.
	//     cost 4*0.1 + 6*0.5 + 1 = 4.4
	// r1: 2 steps at speed 2 + 1 line = 2 min.
	//     cost 2*0.05 + 2*0.2 + 1 = 1.5
	require.Len(t, got.Agents, 2)
	h, r := got.Agents[0], got.Agents[1]
	require.Equal(t, "h1", h.AgentID)
	require.InDelta(t, 6.0, h.Minutes, 1e-12)
	require.InDelta(t, 4.4, h.Cost, 1e-12)
	require.InDelta(t, 2.0/3.0, h.Utilization, 1e-12)
	require.Equal(t, "r1", r.AgentID)
	require.InDelta(t, 2.0, r.Minutes, 1e-12)
	require.InDelta(t, 1.5, r.Cost, 1e-12)
	require.InDelta(t, 0.4, r.Utilization, 1e-12)

	require.InDelta(t, 5.9, got.TotalCost, 1e-12)
	require.InDelta(t, 8.0, got.TotalMinutes, 1e-12)
	require.InDelta(t, 6.0, got.Makespan, 1e-12)
	require.InDelta(t, 2.0, got.LoadBalanceStd, 1e-12)
}

func TestComputeMetricsIdleAgents(t *testing.T) {
	m := stripModel(t, order("X", line("pA", 1)))
	res := domain.AllocationResult{Strategy: "greedy", Allocation: domain.NewAllocation()}

	got := ComputeMetrics(m, res, nil, nil, testParams())
	require.Zero(t, got.TotalCost)
	require.Zero(t, got.TotalDistance)
	require.Zero(t, got.Fulfilled)
	require.Equal(t, 1, got.TotalOrders)
	require.Zero(t, got.FulfillmentRate())
	require.Zero(t, got.Makespan)
	require.Zero(t, got.LoadBalanceStd)
}

func TestPercentReduction(t *testing.T) {
	tests := []struct {
		name      string
		baseline  float64
		candidate float64
		want      float64
	}{
		{"halved", 10, 5, 50},
		{"equal", 7, 7, 0},
		{"worse", 4, 5, -25},
		{"zero baseline", 0, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, PercentReduction(tt.baseline, tt.candidate), 1e-12)
		})
	}
}

func TestComparatorCompare(t *testing.T) {
	p := testParams()
	c := DefaultComparator(NewPlanner(nil, p))

	for seed := uint64(40); seed < 44; seed++ {
		m := randomModel(t, seed, 6)

		got, err := c.Compare(context.Background(), m)
		require.NoError(t, err)

		_, err = uuid.Parse(got.RunID)
		require.NoError(t, err)
		require.Equal(t, got.RunID, got.Baseline.RunID)
		require.Equal(t, got.RunID, got.Candidate.RunID)

		require.Equal(t, "greedy", got.Baseline.Metrics.Strategy)
		require.Equal(t, "optimal", got.Candidate.Metrics.Strategy)

		base, cand := got.Baseline.Metrics, got.Candidate.Metrics
		require.Equal(t, cand.Fulfilled-base.Fulfilled, got.FulfilledDelta)
		require.GreaterOrEqual(t, got.FulfilledDelta, 0)
		if got.FulfilledDelta == 0 {
			require.GreaterOrEqual(t, got.CostReductionPct, -1e-9)
		}
		require.InDelta(t, PercentReduction(base.TotalCost, cand.TotalCost), got.CostReductionPct, 1e-12)
		require.InDelta(t,
			PercentReduction(float64(base.TotalDistance), float64(cand.TotalDistance)),
			got.DistanceReductionPct, 1e-12)
	}
}

func TestComparatorPropagatesViolation(t *testing.T) {
	m := stripModel(t, order("Y", line("pB", 1)))
	c := NewComparator(NewPlanner(nil, testParams()), NewGreedyAllocator(), fixedAllocator{assignments: map[string]string{"Y": "r1"}})

	_, err := c.Compare(context.Background(), m)
	require.ErrorIs(t, err, domain.ErrConstraintViolation)
}
