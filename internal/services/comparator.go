package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pick-allocation-service/internal/domain"
	"pick-allocation-service/internal/platform/obs"
)

// Comparison reports how much the candidate strategy saves over the baseline.
//
// FulfilledDelta is candidate minus baseline fulfilled orders. A candidate that
// places more orders can cost more, so reductions go negative with it.
type Comparison struct {
	RunID                string
	Baseline             RunResult
	Candidate            RunResult
	FulfilledDelta       int
	DistanceReductionPct float64
	CostReductionPct     float64
}

// Comparator runs two strategies over the same model through one planner.
// It holds no per-run state and can be reused for repeated trials.
type Comparator struct {
	planner   *Planner
	baseline  Allocator
	candidate Allocator
}

func NewComparator(planner *Planner, baseline, candidate Allocator) *Comparator {
	return &Comparator{planner: planner, baseline: baseline, candidate: candidate}
}

// DefaultComparator compares greedy (baseline) against optimal (candidate).
func DefaultComparator(planner *Planner) *Comparator {
	return NewComparator(planner, NewGreedyAllocator(), NewOptimalAllocator())
}

func (c *Comparator) Compare(ctx context.Context, model *domain.Model) (_ Comparison, err error) {
	if c.planner == nil || c.baseline == nil || c.candidate == nil {
		return Comparison{}, errors.New("compare: planner and both strategies are required")
	}

	runID := uuid.NewString()
	ctx = obs.WithRunID(ctx, runID)
	defer obs.Time(ctx, "compare")(&err)

	base, err := c.planner.Run(ctx, model, c.baseline)
	if err != nil {
		return Comparison{}, fmt.Errorf("compare: baseline %s: %w", c.baseline.Name(), err)
	}
	cand, err := c.planner.Run(ctx, model, c.candidate)
	if err != nil {
		return Comparison{}, fmt.Errorf("compare: candidate %s: %w", c.candidate.Name(), err)
	}

	cmp := Comparison{
		RunID:                runID,
		Baseline:             base,
		Candidate:            cand,
		FulfilledDelta:       cand.Metrics.Fulfilled - base.Metrics.Fulfilled,
		DistanceReductionPct: PercentReduction(float64(base.Metrics.TotalDistance), float64(cand.Metrics.TotalDistance)),
		CostReductionPct:     PercentReduction(base.Metrics.TotalCost, cand.Metrics.TotalCost),
	}

	log.Info().
		Str("run_id", runID).
		Str("baseline", base.Result.Strategy).
		Str("candidate", cand.Result.Strategy).
		Int("fulfilled_delta", cmp.FulfilledDelta).
		Float64("distance_reduction_pct", cmp.DistanceReductionPct).
		Float64("cost_reduction_pct", cmp.CostReductionPct).
		Msg("comparison complete")

	return cmp, nil
}
