package services

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"math/bits"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"pick-allocation-service/internal/constraints"
	"pick-allocation-service/internal/domain"
	"pick-allocation-service/internal/platform/obs"
)

const costEps = 1e-9

// OptimalAllocator searches the whole order set at once with depth-first
// branch and bound over (order, agent) decisions.
//
// The objective is lexicographic: assign as many orders as possible, then
// minimize the same trip cost Metrics reports. The incumbent starts from the
// Seed strategy (greedy by default), so the result is never worse than the
// seed. Feasibility of every branch is decided by the shared verifier.
//
// The search stops at Params.TimeLimit. When the limit is hit the best
// solution found is returned with status timeout.
type OptimalAllocator struct {
	Seed Allocator
}

func NewOptimalAllocator() *OptimalAllocator {
	return &OptimalAllocator{Seed: NewGreedyAllocator()}
}

func (a *OptimalAllocator) Name() string { return "optimal" }

func (a *OptimalAllocator) Allocate(
	ctx context.Context,
	model *domain.Model,
	verifier *constraints.Verifier,
) (_ domain.AllocationResult, err error) {
	defer obs.Time(ctx, "allocate.optimal")(&err)

	if err := checkInputs(model, verifier); err != nil {
		return domain.AllocationResult{}, err
	}

	start := time.Now()
	params := verifier.Env().Params
	deadline := start.Add(params.TimeLimit)

	seedAlloc := a.Seed
	if seedAlloc == nil {
		seedAlloc = NewGreedyAllocator()
	}
	seed, err := seedAlloc.Allocate(ctx, model, verifier)
	if err != nil {
		return domain.AllocationResult{}, fmt.Errorf("optimal allocate: seed: %w", err)
	}

	result := func(status domain.SolveStatus, alloc domain.Allocation, objective float64) domain.AllocationResult {
		return domain.AllocationResult{
			Strategy:      a.Name(),
			Allocation:    alloc,
			Status:        status,
			Proven:        status == domain.StatusOptimal,
			Objective:     objective,
			SolveDuration: time.Since(start),
		}
	}

	if params.TimeLimit <= 0 || !time.Now().Before(deadline) {
		return result(domain.StatusTimeout, seed.Allocation.Clone(), seed.Objective), nil
	}

	s := newSearch(ctx, model, verifier, deadline)

	if len(s.infeasible) > 0 && params.RequireFullCoverage {
		res := result(domain.StatusInfeasible, domain.NewAllocation(), 0)
		res.Conflicts = s.infeasible
		res.Allocation.Unassigned = slices.Clone(s.infeasible)
		return res, nil
	}

	seedFull := seed.Allocation.Fulfilled() == len(model.Orders)
	if !params.RequireFullCoverage || seedFull {
		s.best.set(seed.Allocation.Assignments, seed.Allocation.Fulfilled(), seed.Objective)
	}

	if err := s.run(params.SolverWorkers); err != nil {
		return domain.AllocationResult{}, fmt.Errorf("optimal allocate: %w", err)
	}

	log.Debug().
		Str("run_id", obs.RunID(ctx)).
		Int64("nodes", s.nodes.Load()).
		Bool("timed_out", s.timedOut.Load()).
		Msg("branch and bound finished")

	if !s.best.found {
		if s.timedOut.Load() {
			return result(domain.StatusTimeout, seed.Allocation.Clone(), seed.Objective), nil
		}
		// Search exhausted without a full cover: jointly infeasible.
		res := result(domain.StatusInfeasible, domain.NewAllocation(), 0)
		res.Conflicts = s.conflicts(seed.Allocation)
		res.Allocation.Unassigned = slices.Clone(res.Conflicts)
		return res, nil
	}

	alloc := s.allocation()
	objective := s.cost.allocationCost(verifier, alloc)

	switch {
	case s.timedOut.Load():
		return result(domain.StatusTimeout, alloc, objective), nil
	case s.inexact.Load():
		return result(domain.StatusFeasible, alloc, objective), nil
	default:
		return result(domain.StatusOptimal, alloc, objective), nil
	}
}

// incumbent is the best solution found so far, shared by all workers.
type incumbent struct {
	mu       sync.Mutex
	found    bool
	assigned int
	cost     float64
	assign   map[string]string
}

func (b *incumbent) set(assign map[string]string, assigned int, cost float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.found = true
	b.assigned = assigned
	b.cost = cost
	b.assign = make(map[string]string, len(assign))
	for k, v := range assign {
		b.assign[k] = v
	}
}

func (b *incumbent) snapshot() (bool, int, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.found, b.assigned, b.cost
}

// offer replaces the incumbent if (assigned, cost) is strictly better.
func (b *incumbent) offer(assigned int, cost float64, build func() map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.found && (assigned < b.assigned || (assigned == b.assigned && cost >= b.cost-costEps)) {
		return
	}
	b.found = true
	b.assigned = assigned
	b.cost = cost
	b.assign = build()
}

type searchOrder struct {
	order      *domain.Order
	candidates []int // agent indices, standalone-feasible
	mask       uint64
	lines      int
	minAdd     float64 // lower bound on the cost of placing this order anywhere
}

type search struct {
	ctx      context.Context
	model    *domain.Model
	verifier *constraints.Verifier
	cost     costModel
	deadline time.Time
	full     bool
	useMask  bool

	orders     []searchOrder
	suffixMin  []float64
	infeasible []domain.UnassignedOrder

	best     incumbent
	timedOut atomic.Bool
	inexact  atomic.Bool
	nodes    atomic.Int64
}

func newSearch(ctx context.Context, model *domain.Model, verifier *constraints.Verifier, deadline time.Time) *search {
	params := verifier.Env().Params
	s := &search{
		ctx:      ctx,
		model:    model,
		verifier: verifier,
		cost:     newCostModel(verifier),
		deadline: deadline,
		full:     params.RequireFullCoverage,
		useMask:  len(model.Warehouse.Zones) <= 64,
	}

	agentIdx := make(map[string]int, len(model.Agents))
	for i, ag := range model.Agents {
		agentIdx[ag.ID] = i
	}

	for _, o := range model.Orders {
		agents, causes := verifier.Candidates(o)
		if len(agents) == 0 {
			s.infeasible = append(s.infeasible, domain.UnassignedOrder{OrderID: o.ID, Causes: causes})
			continue
		}

		so := searchOrder{order: o, lines: len(o.Lines), minAdd: math.Inf(1)}
		for _, ag := range agents {
			so.candidates = append(so.candidates, agentIdx[ag.ID])
			add := params.FixedOrderCost + params.PickMinutesPerLine*float64(so.lines)*ag.Capabilities().CostPerMinute()
			so.minAdd = min(so.minAdd, add)
		}
		if s.useMask {
			for _, z := range o.Zones(model.Products) {
				if i := model.Warehouse.ZoneIndex(z); i >= 0 {
					so.mask |= 1 << uint(i)
				}
			}
		}
		s.orders = append(s.orders, so)
	}

	// Most constrained first, then bigger orders, then id.
	slices.SortFunc(s.orders, func(a, b searchOrder) int {
		return cmp.Or(
			cmp.Compare(len(a.candidates), len(b.candidates)),
			cmp.Compare(b.order.Quantity(), a.order.Quantity()),
			cmp.Compare(a.order.ID, b.order.ID),
		)
	})

	s.suffixMin = make([]float64, len(s.orders)+1)
	for i := len(s.orders) - 1; i >= 0; i-- {
		s.suffixMin[i] = s.suffixMin[i+1] + s.orders[i].minAdd
	}

	return s
}

// run explores the first decision level in parallel; each branch is searched
// depth-first by its own worker.
func (s *search) run(workers int) error {
	if len(s.orders) == 0 {
		s.best.offer(0, 0, func() map[string]string { return map[string]string{} })
		return nil
	}
	if workers <= 0 {
		workers = 1
	}

	root := s.newWorker()
	options := root.options(0)

	g := new(errgroup.Group)
	g.SetLimit(workers)

	for _, ai := range options {
		g.Go(func() error {
			w := s.newWorker()
			w.push(0, ai)
			w.dfs(1)
			return nil
		})
	}
	if !s.full {
		g.Go(func() error {
			s.newWorker().dfs(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return s.ctx.Err()
}

func (s *search) stopped(w *worker) bool {
	if s.timedOut.Load() {
		return true
	}
	w.steps++
	if w.steps&255 == 0 && (time.Now().After(s.deadline) || s.ctx.Err() != nil) {
		s.timedOut.Store(true)
		return true
	}
	return false
}

func (s *search) allocation() domain.Allocation {
	s.best.mu.Lock()
	alloc := domain.NewAllocation()
	for k, v := range s.best.assign {
		alloc.Assignments[k] = v
	}
	s.best.mu.Unlock()

	alloc.Unassigned = append(alloc.Unassigned, s.infeasible...)
	for _, o := range s.model.Orders {
		if _, ok := alloc.Assignments[o.ID]; ok || s.isInfeasible(o.ID) {
			continue
		}
		alloc.Unassigned = append(alloc.Unassigned, domain.UnassignedOrder{OrderID: o.ID, Causes: s.causesAgainst(alloc, o)})
	}
	slices.SortFunc(alloc.Unassigned, func(a, b domain.UnassignedOrder) int { return cmp.Compare(a.OrderID, b.OrderID) })
	return alloc
}

// conflicts explains a proven-infeasible full cover using the seed's leftovers.
func (s *search) conflicts(seed domain.Allocation) []domain.UnassignedOrder {
	out := slices.Clone(s.infeasible)
	for _, o := range s.model.Orders {
		if _, ok := seed.Assignments[o.ID]; ok || s.isInfeasible(o.ID) {
			continue
		}
		causes := append([]string{"no joint placement covers every order"}, s.causesAgainst(seed, o)...)
		out = append(out, domain.UnassignedOrder{OrderID: o.ID, Causes: causes})
	}
	slices.SortFunc(out, func(a, b domain.UnassignedOrder) int { return cmp.Compare(a.OrderID, b.OrderID) })
	return out
}

func (s *search) causesAgainst(alloc domain.Allocation, o *domain.Order) []string {
	var causes []string
	for _, ag := range s.model.Agents {
		for _, v := range s.verifier.CheckAssignment(o, ag, s.verifier.LoadOf(alloc, ag.ID)) {
			causes = append(causes, fmt.Sprintf("%s %s: %s", v.Constraint, ag.ID, v.Cause))
		}
	}
	return causes
}

func (s *search) isInfeasible(id string) bool {
	return slices.ContainsFunc(s.infeasible, func(u domain.UnassignedOrder) bool { return u.OrderID == id })
}

type memoKey struct {
	agent int
	mask  uint64
}

// worker holds one depth-first search state. Not shared between goroutines.
type worker struct {
	s *search

	loads     [][]*domain.Order
	masks     []uint64
	lines     []int
	agentCost []float64
	cur       float64
	assign    []int
	assigned  int
	steps     int

	tours map[memoKey]int
}

type frame struct {
	mask uint64
	cost float64
}

func (s *search) newWorker() *worker {
	n := len(s.model.Agents)
	w := &worker{
		s:         s,
		loads:     make([][]*domain.Order, n),
		masks:     make([]uint64, n),
		lines:     make([]int, n),
		agentCost: make([]float64, n),
		assign:    make([]int, len(s.orders)),
		tours:     make(map[memoKey]int),
	}
	for i := range w.assign {
		w.assign[i] = -1
	}
	return w
}

func (w *worker) evalAgent(ai int) float64 {
	ag := w.s.model.Agents[ai]
	load := w.loads[ai]
	if len(load) == 0 {
		return 0
	}

	if !w.s.useMask {
		pts := w.s.cost.zonePoints(load)
		if !w.s.cost.seq.Exact(len(pts)) {
			w.s.inexact.Store(true)
		}
		return w.s.cost.loadCost(ag, load)
	}

	mask := w.masks[ai]
	stops := bits.OnesCount64(mask)
	if !w.s.cost.seq.Exact(stops) {
		w.s.inexact.Store(true)
	}

	key := memoKey{agent: ai, mask: mask}
	length, ok := w.tours[key]
	if !ok {
		pts := make([]domain.Position, 0, stops)
		for m := mask; m != 0; m &= m - 1 {
			pts = append(pts, w.s.model.Warehouse.Zones[bits.TrailingZeros64(m)].Representative())
		}
		length = w.s.cost.seq.TourLength(ag.Base, pts)
		w.tours[key] = length
	}
	return w.s.cost.tripCost(ag, length, w.lines[ai], len(load))
}

func (w *worker) push(p, ai int) frame {
	so := w.s.orders[p]
	f := frame{mask: w.masks[ai], cost: w.agentCost[ai]}

	w.loads[ai] = append(w.loads[ai], so.order)
	w.masks[ai] |= so.mask
	w.lines[ai] += so.lines

	c := w.evalAgent(ai)
	w.cur += c - w.agentCost[ai]
	w.agentCost[ai] = c
	w.assign[p] = ai
	w.assigned++
	return f
}

func (w *worker) pop(p, ai int, f frame) {
	so := w.s.orders[p]
	w.loads[ai] = w.loads[ai][:len(w.loads[ai])-1]
	w.masks[ai] = f.mask
	w.lines[ai] -= so.lines
	w.cur += f.cost - w.agentCost[ai]
	w.agentCost[ai] = f.cost
	w.assign[p] = -1
	w.assigned--
}

// options returns the feasible agents for order p given current loads,
// cheapest marginal cost first.
func (w *worker) options(p int) []int {
	so := w.s.orders[p]
	type option struct {
		ai    int
		delta float64
	}
	opts := make([]option, 0, len(so.candidates))

	for _, ai := range so.candidates {
		if len(w.s.verifier.CheckAssignment(so.order, w.s.model.Agents[ai], w.loads[ai])) > 0 {
			continue
		}
		before := w.cur
		f := w.push(p, ai)
		opts = append(opts, option{ai: ai, delta: w.cur - before})
		w.pop(p, ai, f)
	}

	slices.SortFunc(opts, func(a, b option) int {
		return cmp.Or(cmp.Compare(a.delta, b.delta), cmp.Compare(a.ai, b.ai))
	})

	out := make([]int, len(opts))
	for i, o := range opts {
		out[i] = o.ai
	}
	return out
}

// prune reports whether no completion of the current state can beat the incumbent.
func (w *worker) prune(p int) bool {
	found, bestAssigned, bestCost := w.s.best.snapshot()
	if !found {
		return false
	}
	maxAssigned := w.assigned + len(w.s.orders) - p
	if maxAssigned < bestAssigned {
		return true
	}
	if maxAssigned > bestAssigned {
		return false
	}
	// Matching the incumbent's count means every remaining order gets placed.
	return w.cur+w.s.suffixMin[p] >= bestCost-costEps
}

func (w *worker) dfs(p int) {
	if w.s.stopped(w) {
		return
	}
	w.s.nodes.Add(1)

	if p == len(w.s.orders) {
		w.s.best.offer(w.assigned, w.cur, w.snapshot)
		return
	}
	if w.prune(p) {
		return
	}

	for _, ai := range w.options(p) {
		f := w.push(p, ai)
		w.dfs(p + 1)
		w.pop(p, ai, f)
		if w.s.timedOut.Load() {
			return
		}
	}

	if !w.s.full {
		w.dfs(p + 1)
	}
}

func (w *worker) snapshot() map[string]string {
	out := make(map[string]string, w.assigned)
	for p, ai := range w.assign {
		if ai >= 0 {
			out[w.s.orders[p].order.ID] = w.s.model.Agents[ai].ID
		}
	}
	return out
}
