package constraints

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pick-allocation-service/internal/domain"
)

type fixture struct {
	model *domain.Model
	robot *domain.Agent
	human *domain.Agent
	v     *Verifier
}

func newAgent(t *testing.T, id string, typ domain.AgentType, items int, spec domain.CapabilitySpec) *domain.Agent {
	t.Helper()
	caps, err := domain.NewCapabilities(spec)
	require.NoError(t, err)
	a, err := domain.NewAgent(id, typ, domain.Capacity{Items: items}, domain.Position{}, caps)
	require.NoError(t, err)
	return a
}

// Two zones on a 1x4 strip: A = x0..1 (rep x0), B = x2..3 (rep x2).
func newFixture(t *testing.T, extraAgents []*domain.Agent, orders ...*domain.Order) fixture {
	t.Helper()

	w, err := domain.NewWarehouse(1, 4, []domain.Zone{
		{ID: "A", Cells: domain.Rect(0, 0, 1, 0)},
		{ID: "B", Cells: domain.Rect(2, 0, 3, 0)},
	}, nil)
	require.NoError(t, err)

	products := []*domain.Product{
		{ID: "pA", Zone: "A", Class: domain.ClassStandard, Weight: 1},
		{ID: "pB", Zone: "B", Class: domain.ClassStandard, Weight: 1},
		{ID: "pF", Zone: "A", Class: domain.ClassFragile, Weight: 1},
		{ID: "pH", Zone: "A", Class: domain.ClassHazardous, Weight: 1, IncompatibleWith: []string{"pF"}},
		{ID: "pV", Zone: "A", Class: domain.ClassStandard, Weight: 1, Volume: 40},
	}

	robot := newAgent(t, "r1", domain.AgentRobot, 5, domain.CapabilitySpec{
		Speed: 2, CostPerDistance: 0.05, Classes: []domain.ProductClass{domain.ClassStandard}, DeniedZones: []string{"B"},
	})
	human := newAgent(t, "h1", domain.AgentHuman, 3, domain.CapabilitySpec{
		Speed: 1, CostPerDistance: 0.1,
		Classes: []domain.ProductClass{domain.ClassStandard, domain.ClassFragile, domain.ClassHazardous},
	})

	agents := append([]*domain.Agent{robot, human}, extraAgents...)
	m, err := domain.NewModel(w, products, agents, orders)
	require.NoError(t, err)

	return fixture{
		model: m,
		robot: robot,
		human: human,
		v:     NewVerifier(m, domain.ManhattanDistances{}, domain.DefaultParams()),
	}
}

func order(id string, lines ...domain.LineItem) *domain.Order {
	return &domain.Order{ID: id, Lines: lines, Priority: domain.PriorityStandard}
}

func line(product string, qty int) domain.LineItem {
	return domain.LineItem{ProductID: product, Quantity: qty}
}

func constraintsOf(vs []domain.Violation) []domain.ConstraintID {
	out := make([]domain.ConstraintID, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Constraint)
	}
	return out
}

func TestZoneAccess(t *testing.T) {
	x := order("X", line("pA", 2))
	y := order("Y", line("pB", 2))
	f := newFixture(t, nil, x, y)

	require.Empty(t, f.v.CheckAssignment(x, f.robot, nil))
	require.Empty(t, f.v.CheckAssignment(x, f.human, nil))
	require.Empty(t, f.v.CheckAssignment(y, f.human, nil))

	vs := f.v.CheckAssignment(y, f.robot, nil)
	require.Equal(t, []domain.ConstraintID{domain.ConstraintZoneAccess}, constraintsOf(vs))
	require.Equal(t, "Y", vs[0].OrderID)
	require.Equal(t, "r1", vs[0].AgentID)
}

func TestZoneAllowedTypes(t *testing.T) {
	w, err := domain.NewWarehouse(1, 2, []domain.Zone{
		{ID: "A", Cells: domain.Rect(0, 0, 0, 0)},
		{ID: "H", Cells: domain.Rect(1, 0, 1, 0), AllowedTypes: []domain.AgentType{domain.AgentHuman}},
	}, nil)
	require.NoError(t, err)

	robot := newAgent(t, "r1", domain.AgentRobot, 5, domain.CapabilitySpec{Speed: 1, Classes: []domain.ProductClass{domain.ClassStandard}})
	o := order("o", line("p", 1))
	m, err := domain.NewModel(w, []*domain.Product{{ID: "p", Zone: "H", Class: domain.ClassStandard}}, []*domain.Agent{robot}, []*domain.Order{o})
	require.NoError(t, err)

	vs := NewVerifier(m, nil, domain.DefaultParams()).CheckAssignment(o, robot, nil)
	require.Equal(t, []domain.ConstraintID{domain.ConstraintZoneAccess}, constraintsOf(vs))
	require.Contains(t, vs[0].Cause, "admits only human")
}

func TestCapacityCumulative(t *testing.T) {
	x := order("X", line("pA", 2))
	y := order("Y", line("pB", 2))
	f := newFixture(t, nil, x, y)

	require.Empty(t, f.v.CheckAssignment(x, f.human, nil))
	vs := f.v.CheckAssignment(y, f.human, []*domain.Order{x})
	require.Equal(t, []domain.ConstraintID{domain.ConstraintCapacity}, constraintsOf(vs))
	require.Equal(t, "Y", vs[0].OrderID)
}

func TestWeightCapacity(t *testing.T) {
	heavy := order("W", line("pA", 3))
	f := newFixture(t, nil, heavy)

	caps, err := domain.NewCapabilities(domain.CapabilitySpec{Speed: 1, Classes: []domain.ProductClass{domain.ClassStandard}})
	require.NoError(t, err)
	a, err := domain.NewAgent("w1", domain.AgentHuman, domain.Capacity{Items: 10, Weight: 2.5}, domain.Position{}, caps)
	require.NoError(t, err)

	vs := f.v.CheckAssignment(heavy, a, nil)
	require.Equal(t, []domain.ConstraintID{domain.ConstraintCapacity}, constraintsOf(vs))
	require.Contains(t, vs[0].Cause, "weight capacity")
}

func TestVolumeCapacity(t *testing.T) {
	bulky := order("V", line("pV", 2))
	small := order("S", line("pA", 1))
	f := newFixture(t, nil, bulky, small)

	caps, err := domain.NewCapabilities(domain.CapabilitySpec{Speed: 1, Classes: []domain.ProductClass{domain.ClassStandard}})
	require.NoError(t, err)
	a, err := domain.NewAgent("v1", domain.AgentHuman, domain.Capacity{Items: 10, Volume: 60}, domain.Position{}, caps)
	require.NoError(t, err)

	vs := f.v.CheckAssignment(bulky, a, nil)
	require.Equal(t, []domain.ConstraintID{domain.ConstraintCapacity}, constraintsOf(vs))
	require.Contains(t, vs[0].Cause, "volume capacity")

	// Products without a volume take no space.
	require.Empty(t, f.v.CheckAssignment(small, a, nil))
	// Without a volume limit only items and weight count.
	require.Empty(t, f.v.CheckAssignment(bulky, f.human, nil))
}

func TestMalformedOrders(t *testing.T) {
	empty := order("E")
	zero := order("Z", line("pA", 0))
	ghost := order("G", line("nope", 1))
	f := newFixture(t, nil, empty, zero, ghost)

	for _, o := range []*domain.Order{empty, zero, ghost} {
		for _, a := range f.model.Agents {
			vs := f.v.CheckAssignment(o, a, nil)
			require.Contains(t, constraintsOf(vs), domain.ConstraintReference, "%s on %s", o.ID, a.ID)
		}
	}

	alloc := domain.NewAllocation()
	alloc.Assignments["E"] = "h1"
	vs := f.v.Verify(alloc)
	require.Equal(t, []domain.Violation{
		{Constraint: domain.ConstraintReference, OrderID: "E", AgentID: "h1", Cause: "order has no lines"},
	}, vs)
}

func TestCompatibility(t *testing.T) {
	fragile := order("F", line("pF", 1))
	f := newFixture(t, nil, fragile)

	vs := f.v.CheckAssignment(fragile, f.robot, nil)
	require.Equal(t, []domain.ConstraintID{domain.ConstraintCompatibility}, constraintsOf(vs))
	require.Empty(t, f.v.CheckAssignment(fragile, f.human, nil))

	agents, causes := f.v.Candidates(fragile)
	require.Len(t, agents, 1)
	require.Equal(t, "h1", agents[0].ID)
	require.Len(t, causes, 1)
	require.Contains(t, causes[0], "C3 r1")
}

func TestDeadline(t *testing.T) {
	// Human at x0 walks 2 cells to B at 1 cell/min, plus 0.5 min picking.
	tight := order("T", line("pB", 1))
	tight.Deadline = 2 * time.Minute
	ok := order("K", line("pB", 1))
	ok.Deadline = 150 * time.Second
	f := newFixture(t, nil, tight, ok)

	vs := f.v.CheckAssignment(tight, f.human, nil)
	require.Equal(t, []domain.ConstraintID{domain.ConstraintTime}, constraintsOf(vs))
	require.Empty(t, f.v.CheckAssignment(ok, f.human, nil))

	require.InDelta(t, 2.5, TripMinutes(f.v.Env(), f.human, []*domain.Order{ok}), 1e-9)
	// Same zone adds picking time only.
	require.InDelta(t, 3.0, TripMinutes(f.v.Env(), f.human, []*domain.Order{ok, tight}), 1e-9)
}

func TestDeadlineOfEarlierOrderBrokenByNewOne(t *testing.T) {
	first := order("A1", line("pA", 1))
	first.Deadline = 45 * time.Second
	second := order("B1", line("pB", 1))
	f := newFixture(t, nil, first, second)

	require.Empty(t, f.v.CheckAssignment(first, f.human, nil))
	vs := f.v.CheckAssignment(second, f.human, []*domain.Order{first})
	require.Len(t, vs, 1)
	require.Equal(t, domain.ConstraintTime, vs[0].Constraint)
	require.Equal(t, "A1", vs[0].OrderID)
}

func TestCoLoading(t *testing.T) {
	haz := order("H", line("pH", 1))
	frag := order("F", line("pF", 1))
	f := newFixture(t, nil, haz, frag)

	require.Empty(t, f.v.CheckAssignment(haz, f.human, nil))
	vs := f.v.CheckAssignment(frag, f.human, []*domain.Order{haz})
	require.Equal(t, []domain.ConstraintID{domain.ConstraintCoLoading}, constraintsOf(vs))
	require.Equal(t, "F", vs[0].OrderID)
}

func TestCartOperator(t *testing.T) {
	cartSpec := domain.CapabilitySpec{Speed: 1, Classes: []domain.ProductClass{domain.ClassStandard}}
	orphan := newAgent(t, "c1", domain.AgentCart, 10, cartSpec)
	pushed := newAgent(t, "c2", domain.AgentCart, 10, cartSpec)
	pushed.Operator = "h1"
	wrong := newAgent(t, "c3", domain.AgentCart, 10, cartSpec)
	wrong.Operator = "r1"

	x := order("X", line("pA", 1))
	f := newFixture(t, []*domain.Agent{orphan, pushed, wrong}, x)

	require.Equal(t, []domain.ConstraintID{domain.ConstraintOperator}, constraintsOf(f.v.CheckAssignment(x, orphan, nil)))
	require.Empty(t, f.v.CheckAssignment(x, pushed, nil))
	require.Equal(t, []domain.ConstraintID{domain.ConstraintOperator}, constraintsOf(f.v.CheckAssignment(x, wrong, nil)))

	// h1 is paired with c2 and no longer picks alone.
	vs := f.v.CheckAssignment(x, f.human, nil)
	require.Equal(t, []domain.ConstraintID{domain.ConstraintOperator}, constraintsOf(vs))
	require.Contains(t, vs[0].Cause, "operates cart c2")
}

func TestCartOperatorIsExclusive(t *testing.T) {
	cartSpec := domain.CapabilitySpec{Speed: 1, Classes: []domain.ProductClass{domain.ClassStandard}}
	first := newAgent(t, "c1", domain.AgentCart, 10, cartSpec)
	first.Operator = "h1"
	second := newAgent(t, "c2", domain.AgentCart, 10, cartSpec)
	second.Operator = "h1"

	o1 := order("o1", line("pA", 1))
	o2 := order("o2", line("pA", 1))
	o3 := order("o3", line("pA", 1))
	f := newFixture(t, []*domain.Agent{first, second}, o1, o2, o3)

	require.Empty(t, f.v.CheckAssignment(o2, first, nil))
	vs := f.v.CheckAssignment(o3, second, nil)
	require.Equal(t, []domain.ConstraintID{domain.ConstraintOperator}, constraintsOf(vs))
	require.Contains(t, vs[0].Cause, "operator h1 already runs cart c1")

	alloc := domain.NewAllocation()
	alloc.Assignments["o1"] = "h1"
	alloc.Assignments["o2"] = "c1"
	alloc.Assignments["o3"] = "c2"

	vs = f.v.Verify(alloc)
	require.Len(t, vs, 2)
	require.Equal(t, domain.Violation{Constraint: domain.ConstraintOperator, OrderID: "o3", AgentID: "c2", Cause: "operator h1 already runs cart c1"}, vs[0])
	require.Equal(t, domain.Violation{Constraint: domain.ConstraintOperator, OrderID: "o1", AgentID: "h1", Cause: "h1 operates cart c1"}, vs[1])
}

func TestVerifyAllocation(t *testing.T) {
	x := order("X", line("pA", 2))
	y := order("Y", line("pB", 2))
	f := newFixture(t, nil, x, y)

	good := domain.NewAllocation()
	good.Assignments["X"] = "r1"
	good.Assignments["Y"] = "h1"
	require.Empty(t, f.v.Verify(good))

	bad := domain.NewAllocation()
	bad.Assignments["X"] = "h1"
	bad.Assignments["Y"] = "r1"
	bad.Assignments["Z"] = "h1"
	bad.Unassigned = []domain.UnassignedOrder{{OrderID: "X"}}

	vs := f.v.Verify(bad)
	require.Equal(t, []domain.Violation{
		{Constraint: domain.ConstraintReference, OrderID: "X", AgentID: "h1", Cause: "order both assigned and unassigned"},
		{Constraint: domain.ConstraintReference, OrderID: "Z", AgentID: "h1", Cause: "unknown order"},
		{Constraint: domain.ConstraintZoneAccess, OrderID: "Y", AgentID: "r1", Cause: "robot agents may not enter zone B"},
	}, vs)
}

func TestVerifyReportsOverflowOnce(t *testing.T) {
	a := order("A", line("pA", 2))
	b := order("B", line("pA", 2))
	c := order("C", line("pB", 2))
	f := newFixture(t, nil, a, b, c)

	alloc := domain.NewAllocation()
	alloc.Assignments["A"] = "h1"
	alloc.Assignments["B"] = "h1"
	alloc.Assignments["C"] = "h1"

	vs := f.v.Verify(alloc)
	require.Len(t, vs, 1)
	require.Equal(t, domain.ConstraintCapacity, vs[0].Constraint)
	require.Equal(t, "B", vs[0].OrderID)
}

func TestCustomRuleTable(t *testing.T) {
	x := order("X", line("pA", 2))
	f := newFixture(t, nil, x)

	noRobots := Rule{
		ID:   "C7",
		Name: "no robots",
		Check: func(env Env, ev Evaluation) []domain.Violation {
			if ev.Agent.Type == domain.AgentRobot {
				return []domain.Violation{{Constraint: "C7", OrderID: ev.Candidate.ID, AgentID: ev.Agent.ID, Cause: "robots disabled"}}
			}
			return nil
		},
	}

	v := NewVerifier(f.model, nil, domain.DefaultParams(), append(DefaultRules(), noRobots)...)
	require.Len(t, v.Rules(), 8)
	require.Equal(t, []domain.ConstraintID{"C7"}, constraintsOf(v.CheckAssignment(x, f.robot, nil)))
}
