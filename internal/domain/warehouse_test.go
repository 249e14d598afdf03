package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewWarehousePartition(t *testing.T) {
	zones := []Zone{
		{ID: "A", Cells: Rect(0, 0, 1, 1)},
		{ID: "B", Cells: Rect(2, 0, 3, 1), AllowedTypes: []AgentType{AgentHuman}},
	}

	w, err := NewWarehouse(2, 4, zones, nil)
	require.NoError(t, err)

	z, ok := w.ZoneOf(Position{X: 3, Y: 1})
	require.True(t, ok)
	require.Equal(t, "B", z.ID)
	require.False(t, z.Admits(AgentRobot))
	require.True(t, z.Admits(AgentHuman))
	require.Equal(t, 1, w.ZoneIndex("B"))
	require.Equal(t, -1, w.ZoneIndex("Z"))

	// Centroid of a 2x2 block is equidistant to all cells; row-major first wins.
	a, _ := w.Zone("A")
	require.Equal(t, Position{X: 0, Y: 0}, a.Representative())
}

func TestNewWarehouseRejectsBadZones(t *testing.T) {
	tests := []struct {
		name  string
		zones []Zone
	}{
		{"empty zone", []Zone{{ID: "A", Cells: Rect(0, 0, 1, 1)}, {ID: "B"}}},
		{"overlap", []Zone{{ID: "A", Cells: Rect(0, 0, 1, 1)}, {ID: "B", Cells: Rect(1, 0, 1, 1)}}},
		{"gap", []Zone{{ID: "A", Cells: Rect(0, 0, 0, 1)}}},
		{"outside grid", []Zone{{ID: "A", Cells: Rect(0, 0, 2, 1)}}},
		{"duplicate id", []Zone{{ID: "A", Cells: Rect(0, 0, 0, 1)}, {ID: "A", Cells: Rect(1, 0, 1, 1)}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewWarehouse(2, 2, tc.zones, nil)
			require.Error(t, err)
		})
	}
}

func TestRepresentativeSkipsBlockedCells(t *testing.T) {
	zones := []Zone{{ID: "A", Cells: Rect(0, 0, 2, 2)}}

	w, err := NewWarehouse(3, 3, zones, []Position{{X: 1, Y: 1}})
	require.NoError(t, err)
	a, _ := w.Zone("A")
	require.Equal(t, Position{X: 1, Y: 0}, a.Representative())
	require.False(t, w.Walkable(Position{X: 1, Y: 1}))

	_, err = NewWarehouse(1, 1, []Zone{{ID: "A", Cells: Rect(0, 0, 0, 0)}}, []Position{{}})
	require.Error(t, err)
}

func TestOrderDerivedFields(t *testing.T) {
	products := map[string]*Product{
		"p1": {ID: "p1", Zone: "B", Weight: 2},
		"p2": {ID: "p2", Zone: "A", Weight: 1},
		"p3": {ID: "p3", Zone: "A", Weight: 0.5},
	}
	o := &Order{
		ID:       "o1",
		Lines:    []LineItem{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}, {ProductID: "p3", Quantity: 1}},
		Deadline: 30 * time.Minute,
	}

	require.Equal(t, 4, o.Quantity())
	require.InDelta(t, 5.5, o.Weight(products), 1e-9)
	require.Equal(t, []string{"A", "B"}, o.Zones(products))
	// 2 units in each zone: tie goes to A.
	require.Equal(t, "A", o.OriginZone(products))
	require.True(t, o.HasDeadline())
}

func TestAllocationHelpers(t *testing.T) {
	a := NewAllocation()
	a.Assignments["o2"] = "h1"
	a.Assignments["o1"] = "h1"
	a.Assignments["o3"] = "r1"
	a.Unassigned = []UnassignedOrder{{OrderID: "o4", Causes: []string{"x", "y"}}}

	require.Equal(t, []string{"o1", "o2"}, a.OrdersFor("h1"))
	require.Equal(t, 3, a.Fulfilled())
	require.Equal(t, "x; y", a.Unassigned[0].Cause())

	c := a.Clone()
	c.Assignments["o1"] = "r1"
	c.Unassigned[0].Causes[0] = "z"
	require.Equal(t, "h1", a.Assignments["o1"])
	require.Equal(t, "x", a.Unassigned[0].Causes[0])
}

func TestRouteLengthUnder(t *testing.T) {
	r := Route{
		Base:   Position{},
		Stops:  []RouteStop{{Position: Position{X: 3}}, {Position: Position{X: 3, Y: 2}}},
		Closed: true,
	}
	require.Equal(t, 10, r.LengthUnder(ManhattanDistances{}))

	r.Closed = false
	require.Equal(t, 5, r.LengthUnder(ManhattanDistances{}))
}
