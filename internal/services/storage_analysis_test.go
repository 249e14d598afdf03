package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pick-allocation-service/internal/domain"
)

func TestAnalyzeStorage(t *testing.T) {
	orders := []*domain.Order{
		order("o1", line("pA", 2), line("pB", 1)),
		order("o2", line("pA", 1), line("pB", 1), line("pA", 1)),
		order("o3", line("pO", 1)),
		order("o4", line("pB", 0)),
	}

	s := AnalyzeStorage(orders)
	require.Equal(t, map[string]int{"pA": 4, "pB": 2, "pO": 1}, s.Frequency)
	require.Equal(t, map[ProductPair]int{NewProductPair("pB", "pA"): 2}, s.Affinity)

	require.Equal(t, []ProductCount{{"pA", 4}, {"pB", 2}}, s.TopProducts(2))
	require.Len(t, s.TopProducts(10), 3)
	require.Empty(t, s.TopProducts(-1))
	require.Equal(t, []PairCount{{Pair: ProductPair{A: "pA", B: "pB"}, Orders: 2}}, s.TopPairs(5))
}

func TestProposeSlottingMovesBusyProductsToDock(t *testing.T) {
	m := stripModel(t, order("X", line("pB", 5)), order("Y", line("pA", 1)))
	s := AnalyzeStorage(m.Orders)

	got := ProposeSlotting(m, nil, domain.Position{}, s)

	// Zone A sits at the dock, B two steps away. pB swaps with the idle pO.
	require.Equal(t, map[string]string{"pB": "A", "pO": "B"}, got.Moves)
	require.Equal(t, 10, got.CurrentDistance)
	require.Equal(t, 0, got.ProposedDistance)
	require.InDelta(t, 100.0, got.ImprovementPct(), 1e-12)
}

func TestProposeSlottingKeepsAccessRules(t *testing.T) {
	w, err := domain.NewWarehouse(1, 4, []domain.Zone{
		{ID: "A", Cells: domain.Rect(0, 0, 1, 0)},
		{ID: "H", Cells: domain.Rect(2, 0, 3, 0), AllowedTypes: []domain.AgentType{domain.AgentHuman}},
	}, nil)
	require.NoError(t, err)

	products := []*domain.Product{
		{ID: "pA", Zone: "A", Class: domain.ClassStandard},
		{ID: "pH", Zone: "H", Class: domain.ClassStandard},
	}
	orders := []*domain.Order{order("o1", line("pH", 9)), order("o2", line("pA", 1))}
	m, err := domain.NewModel(w, products, nil, orders)
	require.NoError(t, err)

	got := ProposeSlotting(m, domain.ManhattanDistances{}, domain.Position{}, AnalyzeStorage(m.Orders))
	require.Empty(t, got.Moves)
	require.Equal(t, got.CurrentDistance, got.ProposedDistance)
	require.Zero(t, got.ImprovementPct())
}
