package obs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	RegisterDefault()
	RegisterDefault()

	OrdersFulfilled.WithLabelValues("greedy").Set(3)
	require.InDelta(t, 3, testutil.ToFloat64(OrdersFulfilled.WithLabelValues("greedy")), 1e-9)

	n, err := testutil.GatherAndCount(Registry, "allocation_orders_fulfilled")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
