package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/betbot/poolhedge/internal/domain"
	"github.com/betbot/poolhedge/internal/hedge"
)

func TestMetrics_ObserveCycle(t *testing.T) {
	m := New()

	m.ObserveCycle(hedge.CycleResult{Pool: "eth", Skip: hedge.SkipBelowThreshold}, decimal.NewFromInt(-3), decimal.NewFromInt(2000))
	m.ObserveCycle(hedge.CycleResult{
		Pool: "eth",
		Plan: &hedge.HedgePlan{Side: domain.OrderSideBuy},
		Reconcile: &hedge.ReconcileResult{
			FinalState: domain.OrderStateFilled,
			Outcome:    domain.ReconcileFilled,
		},
	}, decimal.Zero, decimal.NewFromInt(-200))

	require.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues("eth", "below_threshold")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues("eth", "filled")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Orders.WithLabelValues("eth", "buy", "filled")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.Accumulated.WithLabelValues("eth", "base")))
	require.Equal(t, -200.0, testutil.ToFloat64(m.Accumulated.WithLabelValues("eth", "quote")))

	m.ObservePass(1500 * time.Millisecond)
	require.Equal(t, 1, testutil.CollectAndCount(m.PassDuration))
}
