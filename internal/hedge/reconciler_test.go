package hedge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/poolhedge/internal/domain"
)

// buyPlan accBase=-2 ETH, accQuote=3000 USDT, price 1600
func buyPlan(t *testing.T, pc *PoolContext) HedgePlan {
	pc.Absorb(d("-2000000000000000000"), d("3000000000"))
	accBase, accQuote := pc.Accumulated()
	plan, err := SizeHedge(pc.Symbol(), accBase, accQuote, d("1600"), 6, pc.BaseDecimals())
	require.NoError(t, err)
	return plan
}

// sellPlan accBase=1 ETH, accQuote=-5000 USDT, price 1600
func sellPlan(t *testing.T, pc *PoolContext) HedgePlan {
	pc.Absorb(d("1000000000000000000"), d("-5000000000"))
	accBase, accQuote := pc.Accumulated()
	plan, err := SizeHedge(pc.Symbol(), accBase, accQuote, d("1600"), 6, pc.BaseDecimals())
	require.NoError(t, err)
	return plan
}

func TestReconciler_FilledClearsPlannedTargets(t *testing.T) {
	pc := newPool(t, "eth", "0", "0", 18)
	plan := buyPlan(t, pc)

	// 交易所返回的成交量与计划不一致，也按计划值清零
	trader := &fakeTrader{statuses: []*domain.Order{
		{State: domain.OrderStateFilled, RequestedAmount: dp("3000"), FilledAmount: dp("1")},
	}}
	r, slept := newTestReconciler(trader)

	res, err := r.Execute(context.Background(), pc, plan)
	require.NoError(t, err)
	require.Equal(t, domain.ReconcileFilled, res.Outcome)
	require.Len(t, trader.placed, 1)
	assert.Equal(t, domain.OrderSideBuy, trader.placed[0].side)
	assert.Equal(t, "ethusdt", trader.placed[0].symbol)
	requireDecimal(t, "3000", trader.placed[0].amount)
	require.Equal(t, []time.Duration{DefaultSettleDelay}, *slept)
	require.Empty(t, trader.canceled)

	accBase, accQuote := pc.Accumulated()
	requireDecimal(t, "0", accBase)
	requireDecimal(t, "-200000000", accQuote)
}

func TestReconciler_SellPlacesBaseAmount(t *testing.T) {
	pc := newPool(t, "eth", "0", "0", 18)
	plan := sellPlan(t, pc)

	trader := &fakeTrader{statuses: []*domain.Order{{State: domain.OrderStateFilled}}}
	r, _ := newTestReconciler(trader)

	_, err := r.Execute(context.Background(), pc, plan)
	require.NoError(t, err)
	require.Len(t, trader.placed, 1)
	assert.Equal(t, domain.OrderSideSell, trader.placed[0].side)
	requireDecimal(t, "1", trader.placed[0].amount)

	accBase, accQuote := pc.Accumulated()
	requireDecimal(t, "0", accBase)
	requireDecimal(t, "-6600000000", accQuote)
}

func TestReconciler_PartialBuyAddsBackRemainder(t *testing.T) {
	pc := newPool(t, "eth", "0", "0", 18)
	plan := buyPlan(t, pc)

	trader := &fakeTrader{statuses: []*domain.Order{
		{State: domain.OrderStatePartiallyFilled},
		{State: domain.OrderStatePartiallyCanceled, RequestedAmount: dp("1.875"), FilledAmount: dp("0.875"), Price: d("1500")},
	}}
	r, _ := newTestReconciler(trader)

	res, err := r.Execute(context.Background(), pc, plan)
	require.NoError(t, err)
	require.Equal(t, domain.ReconcilePartial, res.Outcome)
	require.Equal(t, domain.OrderStatePartiallyFilled, res.FirstState)
	require.Equal(t, domain.OrderStatePartiallyCanceled, res.FinalState)
	require.Equal(t, []domain.OrderID{"order-1"}, trader.canceled)

	// unsold=1 base，按订单价格 1500 折算 quote，买单 quote 取负
	requireDecimal(t, "1000000000000000000", res.BaseAdjust)
	requireDecimal(t, "-1500000000", res.QuoteAdjust)

	accBase, accQuote := pc.Accumulated()
	requireDecimal(t, "-1000000000000000000", accBase)
	requireDecimal(t, "1500000000", accQuote)
}

func TestReconciler_PartialSellFallsBackToPlanPrice(t *testing.T) {
	pc := newPool(t, "eth", "0", "0", 18)
	plan := sellPlan(t, pc)

	trader := &fakeTrader{statuses: []*domain.Order{
		{State: domain.OrderStatePartiallyFilled},
		{State: domain.OrderStateCanceled, RequestedAmount: dp("1"), FilledAmount: dp("0.25")},
	}}
	r, _ := newTestReconciler(trader)

	res, err := r.Execute(context.Background(), pc, plan)
	require.NoError(t, err)
	require.Equal(t, domain.ReconcilePartial, res.Outcome)

	// 订单价格为 0，用计划价格 1600；卖单 base 取负
	requireDecimal(t, "-750000000000000000", res.BaseAdjust)
	requireDecimal(t, "1200000000", res.QuoteAdjust)
}

func TestReconciler_StillOpenAfterCancelLeavesExposure(t *testing.T) {
	pc := newPool(t, "eth", "0", "0", 18)
	plan := buyPlan(t, pc)
	beforeBase, beforeQuote := pc.Accumulated()

	trader := &fakeTrader{statuses: []*domain.Order{
		{State: domain.OrderStatePartiallyFilled},
		{State: domain.OrderStatePartiallyFilled, RequestedAmount: dp("10"), FilledAmount: dp("4")},
	}}
	r, _ := newTestReconciler(trader)

	res, err := r.Execute(context.Background(), pc, plan)
	require.NoError(t, err)
	require.Equal(t, domain.ReconcileUnreconciled, res.Outcome)
	require.Equal(t, domain.OrderStatePartiallyFilled, res.FinalState)

	accBase, accQuote := pc.Accumulated()
	require.True(t, beforeBase.Equal(accBase))
	require.True(t, beforeQuote.Equal(accQuote))
}

func TestReconciler_CanceledWithoutAmountsLeavesExposure(t *testing.T) {
	pc := newPool(t, "eth", "0", "0", 18)
	plan := buyPlan(t, pc)
	beforeBase, _ := pc.Accumulated()

	trader := &fakeTrader{statuses: []*domain.Order{
		{State: domain.OrderStatePartiallyFilled},
		{State: domain.OrderStateCanceled, RequestedAmount: dp("10")},
	}}
	r, _ := newTestReconciler(trader)

	res, err := r.Execute(context.Background(), pc, plan)
	require.NoError(t, err)
	require.Equal(t, domain.ReconcileUnreconciled, res.Outcome)

	accBase, _ := pc.Accumulated()
	require.True(t, beforeBase.Equal(accBase))
}

func TestReconciler_UnknownStateLeavesExposure(t *testing.T) {
	for _, state := range []domain.OrderState{domain.OrderStateUnknown, domain.OrderStateSubmitted, domain.OrderStateCanceled} {
		t.Run(state.String(), func(t *testing.T) {
			pc := newPool(t, "eth", "0", "0", 18)
			plan := buyPlan(t, pc)
			beforeBase, beforeQuote := pc.Accumulated()

			trader := &fakeTrader{statuses: []*domain.Order{{State: state}}}
			r, _ := newTestReconciler(trader)

			res, err := r.Execute(context.Background(), pc, plan)
			require.NoError(t, err)
			require.Equal(t, domain.ReconcileUnreconciled, res.Outcome)
			require.Empty(t, trader.canceled)

			accBase, accQuote := pc.Accumulated()
			require.True(t, beforeBase.Equal(accBase))
			require.True(t, beforeQuote.Equal(accQuote))
		})
	}
}

func TestReconciler_ExchangeErrors(t *testing.T) {
	boom := errors.New("boom")

	pc := newPool(t, "eth", "0", "0", 18)
	plan := buyPlan(t, pc)
	r, slept := newTestReconciler(&fakeTrader{placeErr: boom})
	_, err := r.Execute(context.Background(), pc, plan)
	require.ErrorIs(t, err, boom)
	require.Empty(t, *slept)

	r, _ = newTestReconciler(&fakeTrader{statusErr: boom})
	_, err = r.Execute(context.Background(), pc, plan)
	require.ErrorIs(t, err, boom)

	r, _ = newTestReconciler(&fakeTrader{
		cancelErr: boom,
		statuses:  []*domain.Order{{State: domain.OrderStatePartiallyFilled}},
	})
	_, err = r.Execute(context.Background(), pc, plan)
	require.ErrorIs(t, err, boom)
}
