package hedge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/betbot/poolhedge/internal/domain"
)

func TestSizeHedge_QuoteBindsWhenSmaller(t *testing.T) {
	// 最小单位：base 为 wei，quote 为 6 位精度
	plan, err := SizeHedge("ethusdt", d("-2000000000000000000"), d("3000000000"), d("1600"), 6, 18)
	require.NoError(t, err)

	require.Equal(t, domain.OrderSideBuy, plan.Side)
	requireDecimal(t, "3200000000", plan.QuoteEquivalentOfBase)
	requireDecimal(t, "1875000000000000000", plan.BaseEquivalentOfQuote)
	requireDecimal(t, "1875000000000000000", plan.TradeSize)
	requireDecimal(t, "1.875", plan.DealBase)
	requireDecimal(t, "3000", plan.DealQuote)
	require.False(t, plan.IsDust())
}

func TestSizeHedge_BaseBindsWhenQuoteLarger(t *testing.T) {
	plan, err := SizeHedge("ethusdt", d("1000000000000000000"), d("-5000000000"), d("1600"), 6, 18)
	require.NoError(t, err)

	require.Equal(t, domain.OrderSideSell, plan.Side)
	requireDecimal(t, "1600000000", plan.QuoteEquivalentOfBase)
	requireDecimal(t, "1000000000000000000", plan.TradeSize)
	requireDecimal(t, "1", plan.DealBase)
	requireDecimal(t, "1600", plan.DealQuote)
}

func TestSizeHedge_WholeUnitBase(t *testing.T) {
	plan, err := SizeHedge("hbtcusdt", d("-12"), d("9000"), d("750"), 6, 0)
	require.NoError(t, err)

	require.Equal(t, domain.OrderSideBuy, plan.Side)
	requireDecimal(t, "9000000000", plan.QuoteEquivalentOfBase)
	requireDecimal(t, "0.000012", plan.TradeSize)
	requireDecimal(t, "0.000012", plan.DealBase)
	requireDecimal(t, "0.009", plan.DealQuote)
}

func TestSizeHedge_DealBaseTruncatesToBasePrecision(t *testing.T) {
	// 8 位精度的 base（wbtc）：1 USDT / 30000 截断到 8 位，不四舍五入
	plan, err := SizeHedge("wbtcusdt", d("-100000000"), d("1000000"), d("30000"), 6, 8)
	require.NoError(t, err)

	require.Equal(t, domain.OrderSideBuy, plan.Side)
	requireDecimal(t, "30000000000", plan.QuoteEquivalentOfBase)
	requireDecimal(t, "3333.3333333333", plan.TradeSize)
	requireDecimal(t, "0.00003333", plan.DealBase)
	require.LessOrEqual(t, -plan.DealBase.Exponent(), int32(8))
	requireDecimal(t, "0.9999", plan.DealQuote)
}

func TestSizeHedge_DealBaseKeepsWideBasePrecision(t *testing.T) {
	plan, err := SizeHedge("xusdt", d("-123456789"), d("1"), d("1"), 0, 20)
	require.NoError(t, err)

	requireDecimal(t, "123456789", plan.TradeSize)
	requireDecimal(t, "0.00000000000123456789", plan.DealBase)
}

func TestSizeHedge_WholeUnitBaseTruncatesAtDealScale(t *testing.T) {
	plan, err := SizeHedge("xusdt", d("-1"), d("3"), d("7"), 0, 0)
	require.NoError(t, err)

	// 3 / 7 按 18 位 HALF_UP，再按 DealScale 截断
	requireDecimal(t, "0.428571428571428571", plan.DealBase)
}

func TestSizeHedge_Dust(t *testing.T) {
	plan, err := SizeHedge("wbtcusdt", d("-1"), d("1"), d("1000"), 6, 8)
	require.NoError(t, err)
	requireDecimal(t, "0.1", plan.TradeSize)
	require.True(t, plan.IsDust())
}

func TestSizeHedge_RejectsBadInput(t *testing.T) {
	_, err := SizeHedge("ethusdt", d("-1"), d("1"), d("0"), 6, 18)
	require.Error(t, err)

	_, err = SizeHedge("ethusdt", d("-1"), d("1"), d("1"), -1, 18)
	require.Error(t, err)
}
