package exchange

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/poolhedge/internal/domain"
)

type staticPrice decimal.Decimal

func (p staticPrice) Price(context.Context, string) (decimal.Decimal, error) {
	return decimal.Decimal(p), nil
}

func TestPaperClient_FullFill(t *testing.T) {
	p := NewPaperClient(staticPrice(decimal.NewFromInt(1600)), decimal.Zero)
	ctx := context.Background()

	id, err := p.PlaceSell(ctx, "ethusdt", decimal.RequireFromString("1.5"))
	require.NoError(t, err)

	o, err := p.OrderStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateFilled, o.State)
	assert.Equal(t, domain.OrderSideSell, o.Side)
	assert.True(t, decimal.NewFromInt(1600).Equal(o.Price))
	assert.True(t, o.RequestedAmount.Equal(*o.FilledAmount))
}

func TestPaperClient_PartialThenCancel(t *testing.T) {
	p := NewPaperClient(staticPrice(decimal.NewFromInt(1600)), decimal.RequireFromString("0.4"))
	ctx := context.Background()

	id, err := p.PlaceBuy(ctx, "ethusdt", decimal.NewFromInt(3000))
	require.NoError(t, err)

	o, err := p.OrderStatus(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatePartiallyFilled, o.State)
	assert.True(t, decimal.NewFromInt(1200).Equal(*o.FilledAmount))

	require.NoError(t, p.Cancel(ctx, id))
	o, err = p.OrderStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatePartiallyCanceled, o.State)
	assert.True(t, o.State.SettledAfterCancel())
}

func TestPaperClient_ForgetsOrdersOnceSettledAndRead(t *testing.T) {
	ctx := context.Background()

	full := NewPaperClient(staticPrice(decimal.NewFromInt(1600)), decimal.NewFromInt(1))
	id, err := full.PlaceSell(ctx, "ethusdt", decimal.NewFromInt(1))
	require.NoError(t, err)
	o, err := full.OrderStatus(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStateFilled, o.State)
	assert.Empty(t, full.orders)
	_, err = full.OrderStatus(ctx, id)
	require.ErrorIs(t, err, ErrOrderNotFound)

	partial := NewPaperClient(staticPrice(decimal.NewFromInt(1600)), decimal.RequireFromString("0.5"))
	for i := 0; i < 3; i++ {
		id, err := partial.PlaceBuy(ctx, "ethusdt", decimal.NewFromInt(100))
		require.NoError(t, err)
		o, err := partial.OrderStatus(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatePartiallyFilled, o.State)
		require.Len(t, partial.orders, 1)

		require.NoError(t, partial.Cancel(ctx, id))
		o, err = partial.OrderStatus(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatePartiallyCanceled, o.State)
		require.Empty(t, partial.orders)
	}
}

func TestPaperClient_UnknownOrder(t *testing.T) {
	p := NewPaperClient(staticPrice(decimal.NewFromInt(1)), decimal.NewFromInt(1))
	_, err := p.OrderStatus(context.Background(), "missing")
	require.ErrorIs(t, err, ErrOrderNotFound)
	require.ErrorIs(t, p.Cancel(context.Background(), "missing"), ErrOrderNotFound)
}

func TestPriceSource(t *testing.T) {
	src := NewPriceSource(staticPrice(decimal.NewFromInt(750)), "hbtcusdt")
	price, err := src.Price(context.Background())
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(750).Equal(price))
}
