package hedge

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/betbot/poolhedge/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func reading(share, total, base, quote, decimals int64) domain.SnapshotReading {
	return domain.SnapshotReading{
		ParticipantShare: big.NewInt(share),
		TotalShares:      big.NewInt(total),
		ReserveBase:      big.NewInt(base),
		ReserveQuote:     big.NewInt(quote),
		AssetDecimals:    big.NewInt(decimals),
	}
}

func validPrice(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d(s), Valid: true}
}

func newPool(t interface{ Fatalf(string, ...any) }, name string, baseThreshold, quoteThreshold string, baseDecimals int32) *PoolContext {
	pc, err := NewPoolContext(PoolSpec{
		Name:           name,
		Symbol:         name + "usdt",
		BaseDecimals:   baseDecimals,
		BaseThreshold:  d(baseThreshold),
		QuoteThreshold: d(quoteThreshold),
	})
	if err != nil {
		t.Fatalf("NewPoolContext: %v", err)
	}
	return pc
}

// fakeSource 按顺序返回预设读数，读完后重复最后一个
type fakeSource struct {
	price    decimal.Decimal
	priceErr error
	readings []domain.SnapshotReading
	readErr  error
	calls    int
}

func (s *fakeSource) Price(context.Context) (decimal.Decimal, error) {
	if s.priceErr != nil {
		return decimal.Zero, s.priceErr
	}
	return s.price, nil
}

func (s *fakeSource) Reading(context.Context) (domain.SnapshotReading, error) {
	if s.readErr != nil {
		return domain.SnapshotReading{}, s.readErr
	}
	if len(s.readings) == 0 {
		return domain.SnapshotReading{}, errors.New("no readings")
	}
	i := s.calls
	if i >= len(s.readings) {
		i = len(s.readings) - 1
	}
	s.calls++
	return s.readings[i], nil
}

type placedOrder struct {
	side   domain.OrderSide
	symbol string
	amount decimal.Decimal
}

// fakeTrader 记录所有调用，OrderStatus 依次返回 statuses
type fakeTrader struct {
	mu        sync.Mutex
	placed    []placedOrder
	canceled  []domain.OrderID
	statuses  []*domain.Order
	queried   int
	placeErr  error
	failOn    string // 该 symbol 下单失败
	statusErr error
	cancelErr error
}

func (f *fakeTrader) PlaceBuy(_ context.Context, symbol string, quoteAmount decimal.Decimal) (domain.OrderID, error) {
	return f.place(domain.OrderSideBuy, symbol, quoteAmount)
}

func (f *fakeTrader) PlaceSell(_ context.Context, symbol string, baseAmount decimal.Decimal) (domain.OrderID, error) {
	return f.place(domain.OrderSideSell, symbol, baseAmount)
}

func (f *fakeTrader) place(side domain.OrderSide, symbol string, amount decimal.Decimal) (domain.OrderID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return "", f.placeErr
	}
	if f.failOn != "" && symbol == f.failOn {
		return "", errors.New("exchange rejected order")
	}
	f.placed = append(f.placed, placedOrder{side: side, symbol: symbol, amount: amount})
	return domain.OrderID(fmt.Sprintf("order-%d", len(f.placed))), nil
}

func (f *fakeTrader) OrderStatus(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.queried >= len(f.statuses) {
		return &domain.Order{ID: id, State: domain.OrderStateUnknown}, nil
	}
	o := *f.statuses[f.queried]
	o.ID = id
	f.queried++
	return &o, nil
}

func (f *fakeTrader) Cancel(_ context.Context, id domain.OrderID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.canceled = append(f.canceled, id)
	return nil
}

type fakeRecorder struct {
	records []domain.HedgeRecord
	err     error
}

func (r *fakeRecorder) RecordHedge(_ context.Context, rec domain.HedgeRecord) error {
	r.records = append(r.records, rec)
	return r.err
}

func requireDecimal(t require.TestingT, want string, got decimal.Decimal, msgAndArgs ...any) {
	require.Truef(t, d(want).Equal(got), "want %s got %s %v", want, got, msgAndArgs)
}

func newTestReconciler(client TradingClient) (*Reconciler, *[]time.Duration) {
	var slept []time.Duration
	r := NewReconciler(client, 0)
	r.sleep = func(d time.Duration) { slept = append(slept, d) }
	return r, &slept
}
