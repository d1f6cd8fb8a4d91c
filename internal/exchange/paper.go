package exchange

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/betbot/poolhedge/internal/domain"
)

// ErrOrderNotFound 纸面交易中不存在的订单
var ErrOrderNotFound = errors.New("exchange: order not found")

// PaperClient dry_run 模式下的模拟撮合：
// 市价单按当前价格立即成交 fillRatio 比例；比例小于 1 时订单停在 partial-filled，
// 撤单后变为 partial-canceled。终态订单被查询一次后即从内存中移除。
type PaperClient struct {
	prices    PriceClient
	fillRatio decimal.Decimal

	mu     sync.Mutex
	orders map[domain.OrderID]*domain.Order
}

// NewPaperClient fillRatio 不在 (0, 1] 内时按 1 处理
func NewPaperClient(prices PriceClient, fillRatio decimal.Decimal) *PaperClient {
	if !fillRatio.IsPositive() || fillRatio.GreaterThan(decimal.NewFromInt(1)) {
		fillRatio = decimal.NewFromInt(1)
	}
	return &PaperClient{
		prices:    prices,
		fillRatio: fillRatio,
		orders:    make(map[domain.OrderID]*domain.Order),
	}
}

func (p *PaperClient) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return p.prices.Price(ctx, symbol)
}

func (p *PaperClient) PlaceBuy(ctx context.Context, symbol string, quoteAmount decimal.Decimal) (domain.OrderID, error) {
	return p.place(ctx, symbol, domain.OrderSideBuy, quoteAmount)
}

func (p *PaperClient) PlaceSell(ctx context.Context, symbol string, baseAmount decimal.Decimal) (domain.OrderID, error) {
	return p.place(ctx, symbol, domain.OrderSideSell, baseAmount)
}

func (p *PaperClient) place(ctx context.Context, symbol string, side domain.OrderSide, amount decimal.Decimal) (domain.OrderID, error) {
	if !amount.IsPositive() {
		return "", errors.Errorf("paper: order amount must be positive, got %s", amount)
	}
	price, err := p.prices.Price(ctx, symbol)
	if err != nil {
		return "", errors.Wrap(err, "paper: price")
	}

	filled := amount.Mul(p.fillRatio)
	state := domain.OrderStateFilled
	if filled.LessThan(amount) {
		state = domain.OrderStatePartiallyFilled
	}
	requested := amount

	id := domain.OrderID(uuid.NewString())
	p.mu.Lock()
	p.orders[id] = &domain.Order{
		ID:              id,
		Symbol:          symbol,
		Side:            side,
		RequestedAmount: &requested,
		Price:           price,
		State:           state,
		FilledAmount:    &filled,
	}
	p.mu.Unlock()

	log.WithField("order_id", id).Infof("[paper] %s %s amount=%s filled=%s price=%s", side, symbol, amount, filled, price)
	return id, nil
}

func (p *PaperClient) OrderStatus(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[id]
	if !ok {
		return nil, errors.Wrapf(ErrOrderNotFound, "id=%s", id)
	}
	cp := *o
	if o.State.SettledAfterCancel() {
		delete(p.orders, id)
	}
	return &cp, nil
}

func (p *PaperClient) Cancel(_ context.Context, id domain.OrderID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[id]
	if !ok {
		return errors.Wrapf(ErrOrderNotFound, "id=%s", id)
	}
	switch o.State {
	case domain.OrderStatePartiallyFilled:
		o.State = domain.OrderStatePartiallyCanceled
	case domain.OrderStateSubmitted:
		o.State = domain.OrderStateCanceled
	}
	return nil
}
