package hedge

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/poolhedge/internal/domain"
)

// DefaultSettleDelay 下单后等待成交的固定时长（只等一次、只查一次）
const DefaultSettleDelay = 2 * time.Second

var reconcileLog = logrus.WithField("component", "reconciler")

// Reconciler 下单、等待结算、把结果折回累加器
//
// 状态机：
//
//	Submitted -> {Filled, PartiallyFilled, Unknown}
//	PartiallyFilled -> 撤单 -> {Canceled, PartiallyCanceled, Filled, Unknown}
//
// 交易所调用失败直接返回错误，由上层决定如何处理。
type Reconciler struct {
	client      TradingClient
	settleDelay time.Duration
	sleep       func(time.Duration)
}

// NewReconciler settleDelay <= 0 时使用 DefaultSettleDelay
func NewReconciler(client TradingClient, settleDelay time.Duration) *Reconciler {
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}
	return &Reconciler{
		client:      client,
		settleDelay: settleDelay,
		sleep:       time.Sleep,
	}
}

// Execute 按计划下单并对账，调整 pc 的累计值
func (r *Reconciler) Execute(ctx context.Context, pc *PoolContext, plan HedgePlan) (*ReconcileResult, error) {
	log := reconcileLog.WithFields(logrus.Fields{"pool": pc.Name(), "side": plan.Side.String()})

	orderID, err := r.place(ctx, plan)
	if err != nil {
		return nil, err
	}
	log = log.WithField("order_id", orderID)
	log.Infof("对冲订单已提交: dealBase=%s dealQuote=%s price=%s", plan.DealBase, plan.DealQuote, plan.Price)

	// 等待成交（不可取消）
	r.sleep(r.settleDelay)

	order, err := r.status(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order %s: %w", orderID, err)
	}

	res := &ReconcileResult{
		OrderID:    orderID,
		FirstState: order.State,
		FinalState: order.State,
		Outcome:    domain.ReconcileUnreconciled,
	}

	switch order.State {
	case domain.OrderStateFilled:
		// 按下单时的目标值清零，而不是交易所返回的实际成交量
		res.BaseAdjust = plan.AccBase.Neg()
		res.QuoteAdjust = plan.QuoteEquivalentOfBase.Neg()
		pc.Absorb(res.BaseAdjust, res.QuoteAdjust)
		res.Outcome = domain.ReconcileFilled
		log.Infof("完全成交，清空敞口: base=%s quote=%s", res.BaseAdjust, res.QuoteAdjust)

	case domain.OrderStatePartiallyFilled:
		log.Info("部分成交，撤单")
		if err := r.client.Cancel(ctx, orderID); err != nil {
			return nil, fmt.Errorf("cancel order %s: %w", orderID, err)
		}
		settled, err := r.status(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("query order %s after cancel: %w", orderID, err)
		}
		res.FinalState = settled.State
		if !settled.State.SettledAfterCancel() {
			log.Warnf("撤单后状态 %s，敞口保留到下一轮", settled.State)
			break
		}
		if !settled.HasAmounts() {
			log.Warn("撤单后缺少下单/成交数量，敞口保留到下一轮")
			break
		}
		res.BaseAdjust, res.QuoteAdjust = remainder(plan, settled)
		pc.Absorb(res.BaseAdjust, res.QuoteAdjust)
		res.Outcome = domain.ReconcilePartial
		log.Infof("未成交部分加回敞口: base=%s quote=%s", res.BaseAdjust, res.QuoteAdjust)

	default:
		log.Warnf("订单状态 %s，敞口保留到下一轮", order.State)
	}

	return res, nil
}

func (r *Reconciler) place(ctx context.Context, plan HedgePlan) (domain.OrderID, error) {
	switch plan.Side {
	case domain.OrderSideBuy:
		id, err := r.client.PlaceBuy(ctx, plan.Symbol, plan.DealQuote)
		if err != nil {
			return "", fmt.Errorf("place buy %s quote=%s: %w", plan.Symbol, plan.DealQuote, err)
		}
		return id, nil
	case domain.OrderSideSell:
		id, err := r.client.PlaceSell(ctx, plan.Symbol, plan.DealBase)
		if err != nil {
			return "", fmt.Errorf("place sell %s base=%s: %w", plan.Symbol, plan.DealBase, err)
		}
		return id, nil
	default:
		return "", fmt.Errorf("unsupported order side %d", plan.Side)
	}
}

func (r *Reconciler) status(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	order, err := r.client.OrderStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return &domain.Order{ID: id, State: domain.OrderStateUnknown}, nil
	}
	return order, nil
}

// remainder 撤单后未成交部分，按方向带符号并换算成最小单位
// 买 base：quote 部分取负；卖 base：base 部分取负
func remainder(plan HedgePlan, settled *domain.Order) (base, quote decimal.Decimal) {
	unsold := settled.RequestedAmount.Sub(*settled.FilledAmount)

	price := plan.Price
	if settled.Price.IsPositive() {
		price = settled.Price
	}
	unsoldQuote := unsold.Mul(price)

	if plan.Side == domain.OrderSideBuy {
		unsoldQuote = unsoldQuote.Neg()
	} else {
		unsold = unsold.Neg()
	}
	return unsold.Shift(plan.BaseDecimals), unsoldQuote.Shift(plan.AssetDecimals)
}
