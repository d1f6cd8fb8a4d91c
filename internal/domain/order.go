package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// OrderID 交易所订单 ID
type OrderID string

// OrderSide 对冲方向（针对 base 资产）
type OrderSide uint8

const (
	// OrderSideBuy 买入 base / 卖出 quote
	OrderSideBuy OrderSide = iota + 1
	// OrderSideSell 卖出 base / 买入 quote
	OrderSideSell
)

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "buy"
	case OrderSideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// OrderState 订单状态
type OrderState uint8

const (
	OrderStateUnknown OrderState = iota
	OrderStateSubmitted
	OrderStateFilled
	OrderStatePartiallyFilled
	OrderStateCanceled
	OrderStatePartiallyCanceled
)

func (s OrderState) String() string {
	switch s {
	case OrderStateSubmitted:
		return "submitted"
	case OrderStateFilled:
		return "filled"
	case OrderStatePartiallyFilled:
		return "partial-filled"
	case OrderStateCanceled:
		return "canceled"
	case OrderStatePartiallyCanceled:
		return "partial-canceled"
	default:
		return "unknown"
	}
}

// ParseOrderState 解析交易所返回的状态字符串，无法识别的一律视为 Unknown
func ParseOrderState(raw string) OrderState {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "created", "submitted":
		return OrderStateSubmitted
	case "filled":
		return OrderStateFilled
	case "partial-filled", "partially_filled", "partially-filled":
		return OrderStatePartiallyFilled
	case "canceled", "cancelled":
		return OrderStateCanceled
	case "partial-canceled", "partially_canceled", "partially-canceled":
		return OrderStatePartiallyCanceled
	default:
		return OrderStateUnknown
	}
}

// SettledAfterCancel 撤单后可以对账的状态
func (s OrderState) SettledAfterCancel() bool {
	switch s {
	case OrderStateCanceled, OrderStatePartiallyCanceled, OrderStateFilled:
		return true
	default:
		return false
	}
}

// Order 交易所订单视图（订单归交易所所有，这里只读取 / 轮询 / 请求撤单）
type Order struct {
	ID              OrderID
	Symbol          string
	Side            OrderSide
	RequestedAmount *decimal.Decimal // 下单数量（可能缺失）
	Price           decimal.Decimal  // 最新成交均价，交易所可能返回 0
	State           OrderState
	FilledAmount    *decimal.Decimal // 已成交数量（可能缺失）
}

// HasAmounts 下单数量和成交数量都存在
func (o *Order) HasAmounts() bool {
	return o != nil && o.RequestedAmount != nil && o.FilledAmount != nil
}
