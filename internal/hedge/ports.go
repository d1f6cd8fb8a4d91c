package hedge

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/poolhedge/internal/domain"
)

// PoolSource 池子数据源：外部价格 + 链上状态
type PoolSource interface {
	// Price 交易所价格（quote / base）。返回错误即视为价格不可用。
	Price(ctx context.Context) (decimal.Decimal, error)
	// Reading 读取池子状态，任意字段都可能缺失
	Reading(ctx context.Context) (domain.SnapshotReading, error)
}

// TradingClient 交易所下单客户端（市价单）
type TradingClient interface {
	// PlaceBuy 市价买入 base，数量以 quote 计价
	PlaceBuy(ctx context.Context, symbol string, quoteAmount decimal.Decimal) (domain.OrderID, error)
	// PlaceSell 市价卖出 base，数量以 base 计价
	PlaceSell(ctx context.Context, symbol string, baseAmount decimal.Decimal) (domain.OrderID, error)
	OrderStatus(ctx context.Context, id domain.OrderID) (*domain.Order, error)
	Cancel(ctx context.Context, id domain.OrderID) error
}

// Recorder 对冲审计记录（可选）
type Recorder interface {
	RecordHedge(ctx context.Context, rec domain.HedgeRecord) error
}

// Observer 指标回调（可选）
type Observer interface {
	ObserveCycle(result CycleResult, accBase, accQuote decimal.Decimal)
	ObservePass(d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveCycle(CycleResult, decimal.Decimal, decimal.Decimal) {}

func (nopObserver) ObservePass(time.Duration) {}
