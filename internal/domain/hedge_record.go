package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconcileOutcome 一次对冲下单之后的对账结果
type ReconcileOutcome string

const (
	ReconcileFilled       ReconcileOutcome = "filled"       // 全部成交，清空目标敞口
	ReconcilePartial      ReconcileOutcome = "partial"      // 部分成交 + 撤单，剩余敞口加回
	ReconcileUnreconciled ReconcileOutcome = "unreconciled" // 其他状态，敞口保持不变
)

// HedgeRecord 一次对冲尝试的审计记录（只写，不会被读回累加器）
type HedgeRecord struct {
	Pool          string           `json:"pool"`
	Symbol        string           `json:"symbol"`
	Side          string           `json:"side"`
	OrderID       OrderID          `json:"order_id"`
	DealBase      decimal.Decimal  `json:"deal_base"`
	DealQuote     decimal.Decimal  `json:"deal_quote"`
	Price         decimal.Decimal  `json:"price"`
	FinalState    string           `json:"final_state"`
	Outcome       ReconcileOutcome `json:"outcome"`
	AccBaseAfter  decimal.Decimal  `json:"acc_base_after"`
	AccQuoteAfter decimal.Decimal  `json:"acc_quote_after"`
	CreatedAt     time.Time        `json:"created_at"`
}
