package hedge

import (
	"github.com/shopspring/decimal"

	"github.com/betbot/poolhedge/internal/domain"
)

// SkipReason 本轮没有下单的原因。这些都是正常控制流，不是错误。
type SkipReason string

const (
	SkipNone               SkipReason = ""
	SkipStopped            SkipReason = "stopped"
	SkipPriceUnavailable   SkipReason = "price_unavailable"
	SkipIncompleteSnapshot SkipReason = "incomplete_snapshot"
	SkipFirstObservation   SkipReason = "first_observation"
	SkipUnchanged          SkipReason = "unchanged"
	SkipSameSign           SkipReason = "same_sign"
	SkipBelowThreshold     SkipReason = "below_threshold"
	SkipDustTrade          SkipReason = "dust_trade"
)

// CycleResult 单个池子单轮处理结果
type CycleResult struct {
	Pool      string
	Skip      SkipReason
	Change    *ExposureChange
	Plan      *HedgePlan
	Reconcile *ReconcileResult
}

// Hedged 本轮是否真正下了单
func (r CycleResult) Hedged() bool {
	return r.Reconcile != nil
}

// Outcome 用于日志 / 指标的结果标签
func (r CycleResult) Outcome() string {
	if r.Reconcile != nil {
		return string(r.Reconcile.Outcome)
	}
	if r.Skip != SkipNone {
		return string(r.Skip)
	}
	return "none"
}

// ReconcileResult 下单 + 结算 + 对账的结果
type ReconcileResult struct {
	OrderID     domain.OrderID
	FirstState  domain.OrderState
	FinalState  domain.OrderState
	Outcome     domain.ReconcileOutcome
	BaseAdjust  decimal.Decimal // 本次对账加到 base 累计值上的量
	QuoteAdjust decimal.Decimal
}
