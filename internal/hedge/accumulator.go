package hedge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/betbot/poolhedge/internal/domain"
)

// ErrNegativeThreshold 阈值必须 >= 0
var ErrNegativeThreshold = errors.New("hedge: threshold must be non-negative")

// DeltaAccumulator 单个池子未对冲敞口的累计值 + 触发阈值
// 阈值在创建时确定，引擎不会修改；累计值只在 Absorb 和对账时变化
type DeltaAccumulator struct {
	accBase        decimal.Decimal
	accQuote       decimal.Decimal
	baseThreshold  decimal.Decimal
	quoteThreshold decimal.Decimal
}

// NewDeltaAccumulator 创建累加器
func NewDeltaAccumulator(baseThreshold, quoteThreshold decimal.Decimal) (DeltaAccumulator, error) {
	if baseThreshold.IsNegative() || quoteThreshold.IsNegative() {
		return DeltaAccumulator{}, fmt.Errorf("%w: base=%s quote=%s", ErrNegativeThreshold, baseThreshold, quoteThreshold)
	}
	return DeltaAccumulator{
		accBase:        decimal.Zero,
		accQuote:       decimal.Zero,
		baseThreshold:  baseThreshold,
		quoteThreshold: quoteThreshold,
	}, nil
}

// Absorb 无条件累加两个方向的 delta
func (a *DeltaAccumulator) Absorb(deltaBase, deltaQuote decimal.Decimal) {
	a.accBase = a.accBase.Add(deltaBase)
	a.accQuote = a.accQuote.Add(deltaQuote)
}

func (a DeltaAccumulator) Accumulated() (base, quote decimal.Decimal) {
	return a.accBase, a.accQuote
}

func (a DeltaAccumulator) Thresholds() (base, quote decimal.Decimal) {
	return a.baseThreshold, a.quoteThreshold
}

// Gate 根据本轮瞬时 delta（不是累计值）判断是否需要对冲
//  1. 同号（都 >= 0 或都 <= 0）：两边等比例变化，不是敞口失衡
//  2. 两边都没超过阈值：暂不处理，累计值留给后续轮次
func (a DeltaAccumulator) Gate(deltaBase, deltaQuote decimal.Decimal) SkipReason {
	if sameSign(deltaBase, deltaQuote) {
		return SkipSameSign
	}
	if deltaBase.Abs().LessThan(a.baseThreshold) && deltaQuote.Abs().LessThan(a.quoteThreshold) {
		return SkipBelowThreshold
	}
	return SkipNone
}

func sameSign(a, b decimal.Decimal) bool {
	allNonPositive := a.Sign() <= 0 && b.Sign() <= 0
	allNonNegative := a.Sign() >= 0 && b.Sign() >= 0
	return allNonPositive || allNonNegative
}

// PoolContext 池子的运行上下文：累加器 + 上一次快照（比较基线）
// 每个池子一份，进程内常驻，池子之间互不共享
type PoolContext struct {
	name         string
	symbol       string
	baseDecimals int32

	mu       sync.RWMutex
	acc      DeltaAccumulator
	previous *domain.PoolSnapshot
}

// PoolSpec 创建 PoolContext 的参数
type PoolSpec struct {
	Name           string
	Symbol         string // 交易所交易对，例如 ethusdt
	BaseDecimals   int32  // base 资产最小单位精度，ETH 为 18
	BaseThreshold  decimal.Decimal
	QuoteThreshold decimal.Decimal
}

func NewPoolContext(spec PoolSpec) (*PoolContext, error) {
	if spec.BaseDecimals < 0 {
		return nil, fmt.Errorf("pool %s: base decimals must be >= 0, got %d", spec.Name, spec.BaseDecimals)
	}
	acc, err := NewDeltaAccumulator(spec.BaseThreshold, spec.QuoteThreshold)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", spec.Name, err)
	}
	return &PoolContext{
		name:         spec.Name,
		symbol:       spec.Symbol,
		baseDecimals: spec.BaseDecimals,
		acc:          acc,
	}, nil
}

func (p *PoolContext) Name() string {
	return p.name
}

func (p *PoolContext) Symbol() string {
	return p.symbol
}

func (p *PoolContext) BaseDecimals() int32 {
	return p.baseDecimals
}

// Previous 上一次快照
func (p *PoolContext) Previous() (domain.PoolSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.previous == nil {
		return domain.PoolSnapshot{}, false
	}
	return *p.previous, true
}

// StoreSnapshot 替换比较基线
func (p *PoolContext) StoreSnapshot(s domain.PoolSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.previous = &s
}

func (p *PoolContext) Absorb(deltaBase, deltaQuote decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acc.Absorb(deltaBase, deltaQuote)
}

func (p *PoolContext) Accumulated() (base, quote decimal.Decimal) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.acc.Accumulated()
}

func (p *PoolContext) Thresholds() (base, quote decimal.Decimal) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.acc.Thresholds()
}

func (p *PoolContext) Gate(deltaBase, deltaQuote decimal.Decimal) SkipReason {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.acc.Gate(deltaBase, deltaQuote)
}

// PoolStatus 对外展示用的只读视图
type PoolStatus struct {
	Name           string `json:"name"`
	Symbol         string `json:"symbol"`
	AccBase        string `json:"acc_base"`
	AccQuote       string `json:"acc_quote"`
	BaseThreshold  string `json:"base_threshold"`
	QuoteThreshold string `json:"quote_threshold"`
	Baseline       string `json:"baseline,omitempty"`
}

func (p *PoolContext) Status() PoolStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := PoolStatus{
		Name:           p.name,
		Symbol:         p.symbol,
		AccBase:        p.acc.accBase.String(),
		AccQuote:       p.acc.accQuote.String(),
		BaseThreshold:  p.acc.baseThreshold.String(),
		QuoteThreshold: p.acc.quoteThreshold.String(),
	}
	if p.previous != nil {
		st.Baseline = p.previous.String()
	}
	return st
}
