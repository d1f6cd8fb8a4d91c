package hedge

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/poolhedge/internal/domain"
)

var cycleLog = logrus.WithField("component", "hedge")

// Pool 一个被监控的池子：运行上下文 + 数据源
type Pool struct {
	Context *PoolContext
	Source  PoolSource
}

// Engine 单个池子的单轮处理：快照 -> 敞口 -> 累加 -> 门限 -> 定量 -> 下单对账
type Engine struct {
	reconciler *Reconciler
	recorder   Recorder
	observer   Observer
}

type EngineOption func(*Engine)

// WithRecorder 每次下单后写审计记录
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithObserver 指标回调
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

func NewEngine(reconciler *Reconciler, opts ...EngineOption) *Engine {
	e := &Engine{
		reconciler: reconciler,
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunPool 处理一个池子一轮。跳过条件通过 CycleResult.Skip 返回；
// 只有交易所调用失败这类意外错误才会返回 error。
func (e *Engine) RunPool(ctx context.Context, pool *Pool) (CycleResult, error) {
	pc := pool.Context
	log := cycleLog.WithField("pool", pc.Name())
	result := CycleResult{Pool: pc.Name()}

	defer func() {
		accBase, accQuote := pc.Accumulated()
		e.observer.ObserveCycle(result, accBase, accQuote)
	}()

	price := decimal.NullDecimal{}
	if p, err := pool.Source.Price(ctx); err != nil {
		log.Infof("获取交易所价格失败 %s: %v", pc.Symbol(), err)
	} else {
		price = decimal.NullDecimal{Decimal: p, Valid: true}
	}
	if !price.Valid || !price.Decimal.IsPositive() {
		result.Skip = SkipPriceUnavailable
		return result, nil
	}

	reading, err := pool.Source.Reading(ctx)
	if err != nil {
		log.Warnf("读取池子状态失败: %v", err)
	}
	log.Infof("池子状态: share=%v total=%v base=%v quote=%v decimals=%v",
		reading.ParticipantShare, reading.TotalShares, reading.ReserveBase, reading.ReserveQuote, reading.AssetDecimals)

	change, skip := CalculateExposure(pc, reading, price)
	switch skip {
	case SkipNone:
	case SkipIncompleteSnapshot:
		log.Warnf("池子状态不完整，缺少 %v", reading.Missing())
		result.Skip = skip
		return result, nil
	default:
		log.Debugf("跳过: %s", skip)
		result.Skip = skip
		return result, nil
	}
	result.Change = &change
	log.Infof("本轮 delta [%s, %s]", change.DeltaBase, change.DeltaQuote)

	pc.Absorb(change.DeltaBase, change.DeltaQuote)

	if skip := pc.Gate(change.DeltaBase, change.DeltaQuote); skip != SkipNone {
		log.Debugf("无需对冲: %s", skip)
		result.Skip = skip
		return result, nil
	}

	accBase, accQuote := pc.Accumulated()
	log.Infof("进入对冲 accBase[%s] accQuote[%s]", accBase, accQuote)

	plan, err := SizeHedge(pc.Symbol(), accBase, accQuote, price.Decimal, change.Snapshot.AssetDecimals(), pc.BaseDecimals())
	if err != nil {
		return result, fmt.Errorf("pool %s: size hedge: %w", pc.Name(), err)
	}
	result.Plan = &plan
	log.Infof("quoteEquivalentOfBase=%s baseEquivalentOfQuote=%s tradeSize=%s dealBase=%s side=%s",
		plan.QuoteEquivalentOfBase, plan.BaseEquivalentOfQuote, plan.TradeSize, plan.DealBase, plan.Side)

	if plan.IsDust() {
		log.Infof("下单数量截断后为 0，敞口保留")
		result.Skip = SkipDustTrade
		return result, nil
	}

	rec, err := e.reconciler.Execute(ctx, pc, plan)
	if err != nil {
		return result, fmt.Errorf("pool %s: %w", pc.Name(), err)
	}
	result.Reconcile = rec

	e.record(ctx, pc, plan, rec)
	return result, nil
}

func (e *Engine) record(ctx context.Context, pc *PoolContext, plan HedgePlan, rec *ReconcileResult) {
	if e.recorder == nil {
		return
	}
	accBase, accQuote := pc.Accumulated()
	err := e.recorder.RecordHedge(ctx, domain.HedgeRecord{
		Pool:          pc.Name(),
		Symbol:        plan.Symbol,
		Side:          plan.Side.String(),
		OrderID:       rec.OrderID,
		DealBase:      plan.DealBase,
		DealQuote:     plan.DealQuote,
		Price:         plan.Price,
		FinalState:    rec.FinalState.String(),
		Outcome:       rec.Outcome,
		AccBaseAfter:  accBase,
		AccQuoteAfter: accQuote,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		cycleLog.WithField("pool", pc.Name()).Warnf("写入对冲记录失败: %v", err)
	}
}
