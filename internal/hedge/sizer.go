package hedge

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/betbot/poolhedge/internal/domain"
)

const (
	// DivisionScale 除法保留的小数位（HALF_UP）
	DivisionScale int32 = 18
	// DealScale base_decimals 为 0（数量已是整单位）时下单数量截断的小数位
	DealScale int32 = 18
)

// dealScale 下单数量截断到 base 资产自身的精度
func dealScale(baseDecimals int32) int32 {
	if baseDecimals == 0 {
		return DealScale
	}
	return baseDecimals
}

// HedgePlan 一次对冲的方向和数量
//
// 单位约定：
//   - AccBase / TradeSize / BaseEquivalentOfQuote 是 base 最小单位（例如 wei）
//   - AccQuote / QuoteEquivalentOfBase 是 quote 最小单位
//   - DealBase / DealQuote 是下单使用的整单位数量
type HedgePlan struct {
	Side          domain.OrderSide
	Symbol        string
	Price         decimal.Decimal
	AccBase       decimal.Decimal
	AccQuote      decimal.Decimal
	BaseDecimals  int32
	AssetDecimals int32

	QuoteEquivalentOfBase decimal.Decimal
	BaseEquivalentOfQuote decimal.Decimal
	TradeSize             decimal.Decimal

	DealBase  decimal.Decimal
	DealQuote decimal.Decimal
}

// IsDust 截断后的下单数量为 0
func (p HedgePlan) IsDust() bool {
	return !p.DealBase.IsPositive()
}

// SizeHedge 根据累计敞口计算对冲方向和数量。
//
// |accQuote| 大于 base 敞口折算出的 quote 时，以 base 敞口为准（|accBase|）；
// 否则按 quote 敞口折算成 base 数量。accBase < 0 买入 base，否则卖出 base。
func SizeHedge(symbol string, accBase, accQuote, price decimal.Decimal, assetDecimals, baseDecimals int32) (HedgePlan, error) {
	if !price.IsPositive() {
		return HedgePlan{}, fmt.Errorf("hedge: price must be positive, got %s", price)
	}
	if assetDecimals < 0 || baseDecimals < 0 {
		return HedgePlan{}, fmt.Errorf("hedge: invalid decimals asset=%d base=%d", assetDecimals, baseDecimals)
	}

	baseUnit := decimal.New(1, baseDecimals)
	quoteUnit := decimal.New(1, assetDecimals)

	quoteEquivalentOfBase := accBase.Abs().
		DivRound(baseUnit, DivisionScale).
		Mul(price).
		Mul(quoteUnit)

	baseEquivalentOfQuote := accQuote.Abs().
		DivRound(quoteUnit, assetDecimals).
		DivRound(price, DivisionScale).
		Mul(baseUnit)

	tradeSize := baseEquivalentOfQuote
	if accQuote.Abs().GreaterThan(quoteEquivalentOfBase) {
		tradeSize = accBase.Abs()
	}

	dealBase := tradeSize.Shift(-baseDecimals).Truncate(dealScale(baseDecimals))

	side := domain.OrderSideSell
	if accBase.IsNegative() {
		side = domain.OrderSideBuy
	}

	return HedgePlan{
		Side:                  side,
		Symbol:                symbol,
		Price:                 price,
		AccBase:               accBase,
		AccQuote:              accQuote,
		BaseDecimals:          baseDecimals,
		AssetDecimals:         assetDecimals,
		QuoteEquivalentOfBase: quoteEquivalentOfBase,
		BaseEquivalentOfQuote: baseEquivalentOfQuote,
		TradeSize:             tradeSize,
		DealBase:              dealBase,
		DealQuote:             dealBase.Mul(price),
	}, nil
}
