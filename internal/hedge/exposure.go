package hedge

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/betbot/poolhedge/internal/domain"
)

// ExposureChange 本轮相对上一次快照的份额敞口变化（最小单位）
type ExposureChange struct {
	DeltaBase  decimal.Decimal
	DeltaQuote decimal.Decimal
	Snapshot   domain.PoolSnapshot
}

// CalculateExposure 计算参与者按份额折算的敞口变化。
//
// 只要价格可用且读数完整，当前快照就会成为新的比较基线（无论后续是否下单）。
// 第一次观测只记录基线；与上次完全相同的快照不做任何处理。
func CalculateExposure(pc *PoolContext, reading domain.SnapshotReading, price decimal.NullDecimal) (ExposureChange, SkipReason) {
	if !price.Valid || !price.Decimal.IsPositive() {
		return ExposureChange{}, SkipPriceUnavailable
	}

	current, ok := reading.Snapshot()
	if !ok {
		return ExposureChange{}, SkipIncompleteSnapshot
	}

	previous, hasPrevious := pc.Previous()
	pc.StoreSnapshot(current)

	if !hasPrevious {
		return ExposureChange{Snapshot: current}, SkipFirstObservation
	}
	if current.Equal(previous) {
		return ExposureChange{Snapshot: current}, SkipUnchanged
	}

	return ExposureChange{
		DeltaBase:  intDelta(current.MyBase(), previous.MyBase()),
		DeltaQuote: intDelta(current.MyQuote(), previous.MyQuote()),
		Snapshot:   current,
	}, SkipNone
}

func intDelta(cur, prev *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).Sub(cur, prev), 0)
}
