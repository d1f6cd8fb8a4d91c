package domain

import (
	"fmt"
	"math/big"
)

// PoolSnapshot 池子状态快照（一次读取的结果，创建后不可变）
// 所有字段都是最小单位的整数（wei / token 最小单位）
type PoolSnapshot struct {
	participantShare *big.Int // 参与者持有的份额（LP token 余额）
	totalShares      *big.Int // 总份额（LP token totalSupply）
	reserveBase      *big.Int // 池子 base 资产储备
	reserveQuote     *big.Int // 池子 quote 资产储备
	assetDecimals    *big.Int // quote 资产精度
}

// NewPoolSnapshot 创建快照，入参会被复制，调用方之后修改入参不会影响快照
func NewPoolSnapshot(participantShare, totalShares, reserveBase, reserveQuote, assetDecimals *big.Int) PoolSnapshot {
	return PoolSnapshot{
		participantShare: cloneInt(participantShare),
		totalShares:      cloneInt(totalShares),
		reserveBase:      cloneInt(reserveBase),
		reserveQuote:     cloneInt(reserveQuote),
		assetDecimals:    cloneInt(assetDecimals),
	}
}

func (s PoolSnapshot) ParticipantShare() *big.Int {
	return cloneInt(s.participantShare)
}

func (s PoolSnapshot) TotalShares() *big.Int {
	return cloneInt(s.totalShares)
}

func (s PoolSnapshot) ReserveBase() *big.Int {
	return cloneInt(s.reserveBase)
}

func (s PoolSnapshot) ReserveQuote() *big.Int {
	return cloneInt(s.reserveQuote)
}

// AssetDecimals 返回 quote 资产精度
func (s PoolSnapshot) AssetDecimals() int32 {
	if s.assetDecimals == nil {
		return 0
	}
	return int32(s.assetDecimals.Int64())
}

// MyBase 参与者按份额折算的 base 资产：reserveBase * participantShare / totalShares（截断）
func (s PoolSnapshot) MyBase() *big.Int {
	return proRata(s.reserveBase, s.participantShare, s.totalShares)
}

// MyQuote 参与者按份额折算的 quote 资产：reserveQuote * participantShare / totalShares（截断）
func (s PoolSnapshot) MyQuote() *big.Int {
	return proRata(s.reserveQuote, s.participantShare, s.totalShares)
}

// Equal 按值比较两个快照
func (s PoolSnapshot) Equal(other PoolSnapshot) bool {
	return intEqual(s.participantShare, other.participantShare) &&
		intEqual(s.totalShares, other.totalShares) &&
		intEqual(s.reserveBase, other.reserveBase) &&
		intEqual(s.reserveQuote, other.reserveQuote) &&
		intEqual(s.assetDecimals, other.assetDecimals)
}

func (s PoolSnapshot) String() string {
	return fmt.Sprintf("PoolSnapshot{share=%s total=%s base=%s quote=%s decimals=%s}",
		intString(s.participantShare), intString(s.totalShares),
		intString(s.reserveBase), intString(s.reserveQuote), intString(s.assetDecimals))
}

// SnapshotReading 一次原始读取，任意字段可能缺失（nil）
type SnapshotReading struct {
	ParticipantShare *big.Int
	TotalShares      *big.Int
	ReserveBase      *big.Int
	ReserveQuote     *big.Int
	AssetDecimals    *big.Int
}

// Complete 所有字段都存在时返回 true
func (r SnapshotReading) Complete() bool {
	return r.ParticipantShare != nil && r.TotalShares != nil &&
		r.ReserveBase != nil && r.ReserveQuote != nil && r.AssetDecimals != nil
}

// Snapshot 把完整的读取转换为快照；字段不全时 ok=false
func (r SnapshotReading) Snapshot() (PoolSnapshot, bool) {
	if !r.Complete() {
		return PoolSnapshot{}, false
	}
	return NewPoolSnapshot(r.ParticipantShare, r.TotalShares, r.ReserveBase, r.ReserveQuote, r.AssetDecimals), true
}

// Missing 返回缺失字段名（用于日志）
func (r SnapshotReading) Missing() []string {
	var out []string
	if r.ParticipantShare == nil {
		out = append(out, "participant_share")
	}
	if r.TotalShares == nil {
		out = append(out, "total_shares")
	}
	if r.ReserveBase == nil {
		out = append(out, "reserve_base")
	}
	if r.ReserveQuote == nil {
		out = append(out, "reserve_quote")
	}
	if r.AssetDecimals == nil {
		out = append(out, "asset_decimals")
	}
	return out
}

func proRata(reserve, share, total *big.Int) *big.Int {
	if reserve == nil || share == nil || total == nil || total.Sign() == 0 {
		return new(big.Int)
	}
	n := new(big.Int).Mul(reserve, share)
	// Quo 向零截断，与链上整数除法一致
	return n.Quo(n, total)
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func intEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Cmp(b) == 0
}

func intString(v *big.Int) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}
