package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/betbot/poolhedge/internal/domain"
)

var log = logrus.WithField("component", "chain")

// ContractBackend eth_call + 原生余额查询，*ethclient.Client 直接满足
type ContractBackend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Dial 连接 RPC 节点
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接RPC节点失败: %w", err)
	}
	return client, nil
}

// PoolAddresses 一个池子涉及的链上地址
type PoolAddresses struct {
	Pool        common.Address // 持有储备的合约
	ShareToken  common.Address // 份额（LP）代币
	Participant common.Address // 被对冲的份额持有人
	BaseToken   common.Address // 零地址表示 base 为链上原生币（读 Pool 的原生余额）
	QuoteToken  common.Address
}

// PoolReader 通过 eth_call 读取池子快照需要的五个值
type PoolReader struct {
	backend ContractBackend
	addrs   PoolAddresses
	erc20   abi.ABI

	mu       sync.Mutex
	decimals *big.Int
}

func NewPoolReader(backend ContractBackend, addrs PoolAddresses) (*PoolReader, error) {
	parsed, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("解析ERC20 ABI失败: %w", err)
	}
	return &PoolReader{backend: backend, addrs: addrs, erc20: parsed}, nil
}

// Reading 读取池子状态。单个调用失败只记录日志，对应字段留空，
// 由上层把它当作不完整快照处理；返回的 error 始终为 nil。
func (r *PoolReader) Reading(ctx context.Context) (domain.SnapshotReading, error) {
	var out domain.SnapshotReading

	out.ParticipantShare = r.read("participant_share", func() (*big.Int, error) {
		return r.balanceOf(ctx, r.addrs.ShareToken, r.addrs.Participant)
	})
	out.TotalShares = r.read("total_shares", func() (*big.Int, error) {
		return r.uintCall(ctx, r.addrs.ShareToken, "totalSupply")
	})
	out.ReserveBase = r.read("reserve_base", func() (*big.Int, error) {
		if r.addrs.BaseToken == (common.Address{}) {
			return r.backend.BalanceAt(ctx, r.addrs.Pool, nil)
		}
		return r.balanceOf(ctx, r.addrs.BaseToken, r.addrs.Pool)
	})
	out.ReserveQuote = r.read("reserve_quote", func() (*big.Int, error) {
		return r.balanceOf(ctx, r.addrs.QuoteToken, r.addrs.Pool)
	})
	out.AssetDecimals = r.read("asset_decimals", func() (*big.Int, error) {
		return r.quoteDecimals(ctx)
	})

	return out, nil
}

func (r *PoolReader) read(field string, fn func() (*big.Int, error)) *big.Int {
	v, err := fn()
	if err != nil {
		log.WithField("pool", r.addrs.Pool.Hex()).Warnf("读取 %s 失败: %v", field, err)
		return nil
	}
	return v
}

// quoteDecimals 精度不会变，成功一次后缓存
func (r *PoolReader) quoteDecimals(ctx context.Context) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decimals != nil {
		return new(big.Int).Set(r.decimals), nil
	}
	data, err := r.call(ctx, r.addrs.QuoteToken, "decimals")
	if err != nil {
		return nil, err
	}
	vals, err := r.erc20.Unpack("decimals", data)
	if err != nil || len(vals) != 1 {
		return nil, fmt.Errorf("解析decimals结果失败: %v", err)
	}
	dec, ok := vals[0].(uint8)
	if !ok {
		return nil, fmt.Errorf("decimals 返回类型异常: %T", vals[0])
	}
	r.decimals = big.NewInt(int64(dec))
	return new(big.Int).Set(r.decimals), nil
}

func (r *PoolReader) balanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	return r.uintCall(ctx, token, "balanceOf", account)
}

func (r *PoolReader) uintCall(ctx context.Context, token common.Address, method string, args ...interface{}) (*big.Int, error) {
	data, err := r.call(ctx, token, method, args...)
	if err != nil {
		return nil, err
	}
	vals, err := r.erc20.Unpack(method, data)
	if err != nil || len(vals) != 1 {
		return nil, fmt.Errorf("解析%s结果失败: %v", method, err)
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s 返回类型异常: %T", method, vals[0])
	}
	return v, nil
}

func (r *PoolReader) call(ctx context.Context, to common.Address, method string, args ...interface{}) ([]byte, error) {
	data, err := r.erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("打包%s参数失败: %w", method, err)
	}
	result, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("调用%s失败: %w", method, err)
	}
	return result, nil
}
