package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/poolhedge/internal/domain"
	"github.com/betbot/poolhedge/pkg/ratelimit"
)

var log = logrus.WithField("component", "exchange")

// ErrPriceUnavailable 行情里没有可用价格
var ErrPriceUnavailable = errors.New("exchange: price unavailable")

const (
	pathMergedTicker = "/market/detail/merged"
	pathPlaceOrder   = "/v1/order/orders/place"
	pathOrder        = "/v1/order/orders/"
)

// Config 交易所连接参数
type Config struct {
	BaseURL   string
	AccessKey string
	SecretKey string
	AccountID string
	Timeout   time.Duration
	RateLimit float64 // 每秒请求数，<=0 不限速
}

// Client 现货 REST 客户端（市价单）
type Client struct {
	rest      *restClient
	accountID string
}

func NewClient(cfg Config) (*Client, error) {
	var signer *Signer
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		signer = NewSigner(cfg.AccessKey, cfg.SecretKey)
	}
	rest, err := newRESTClient(cfg.BaseURL, cfg.Timeout, signer, ratelimit.NewTokenBucket(int(cfg.RateLimit), cfg.RateLimit))
	if err != nil {
		return nil, err
	}
	return &Client{rest: rest, accountID: cfg.AccountID}, nil
}

// Price 最新成交价（merged ticker 的 close）
func (c *Client) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	env, err := c.rest.do(ctx, http.MethodGet, pathMergedTicker, url.Values{"symbol": {symbol}}, nil, false)
	if err != nil {
		return decimal.Zero, err
	}
	var tick struct {
		Close decimal.NullDecimal `json:"close"`
	}
	if len(env.Tick) == 0 {
		return decimal.Zero, errors.Wrapf(ErrPriceUnavailable, "symbol=%s: empty tick", symbol)
	}
	if err := json.Unmarshal(env.Tick, &tick); err != nil {
		return decimal.Zero, errors.Wrap(err, "decode tick")
	}
	if !tick.Close.Valid || !tick.Close.Decimal.IsPositive() {
		return decimal.Zero, errors.Wrapf(ErrPriceUnavailable, "symbol=%s", symbol)
	}
	return tick.Close.Decimal, nil
}

// PlaceBuy 市价买：amount 为 quote 数量
func (c *Client) PlaceBuy(ctx context.Context, symbol string, quoteAmount decimal.Decimal) (domain.OrderID, error) {
	return c.place(ctx, symbol, "buy-market", quoteAmount)
}

// PlaceSell 市价卖：amount 为 base 数量
func (c *Client) PlaceSell(ctx context.Context, symbol string, baseAmount decimal.Decimal) (domain.OrderID, error) {
	return c.place(ctx, symbol, "sell-market", baseAmount)
}

type placeRequest struct {
	AccountID     string `json:"account-id"`
	Symbol        string `json:"symbol"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	ClientOrderID string `json:"client-order-id"`
}

func (c *Client) place(ctx context.Context, symbol, orderType string, amount decimal.Decimal) (domain.OrderID, error) {
	if !amount.IsPositive() {
		return "", errors.Errorf("exchange: order amount must be positive, got %s", amount)
	}
	req := placeRequest{
		AccountID:     c.accountID,
		Symbol:        symbol,
		Type:          orderType,
		Amount:        amount.String(),
		ClientOrderID: uuid.NewString(),
	}
	env, err := c.rest.do(ctx, http.MethodPost, pathPlaceOrder, nil, req, true)
	if err != nil {
		return "", errors.Wrapf(err, "place %s %s", orderType, symbol)
	}
	id := unquote(env.Data)
	if id == "" {
		return "", errors.Errorf("exchange: place %s %s returned empty order id", orderType, symbol)
	}
	log.WithFields(logrus.Fields{"symbol": symbol, "type": orderType, "order_id": id, "client_order_id": req.ClientOrderID}).
		Infof("下单成功 amount=%s", req.Amount)
	return domain.OrderID(id), nil
}

type orderDetail struct {
	ID           json.Number      `json:"id"`
	Symbol       string           `json:"symbol"`
	Type         string           `json:"type"`
	Amount       *decimal.Decimal `json:"amount"`
	Price        decimal.Decimal  `json:"price"`
	FieldAmount  *decimal.Decimal `json:"field-amount"`
	FilledAmount *decimal.Decimal `json:"filled-amount"`
	State        string           `json:"state"`
}

// OrderStatus 查询订单。无法识别的状态返回 OrderStateUnknown。
func (c *Client) OrderStatus(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	env, err := c.rest.do(ctx, http.MethodGet, pathOrder+string(id), nil, nil, true)
	if err != nil {
		return nil, errors.Wrapf(err, "query order %s", id)
	}
	var detail orderDetail
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		return nil, errors.Wrapf(err, "decode order %s", id)
	}
	return detail.toDomain(id), nil
}

func (d orderDetail) toDomain(id domain.OrderID) *domain.Order {
	filled := d.FilledAmount
	if filled == nil {
		filled = d.FieldAmount
	}
	side := domain.OrderSide(0)
	switch {
	case strings.HasPrefix(d.Type, "buy"):
		side = domain.OrderSideBuy
	case strings.HasPrefix(d.Type, "sell"):
		side = domain.OrderSideSell
	}
	return &domain.Order{
		ID:              id,
		Symbol:          d.Symbol,
		Side:            side,
		RequestedAmount: d.Amount,
		Price:           d.Price,
		State:           domain.ParseOrderState(d.State),
		FilledAmount:    filled,
	}
}

// Cancel 请求撤单，结果需要再次查询订单确认
func (c *Client) Cancel(ctx context.Context, id domain.OrderID) error {
	_, err := c.rest.do(ctx, http.MethodPost, pathOrder+string(id)+"/submitcancel", nil, nil, true)
	if err != nil {
		return errors.Wrapf(err, "cancel order %s", id)
	}
	return nil
}

func unquote(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "null" {
		return ""
	}
	return s
}

// PriceSource 把某个交易对的行情适配成池子的价格源
type PriceSource struct {
	client PriceClient
	symbol string
}

// PriceClient Client 和 PaperClient 都满足
type PriceClient interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

func NewPriceSource(client PriceClient, symbol string) *PriceSource {
	return &PriceSource{client: client, symbol: symbol}
}

func (p *PriceSource) Price(ctx context.Context) (decimal.Decimal, error) {
	return p.client.Price(ctx, p.symbol)
}
