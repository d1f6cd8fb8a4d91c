package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/betbot/poolhedge/pkg/ratelimit"
)

var (
	// ErrAPI 交易所返回 status != ok
	ErrAPI = errors.New("exchange: api error")
	// ErrHTTP 非 2xx 响应
	ErrHTTP = errors.New("exchange: http error")
)

// restClient resty 的薄封装：公共请求 + 签名请求 + 统一的响应信封解析
type restClient struct {
	client  *resty.Client
	host    string
	signer  *Signer
	limiter *ratelimit.TokenBucket // nil 不限速
}

func newRESTClient(baseURL string, timeout time.Duration, signer *Signer, limiter *ratelimit.TokenBucket) (*restClient, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("exchange: invalid base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	// 不重试：下单请求重放会重复下单，重试留给下一轮轮询
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &restClient{client: client, host: u.Host, signer: signer, limiter: limiter}, nil
}

// envelope 交易所统一响应格式
type envelope struct {
	Status  string          `json:"status"`
	ErrCode string          `json:"err-code"`
	ErrMsg  string          `json:"err-msg"`
	Data    json.RawMessage `json:"data"`
	Tick    json.RawMessage `json:"tick"`
}

func (c *restClient) newRequest(ctx context.Context) *resty.Request {
	r := c.client.R()
	if ctx != nil {
		r.SetContext(ctx)
	}
	r.SetHeader("Accept", "application/json")
	r.SetHeader("User-Agent", "poolhedge")
	return r
}

// do 发送请求。signed 为 true 时附加签名参数；body 非 nil 时以 JSON 发送。
func (c *restClient) do(ctx context.Context, method, path string, params url.Values, body any, signed bool) (*envelope, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(err, "%s %s: rate limit", method, path)
	}
	rc := c.newRequest(ctx)
	if signed {
		if c.signer == nil {
			return nil, errors.Errorf("exchange: %s %s requires credentials", method, path)
		}
		params = c.signer.Sign(method, c.host, path, params)
	}
	if len(params) > 0 {
		rc.SetQueryParamsFromValues(params)
	}
	if body != nil {
		rc.SetHeader("Content-Type", "application/json")
		rc.SetBody(body)
	}

	var (
		resp *resty.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = rc.Get(path)
	case http.MethodPost:
		resp, err = rc.Post(path)
	default:
		return nil, errors.Errorf("unsupported method: %s", method)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	return parseEnvelope(resp)
}

func parseEnvelope(resp *resty.Response) (*envelope, error) {
	if !resp.IsSuccess() {
		return nil, errors.Wrapf(ErrHTTP, "status=%d body=%s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
	}
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	if env.Status != "ok" {
		return nil, errors.Wrapf(ErrAPI, "%s: %s", env.ErrCode, env.ErrMsg)
	}
	return &env, nil
}
