package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/poolhedge/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{
		BaseURL:   srv.URL,
		AccessKey: "ak",
		SecretKey: "sk",
		AccountID: "42",
		Timeout:   2 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func TestClient_Price(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/market/detail/merged", r.URL.Path)
		assert.Equal(t, "ethusdt", r.URL.Query().Get("symbol"))
		assert.Empty(t, r.URL.Query().Get("Signature"))
		writeJSON(w, `{"status":"ok","ch":"market.ethusdt.detail.merged","tick":{"close":1600.5,"open":1590}}`)
	})

	price, err := c.Price(context.Background(), "ethusdt")
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("1600.5").Equal(price))
}

func TestClient_PriceUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"ok","tick":{}}`)
	})
	_, err := c.Price(context.Background(), "ethusdt")
	require.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestClient_PlaceBuyUsesQuoteAmount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/order/orders/place", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "ak", q.Get("AccessKeyId"))
		assert.Equal(t, "HmacSHA256", q.Get("SignatureMethod"))
		assert.NotEmpty(t, q.Get("Signature"))

		var body placeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body.AccountID)
		assert.Equal(t, "ethusdt", body.Symbol)
		assert.Equal(t, "buy-market", body.Type)
		assert.Equal(t, "3000", body.Amount)
		assert.NotEmpty(t, body.ClientOrderID)
		writeJSON(w, `{"status":"ok","data":"59378"}`)
	})

	id, err := c.PlaceBuy(context.Background(), "ethusdt", decimal.RequireFromString("3000"))
	require.NoError(t, err)
	require.Equal(t, domain.OrderID("59378"), id)
}

func TestClient_PlaceSellUsesBaseAmount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body placeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sell-market", body.Type)
		assert.Equal(t, "1.875", body.Amount)
		writeJSON(w, `{"status":"ok","data":"60001"}`)
	})

	id, err := c.PlaceSell(context.Background(), "ethusdt", decimal.RequireFromString("1.875"))
	require.NoError(t, err)
	require.Equal(t, domain.OrderID("60001"), id)
}

func TestClient_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"error","err-code":"account-frozen-balance-insufficient-error","err-msg":"insufficient balance"}`)
	})
	_, err := c.PlaceSell(context.Background(), "ethusdt", decimal.RequireFromString("1"))
	require.ErrorIs(t, err, ErrAPI)
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestClient_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.OrderStatus(context.Background(), "1")
	require.ErrorIs(t, err, ErrHTTP)
}

func TestClient_OrderStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/order/orders/59378", r.URL.Path)
		writeJSON(w, `{"status":"ok","data":{"id":59378,"symbol":"ethusdt","type":"buy-market",
			"amount":"3000.0","price":"1601.2","field-amount":"1.2","state":"partial-canceled"}}`)
	})

	o, err := c.OrderStatus(context.Background(), "59378")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatePartiallyCanceled, o.State)
	assert.Equal(t, domain.OrderSideBuy, o.Side)
	require.True(t, o.HasAmounts())
	assert.True(t, decimal.RequireFromString("3000").Equal(*o.RequestedAmount))
	assert.True(t, decimal.RequireFromString("1.2").Equal(*o.FilledAmount))
	assert.True(t, decimal.RequireFromString("1601.2").Equal(o.Price))
}

func TestClient_OrderStatusUnknownState(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"ok","data":{"id":1,"type":"sell-market","state":"canceling"}}`)
	})
	o, err := c.OrderStatus(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateUnknown, o.State)
	assert.False(t, o.HasAmounts())
}

func TestClient_Cancel(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/order/orders/59378/submitcancel", r.URL.Path)
		writeJSON(w, `{"status":"ok","data":"59378"}`)
	})
	require.NoError(t, c.Cancel(context.Background(), "59378"))
	require.True(t, called)
}

func TestSigner_Sign(t *testing.T) {
	s := NewSigner("ak", "sk")
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	q := s.Sign("get", "API.example.com", "/v1/order/orders/1", url.Values{"symbol": {"ethusdt"}})
	require.Equal(t, "2024-01-02T03:04:05", q.Get("Timestamp"))
	require.Equal(t, "ethusdt", q.Get("symbol"))

	payload := "GET\napi.example.com\n/v1/order/orders/1\n" +
		"AccessKeyId=ak&SignatureMethod=HmacSHA256&SignatureVersion=2&Timestamp=2024-01-02T03%3A04%3A05&symbol=ethusdt"
	mac := hmac.New(sha256.New, []byte("sk"))
	mac.Write([]byte(payload))
	require.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), q.Get("Signature"))
}

func TestClient_RequiresCredentialsForSignedCalls(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = c.PlaceBuy(context.Background(), "ethusdt", decimal.NewFromInt(1))
	require.Error(t, err)
}

func TestClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"ok","tick":{"close":1}}`)
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL, RateLimit: 0.001})
	require.NoError(t, err)

	_, err = c.Price(context.Background(), "ethusdt")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Price(ctx, "ethusdt")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
