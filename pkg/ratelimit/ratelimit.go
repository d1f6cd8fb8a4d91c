package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket 令牌桶限速器，令牌按时间连续补充
type TokenBucket struct {
	capacity float64
	rate     float64 // 每秒补充的令牌数

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
}

// NewTokenBucket ratePerSecond <= 0 时返回 nil，nil 限速器不限速
func NewTokenBucket(burst int, ratePerSecond float64) *TokenBucket {
	if ratePerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	tb := &TokenBucket{
		capacity: float64(burst),
		rate:     ratePerSecond,
		tokens:   float64(burst),
		now:      time.Now,
	}
	tb.lastRefill = tb.now()
	return tb
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens = min(tb.capacity, tb.tokens+elapsed*tb.rate)
	tb.lastRefill = now
}

// reserve 取一个令牌；不够时返回需要等待的时长
func (tb *TokenBucket) reserve() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return 0
	}
	missing := 1 - tb.tokens
	return time.Duration(missing / tb.rate * float64(time.Second))
}

// Allow 非阻塞取令牌
func (tb *TokenBucket) Allow() bool {
	if tb == nil {
		return true
	}
	return tb.reserve() == 0
}

// Wait 阻塞直到拿到令牌或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	if tb == nil {
		return nil
	}
	for {
		wait := tb.reserve()
		if wait == 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Remaining 当前可用令牌数（向下取整）
func (tb *TokenBucket) Remaining() int {
	if tb == nil {
		return 0
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return int(tb.tokens)
}
