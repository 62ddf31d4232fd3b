package ratelimit

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Limiter 令牌桶限速器，用于约束监听循环重新启动接收的频率。
// 设备回包很快（例如持续收到短帧或立即超时）时，避免把串口和日志打满。
type Limiter struct {
	limiter   *rate.Limiter
	perSecond int
	burst     int
	waited    atomic.Int64
	throttled atomic.Int64
	cancelled atomic.Int64
}

// New 创建限速器；perSecond<=0 表示不限速
func New(perSecond, burst int) *Limiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiter:   rate.NewLimiter(limit, burst),
		perSecond: perSecond,
		burst:     burst,
	}
}

// Wait 阻塞到拿到令牌或 ctx 结束
func (l *Limiter) Wait(ctx context.Context) error {
	if !l.limiter.Allow() {
		l.throttled.Add(1)
		if err := l.limiter.Wait(ctx); err != nil {
			l.cancelled.Add(1)
			return err
		}
	}
	l.waited.Add(1)
	return nil
}

// Stats 统计信息
func (l *Limiter) Stats() Stats {
	return Stats{
		PerSecond: l.perSecond,
		Burst:     l.burst,
		Granted:   l.waited.Load(),
		Throttled: l.throttled.Load(),
		Cancelled: l.cancelled.Load(),
	}
}

// Stats 限速器统计
type Stats struct {
	PerSecond int   `json:"per_second"`
	Burst     int   `json:"burst"`
	Granted   int64 `json:"granted"`
	Throttled int64 `json:"throttled"` // 需要等待才拿到令牌的次数
	Cancelled int64 `json:"cancelled"`
}
