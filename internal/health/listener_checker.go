package health

import (
	"context"
	"sync"
	"time"

	"github.com/taoyao-code/uwb-sniffer/internal/capture"
)

// ListenerStats 监听循环统计来源
type ListenerStats interface {
	Stats() capture.ListenerStats
}

// ListenerChecker 监听循环进度检查：stall 时间内 rearm 计数没有增长视为卡死。
// 循环仍在 rearm、misses 持续增长且最近一帧早于 stall 时视为降级（链路无数据）。
// 单次启动接收最长会阻塞一个突发超时，stall 应大于该值。
type ListenerChecker struct {
	src   ListenerStats
	stall time.Duration
	now   func() time.Time

	mu           sync.Mutex
	lastRearms   int64
	lastMisses   int64
	lastProgress time.Time
}

// NewListenerChecker 创建检查器
func NewListenerChecker(src ListenerStats, stall time.Duration) *ListenerChecker {
	if stall <= 0 {
		stall = time.Minute
	}
	c := &ListenerChecker{src: src, stall: stall, now: time.Now}
	c.lastProgress = c.now()
	return c
}

func (c *ListenerChecker) Name() string { return "listener" }

func (c *ListenerChecker) Check(_ context.Context) CheckResult {
	start := c.now()
	st := c.src.Stats()

	c.mu.Lock()
	if st.Rearms != c.lastRearms {
		c.lastRearms = st.Rearms
		c.lastProgress = start
	}
	missing := st.Misses > c.lastMisses
	c.lastMisses = st.Misses
	idle := start.Sub(c.lastProgress)
	c.mu.Unlock()

	res := CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]any{
			"run_id":   st.RunID,
			"rearms":   st.Rearms,
			"received": st.Received,
			"misses":   st.Misses,
			"idle":     idle.String(),
		},
	}
	switch {
	case idle > c.stall:
		res.Status, res.Message = StatusUnhealthy, "listener stalled"
	case st.Rearms > 0 && st.Received == 0:
		res.Status, res.Message = StatusDegraded, "no frames received yet"
	case missing && !st.LastRx.IsZero() && start.Sub(st.LastRx) > c.stall:
		res.Status, res.Message = StatusDegraded, "no frames received recently"
	}
	if !st.LastRx.IsZero() {
		res.Details["last_rx"] = st.LastRx
	}
	res.Latency = c.now().Sub(start)
	return res
}
