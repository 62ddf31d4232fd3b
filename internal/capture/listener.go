package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/uwb-sniffer/internal/metrics"
	"github.com/taoyao-code/uwb-sniffer/internal/protocol/sniffer"
	"github.com/taoyao-code/uwb-sniffer/internal/ratelimit"
)

// Listener 监听循环：反复启动 RX 模式，把成功收到的帧写入 sink。
// 设备已完成测距应用与 RX 模式配置后再调用 Run。
type Listener struct {
	dev     *sniffer.Device
	run     *Run
	sink    Sink
	limiter *ratelimit.Limiter
	logger  *zap.Logger
	metrics *metrics.AppMetrics

	// OnResult 每次 StartRxMode 返回后回调（含失败/超时）
	OnResult func(res *sniffer.RxResult)

	rearms   atomic.Int64
	received atomic.Int64
	misses   atomic.Int64
	lastRx   atomic.Int64 // unix nano
}

// ListenerOption 可选配置
type ListenerOption func(*Listener)

// WithLimiter 限制重新启动接收的频率
func WithLimiter(l *ratelimit.Limiter) ListenerOption {
	return func(ln *Listener) { ln.limiter = l }
}

// WithListenerLogger 设置日志
func WithListenerLogger(l *zap.Logger) ListenerOption {
	return func(ln *Listener) {
		if l != nil {
			ln.logger = l
		}
	}
}

// WithListenerMetrics 设置指标
func WithListenerMetrics(m *metrics.AppMetrics) ListenerOption {
	return func(ln *Listener) { ln.metrics = m }
}

// NewListener 创建监听循环
func NewListener(dev *sniffer.Device, run *Run, sink Sink, opts ...ListenerOption) *Listener {
	l := &Listener{
		dev:     dev,
		run:     run,
		sink:    sink,
		limiter: ratelimit.New(0, 1),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run 循环直到 ctx 取消。解码失败的帧记日志后继续；ctx 取消返回 nil。
// 取消不会撤回已发出的启动命令，正在进行的接收由设备自行超时结束。
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info("listener started", zap.String("run_id", l.run.ID.String()),
		zap.Int("channel", l.run.Channel), zap.Int("preamble_id", l.run.PreambleID))
	defer func() {
		l.logger.Info("listener stopped", zap.String("run_id", l.run.ID.String()),
			zap.Int64("rearms", l.rearms.Load()), zap.Int64("received", l.received.Load()))
	}()
	for ctx.Err() == nil {
		if err := l.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := l.Once(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, sniffer.ErrValidation) {
				return err
			}
			l.logger.Warn("rx attempt failed", zap.Error(err))
		}
	}
	return nil
}

// Once 启动一次接收并处理结果
func (l *Listener) Once(ctx context.Context) error {
	l.rearms.Add(1)
	if l.metrics != nil {
		l.metrics.ListenerRearmTotal.Inc()
	}
	out, err := l.dev.StartRxMode(ctx)
	if err != nil {
		l.misses.Add(1)
		return err
	}
	res, ok := sniffer.ResultAs[*sniffer.RxResult](out)
	if !ok {
		l.misses.Add(1)
		l.logger.Debug("rx returned no frame", zap.Stringer("status", out.Status))
		if l.OnResult != nil {
			if r, isRx := out.Result.(*sniffer.RxResult); isRx {
				l.OnResult(r)
			}
		}
		return nil
	}
	l.received.Add(1)
	l.lastRx.Store(time.Now().UnixNano())
	if l.OnResult != nil {
		l.OnResult(res)
	}
	if rec := l.run.FromRx(res); rec != nil {
		// sink 错误已由 Fanout 记录，不中断监听
		_ = l.sink.Write(ctx, rec)
	}
	return nil
}

// ListenerStats 监听统计
type ListenerStats struct {
	RunID    string    `json:"run_id"`
	Rearms   int64     `json:"rearms"`
	Received int64     `json:"received"`
	Misses   int64     `json:"misses"`
	LastRx   time.Time `json:"last_rx,omitzero"`
}

// Stats 统计快照
func (l *Listener) Stats() ListenerStats {
	s := ListenerStats{
		RunID:    l.run.ID.String(),
		Rearms:   l.rearms.Load(),
		Received: l.received.Load(),
		Misses:   l.misses.Load(),
	}
	if ns := l.lastRx.Load(); ns > 0 {
		s.LastRx = time.Unix(0, ns)
	}
	return s
}
