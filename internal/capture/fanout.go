package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/uwb-sniffer/internal/metrics"
)

// 远端 sink 熔断参数
const (
	remoteFailThreshold = 3
	remoteCooldown      = 30 * time.Second
)

type route struct {
	sink    Sink
	breaker *Breaker // 本地 sink 为 nil
}

// Fanout 把每条记录写给所有 sink。远端 sink（数据库、Redis）各自带熔断器，
// 某个 sink 故障不影响其它 sink，也不阻塞监听循环。
type Fanout struct {
	routes  []route
	logger  *zap.Logger
	metrics *metrics.AppMetrics
}

// NewFanout 创建分发器
func NewFanout(logger *zap.Logger, m *metrics.AppMetrics) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{logger: logger, metrics: m}
}

// AddLocal 添加本地 sink（不熔断）
func (f *Fanout) AddLocal(s Sink) *Fanout {
	f.routes = append(f.routes, route{sink: s})
	return f
}

// AddRemote 添加远端 sink，带熔断保护
func (f *Fanout) AddRemote(s Sink) *Fanout {
	b := NewBreaker(remoteFailThreshold, remoteCooldown)
	name := s.Name()
	b.OnStateChange(func(from, to BreakerState) {
		f.logger.Warn("capture sink breaker state changed",
			zap.String("sink", name), zap.Stringer("from", from), zap.Stringer("to", to))
	})
	f.routes = append(f.routes, route{sink: s, breaker: b})
	return f
}

// Sinks 已注册的 sink 名称
func (f *Fanout) Sinks() []string {
	names := make([]string, 0, len(f.routes))
	for _, r := range f.routes {
		names = append(names, r.sink.Name())
	}
	return names
}

func (f *Fanout) Name() string { return "fanout" }

// Write 依次写入所有 sink，返回合并后的错误；熔断中的 sink 直接跳过
func (f *Fanout) Write(ctx context.Context, rec *Record) error {
	if rec == nil {
		return nil
	}
	f.observe(rec)
	var errs []error
	for _, r := range f.routes {
		write := func() error { return r.sink.Write(ctx, rec) }
		var err error
		if r.breaker != nil {
			err = r.breaker.Call(write)
		} else {
			err = write()
		}
		switch {
		case err == nil:
			f.count(r.sink.Name(), "ok")
		case errors.Is(err, ErrSinkSuspended):
			f.count(r.sink.Name(), "skipped")
		default:
			f.count(r.sink.Name(), "error")
			f.logger.Error("capture sink write failed", zap.String("sink", r.sink.Name()),
				zap.String("run_id", rec.RunID.String()), zap.Uint64("seq", rec.Seq), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", r.sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) count(sink, result string) {
	if f.metrics != nil {
		f.metrics.CaptureTotal.WithLabelValues(sink, result).Inc()
	}
}

func (f *Fanout) observe(rec *Record) {
	if f.metrics == nil || rec.Kind != KindRx {
		return
	}
	f.metrics.CaptureRSSI.WithLabelValues("overall_max").Observe(rec.OverallRSSIMax)
	f.metrics.CaptureRSSI.WithLabelValues("noise_max").Observe(rec.NoiseRSSIMax)
}
