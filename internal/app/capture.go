package app

import (
	"go.uber.org/zap"

	"github.com/taoyao-code/uwb-sniffer/internal/capture"
	cfgpkg "github.com/taoyao-code/uwb-sniffer/internal/config"
	"github.com/taoyao-code/uwb-sniffer/internal/metrics"
	"github.com/taoyao-code/uwb-sniffer/internal/protocol/sniffer"
	"github.com/taoyao-code/uwb-sniffer/internal/ratelimit"
	pgstorage "github.com/taoyao-code/uwb-sniffer/internal/storage/pg"
	redisstorage "github.com/taoyao-code/uwb-sniffer/internal/storage/redis"
)

// Sinks 组装好的抓包去向
type Sinks struct {
	Fanout *capture.Fanout
	Ring   *capture.Ring
	Repo   *pgstorage.CaptureRepo      // 未启用数据库时为 nil
	Stream *redisstorage.CaptureStream // 未启用 Redis 时为 nil
}

// BuildSinks 内存环形缓冲总是启用；数据库与 Redis 按需作为远端 sink 加入
func BuildSinks(cfg cfgpkg.CaptureConfig, repo *pgstorage.CaptureRepo, stream *redisstorage.CaptureStream,
	logger *zap.Logger, m *metrics.AppMetrics,
) *Sinks {
	s := &Sinks{Ring: capture.NewRing(cfg.RingSize), Repo: repo, Stream: stream}
	s.Fanout = capture.NewFanout(logger, m).AddLocal(s.Ring)
	if repo != nil {
		s.Fanout.AddRemote(repo)
	}
	if stream != nil {
		s.Fanout.AddRemote(stream)
	}
	logger.Info("capture sinks ready", zap.Strings("sinks", s.Fanout.Sinks()))
	return s
}

// NewListener 按配置创建监听循环，rearmPerSec 限制重新启动接收的频率
func NewListener(cfg cfgpkg.SnifferConfig, dev *sniffer.Device, run *capture.Run, sink capture.Sink,
	logger *zap.Logger, m *metrics.AppMetrics,
) *capture.Listener {
	return capture.NewListener(dev, run, sink,
		capture.WithLimiter(ratelimit.New(cfg.RearmPerSec, 1)),
		capture.WithListenerLogger(logger),
		capture.WithListenerMetrics(m))
}
