package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	UCIFramesTotal      *prometheus.CounterVec // labels: direction=tx|rx
	UCIBytesTotal       *prometheus.CounterVec // labels: direction=tx|rx
	UCIDispatchTotal    *prometheus.CounterVec // labels: mt, gid, oid, status
	UCIDecodeErrorTotal *prometheus.CounterVec // labels: kind=format|enum|transport
	UCITimeoutTotal     prometheus.Counter
	UCIWaitSeconds      prometheus.Histogram // 从开始等待到收到完整帧的耗时

	CaptureTotal       *prometheus.CounterVec   // labels: sink, result=ok|error
	CaptureRSSI        *prometheus.HistogramVec // labels: kind=overall_max|noise_max
	ListenerRearmTotal prometheus.Counter
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		UCIFramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uci_frames_total",
			Help: "UCI frames transferred over the transport.",
		}, []string{"direction"}),
		UCIBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uci_bytes_total",
			Help: "UCI bytes transferred over the transport.",
		}, []string{"direction"}),
		UCIDispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uci_dispatch_total",
			Help: "Dispatched UCI responses and notifications by outcome status.",
		}, []string{"mt", "gid", "oid", "status"}),
		UCIDecodeErrorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uci_decode_error_total",
			Help: "Received UCI frames that could not be decoded.",
		}, []string{"kind"}),
		UCITimeoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uci_wait_timeout_total",
			Help: "Waits that ended without a reply.",
		}),
		UCIWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uci_wait_seconds",
			Help:    "Time spent waiting for a UCI reply.",
			Buckets: []float64{0.005, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 17},
		}),
		CaptureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_records_total",
			Help: "Sniffer capture records written per sink.",
		}, []string{"sink", "result"}),
		CaptureRSSI: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "capture_rssi_dbm",
			Help:    "RSSI reported by RX captures.",
			Buckets: prometheus.LinearBuckets(-120, 10, 13),
		}, []string{"kind"}),
		ListenerRearmTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listener_rearm_total",
			Help: "Times the listener re-armed RX mode.",
		}),
	}
	reg.MustRegister(m.UCIFramesTotal, m.UCIBytesTotal, m.UCIDispatchTotal, m.UCIDecodeErrorTotal,
		m.UCITimeoutTotal, m.UCIWaitSeconds, m.CaptureTotal, m.CaptureRSSI, m.ListenerRearmTotal)
	return m
}
