package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)

	m.UCIFramesTotal.WithLabelValues("tx").Inc()
	m.UCIFramesTotal.WithLabelValues("rx").Add(2)
	m.UCITimeoutTotal.Inc()
	m.CaptureTotal.WithLabelValues("memory", "ok").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UCIFramesTotal.WithLabelValues("rx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UCITimeoutTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(m.UCIFramesTotal))

	// 重复注册应 panic
	assert.Panics(t, func() { NewAppMetrics(reg) })
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)
	m.ListenerRearmTotal.Add(3)

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "listener_rearm_total 3")
}
