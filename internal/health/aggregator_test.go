package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/uwb-sniffer/internal/capture"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status, Message: "mock", Latency: time.Millisecond}
}

func TestAggregator(t *testing.T) {
	tests := []struct {
		name      string
		checkers  []Checker
		want      Status
		wantReady bool
	}{
		{
			name:      "全部健康",
			checkers:  []Checker{&mockChecker{"database", StatusHealthy}, &mockChecker{"listener", StatusHealthy}},
			want:      StatusHealthy,
			wantReady: true,
		},
		{
			name:      "部分降级仍就绪",
			checkers:  []Checker{&mockChecker{"database", StatusHealthy}, &mockChecker{"redis", StatusDegraded}},
			want:      StatusDegraded,
			wantReady: true,
		},
		{
			name:      "任一不健康",
			checkers:  []Checker{&mockChecker{"redis", StatusDegraded}, &mockChecker{"listener", StatusUnhealthy}},
			want:      StatusUnhealthy,
			wantReady: false,
		},
		{
			name:      "没有检查器",
			want:      StatusHealthy,
			wantReady: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(tt.checkers...)
			assert.Equal(t, tt.want, agg.OverallStatus(context.Background()))
			assert.Equal(t, tt.wantReady, agg.Ready(context.Background()))
		})
	}
}

func TestAggregator_AddChecker(t *testing.T) {
	agg := NewAggregator(&mockChecker{"initial", StatusHealthy})
	agg.AddChecker(&mockChecker{"added", StatusDegraded})

	report := agg.Report(context.Background())
	assert.Len(t, report.Checks, 2)
	assert.Equal(t, StatusDegraded, report.Status)
	assert.False(t, report.Timestamp.IsZero())
}

type fakeListener struct{ stats capture.ListenerStats }

func (f *fakeListener) Stats() capture.ListenerStats { return f.stats }

func TestListenerChecker(t *testing.T) {
	src := &fakeListener{}
	c := NewListenerChecker(src, time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	c.lastProgress = now

	ctx := context.Background()
	assert.Equal(t, StatusHealthy, c.Check(ctx).Status)

	src.stats = capture.ListenerStats{Rearms: 5}
	res := c.Check(ctx)
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, int64(5), res.Details["rearms"])

	src.stats = capture.ListenerStats{Rearms: 8, Received: 2}
	now = now.Add(30 * time.Second)
	assert.Equal(t, StatusHealthy, c.Check(ctx).Status)

	// 计数停滞超过 stall
	now = now.Add(2 * time.Minute)
	res = c.Check(ctx)
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "listener stalled", res.Message)
}

func TestListenerChecker_MissesAfterLastFrame(t *testing.T) {
	start := time.Unix(1000, 0)
	tests := []struct {
		name   string
		misses int64
		lastRx time.Time
		want   Status
	}{
		{name: "丢帧增长且最近一帧过期", misses: 9, lastRx: start.Add(-2 * time.Minute), want: StatusDegraded},
		{name: "丢帧增长但最近一帧未过期", misses: 9, lastRx: start.Add(-10 * time.Second), want: StatusHealthy},
		{name: "丢帧未增长", misses: 4, lastRx: start.Add(-2 * time.Minute), want: StatusHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeListener{stats: capture.ListenerStats{Rearms: 10, Received: 3, Misses: 4, LastRx: start.Add(-time.Hour)}}
			c := NewListenerChecker(src, time.Minute)
			now := start.Add(-30 * time.Second)
			c.now = func() time.Time { return now }
			c.lastProgress = now
			ctx := context.Background()
			c.Check(ctx)

			now = start
			src.stats = capture.ListenerStats{Rearms: 20, Received: 3, Misses: tt.misses, LastRx: tt.lastRx}
			res := c.Check(ctx)
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, tt.lastRx, res.Details["last_rx"])
		})
	}
}

func TestRegisterHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterHTTPRoutes(r, NewAggregator(&mockChecker{"listener", StatusUnhealthy}))

	tests := []struct {
		path string
		code int
	}{
		{path: "/health/live", code: http.StatusOK},
		{path: "/health/ready", code: http.StatusServiceUnavailable},
		{path: "/health", code: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rr.Code)
		})
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	var report HealthReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, StatusUnhealthy, report.Checks["listener"].Status)
}
