package capture

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/uwb-sniffer/internal/metrics"
	"github.com/taoyao-code/uwb-sniffer/internal/protocol/sniffer"
	"github.com/taoyao-code/uwb-sniffer/internal/protocol/uci"
	"github.com/taoyao-code/uwb-sniffer/internal/ratelimit"
	"github.com/taoyao-code/uwb-sniffer/internal/transport"
)

func simDevice(t *testing.T, cfg sniffer.SimulatorConfig) *sniffer.Device {
	t.Helper()
	stub := transport.NewStub()
	sim := sniffer.NewSimulator(cfg)
	stub.SetResponder(sim.Respond)
	layer := uci.NewLayer(stub)
	return sniffer.NewDevice(layer, sniffer.WithTimeouts(sniffer.Timeouts{Config: 30 * time.Millisecond, Burst: 30 * time.Millisecond}))
}

func TestListener_Once(t *testing.T) {
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	dev := simDevice(t, sniffer.SimulatorConfig{DropEvery: 2, RxPayload: []byte{0x41, 0x88}})
	ring := NewRing(8)
	ln := NewListener(dev, newRun(t), NewFanout(nil, m).AddLocal(ring), WithListenerMetrics(m))

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, ln.Once(ctx))
	}
	stats := ln.Stats()
	assert.Equal(t, int64(4), stats.Rearms)
	assert.Equal(t, int64(2), stats.Received)
	assert.Equal(t, int64(2), stats.Misses)
	assert.False(t, stats.LastRx.IsZero())
	assert.Equal(t, 2, ring.Len())
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ListenerRearmTotal))

	recs, err := ring.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41, 0x88}, recs[0].Payload)
	assert.Equal(t, uint64(2), recs[0].Seq)
}

func TestListener_RunUntilCancelled(t *testing.T) {
	dev := simDevice(t, sniffer.SimulatorConfig{})
	ring := NewRing(16)
	ln := NewListener(dev, newRun(t), NewFanout(nil, nil).AddLocal(ring), WithLimiter(ratelimit.New(1000, 1)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var seen int
	ln.OnResult = func(res *sniffer.RxResult) {
		seen++
		if seen == 3 {
			cancel()
		}
	}

	done := make(chan error, 1)
	go func() { done <- ln.Run(ctx) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}
	assert.Equal(t, 3, ring.Len())
}
