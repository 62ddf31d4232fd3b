package sniffer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/uwb-sniffer/internal/protocol/uci"
	"github.com/taoyao-code/uwb-sniffer/internal/transport"
)

func newSimDevice(t *testing.T, cfg SimulatorConfig, opts ...uci.Option) (*Device, *transport.Stub) {
	t.Helper()
	stub := transport.NewStub()
	sim := NewSimulator(cfg)
	stub.SetResponder(sim.Respond)
	stub.SetResetFrames(sim.ResetFrames()...)
	layer := uci.NewLayer(stub, opts...)
	dev := NewDevice(layer, WithTimeouts(Timeouts{Config: 50 * time.Millisecond, Burst: 50 * time.Millisecond}))
	return dev, stub
}

func TestDevice_HardReset(t *testing.T) {
	dev, stub := newSimDevice(t, SimulatorConfig{})
	out, err := dev.HardReset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uci.StatusReboot, out.Status)
	assert.Equal(t, uci.MessageTypeNotification, out.MessageType)
	assert.Equal(t, 1, stub.Resets())
}

func TestDevice_ListenerFlow(t *testing.T) {
	dev, stub := newSimDevice(t, SimulatorConfig{OverallRSSI: -(1 << 28), RxPayload: []byte{0x01, 0x02}})
	ctx := context.Background()

	out, err := dev.ConfigureRangingApp(ctx, 9, 14)
	require.NoError(t, err)
	assert.Equal(t, uci.StatusOK, out.Status)
	_, ok := ResultAs[*StatusResult](out)
	assert.True(t, ok)

	out, err = dev.ConfigureRxMode(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, uci.StatusOK, out.Status)

	out, err = dev.StartRxMode(ctx)
	require.NoError(t, err)
	rx, ok := ResultAs[*RxResult](out)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02}, rx.Payload)
	assert.Equal(t, uint8(1), *rx.FrameNum)

	sent := stub.TxLog()
	require.Len(t, sent, 3)
	// 配置测距应用：前 4 字节载荷为信道 9 频率
	assert.Equal(t, []byte{0x2E, 0x28, 0x00, 0x0E, 0x00, 0xE0, 0x79, 0x00}, sent[0][:8])
	assert.Equal(t, byte(56), sent[0][uci.HeaderSize+9])
	assert.Equal(t, []byte{0x2E, 0x1B, 0x00, 0x00}, sent[2])
}

func TestDevice_InvalidChannelSendsNothing(t *testing.T) {
	dev, stub := newSimDevice(t, SimulatorConfig{})
	out, err := dev.ConfigureRangingApp(context.Background(), 7, 14)
	assert.ErrorIs(t, err, ErrInvalidChannel)
	assert.Nil(t, out)
	assert.Empty(t, stub.TxLog())
}

func TestDevice_StartRxTimeout(t *testing.T) {
	dev, _ := newSimDevice(t, SimulatorConfig{DropEvery: 1})
	out, err := dev.StartRxMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uci.StatusFailed, out.Status)
	_, ok := ResultAs[*RxResult](out)
	assert.False(t, ok)
}

func TestDevice_TransmitBurst(t *testing.T) {
	dev, _ := newSimDevice(t, SimulatorConfig{})
	ctx := context.Background()

	out, err := dev.ConfigureTxMode(ctx, 9, 0, 5, 10000)
	require.NoError(t, err)
	require.Equal(t, uci.StatusOK, out.Status)

	out, err = dev.StartTxMode(ctx, []byte{0xDE, 0xAD})
	require.NoError(t, err)
	tx, ok := ResultAs[*TxResult](out)
	require.True(t, ok)
	require.NotNil(t, tx.TxStatus)
	assert.Equal(t, TxStatusSuccess, *tx.TxStatus)
}

func TestDevice_ContinuousTxIsFireAndForget(t *testing.T) {
	dev, stub := newSimDevice(t, SimulatorConfig{})
	ctx := context.Background()

	_, err := dev.ConfigureTxMode(ctx, 9, 0, 0, 10000)
	require.NoError(t, err)

	start := time.Now()
	out, err := dev.StartTxMode(ctx, []byte{0xDE, 0xAD})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Less(t, time.Since(start), 40*time.Millisecond)
	assert.Len(t, stub.TxLog(), 2)

	// 复位后恢复等待回包
	_, err = dev.HardReset(ctx)
	require.NoError(t, err)
	_, err = dev.ConfigureTxMode(ctx, 9, 0, 1, 10000)
	require.NoError(t, err)
	out, err = dev.StartTxMode(ctx, []byte{0xDE, 0xAD})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, uci.StatusOK, out.Status)
}

func TestDevice_StartTxPayloadValidation(t *testing.T) {
	dev, stub := newSimDevice(t, SimulatorConfig{})
	_, err := dev.StartTxMode(context.Background(), []byte{0x01})
	assert.ErrorIs(t, err, ErrInvalidPayloadLength)
	assert.Empty(t, stub.TxLog())
}

func TestDevice_SequenceFlow(t *testing.T) {
	dev, _ := newSimDevice(t, SimulatorConfig{RxPayload: []byte{0x41, 0x88}})
	ctx := context.Background()

	p, err := NewParameters(9)
	require.NoError(t, err)
	entries, err := ListenerSequence(p, int(p.BurstCount()))
	require.NoError(t, err)

	out, err := dev.ConfigureRangingSequence(ctx, entries)
	require.NoError(t, err)
	require.Equal(t, uci.StatusOK, out.Status)

	out, err = dev.StartRanging(ctx)
	require.NoError(t, err)
	require.Equal(t, uci.StatusOK, out.Status)

	out, err = dev.GetRangingStatus(ctx)
	require.NoError(t, err)
	st, ok := ResultAs[*RangingStatusResult](out)
	require.True(t, ok)
	assert.Len(t, st.RxStatusList, 5)

	out, err = dev.GetRangingResult(ctx)
	require.NoError(t, err)
	rr, ok := ResultAs[*RangingResult](out)
	require.True(t, ok)
	assert.Equal(t, []uint32{10000, 20000, 30000, 40000}, rr.TimestampDiffs)

	out, err = dev.GetPayload(ctx, 3)
	require.NoError(t, err)
	pr, ok := ResultAs[*PayloadResult](out)
	require.True(t, ok)
	assert.Equal(t, []byte{0x03, 0x41, 0x88}, pr.Payload)

	out, err = dev.GetPayload(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, uci.StatusInvalidParam, out.Status)

	_, err = dev.GetPayload(ctx, 256)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDevice_StartRangingWithoutSequence(t *testing.T) {
	dev, _ := newSimDevice(t, SimulatorConfig{})
	out, err := dev.StartRanging(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uci.StatusRejected, out.Status)
	_, ok := ResultAs[*StatusResult](out)
	assert.False(t, ok)
}

func TestDevice_UserDefinedCommand(t *testing.T) {
	dev, stub := newSimDevice(t, SimulatorConfig{})
	ctx := context.Background()
	require.NoError(t, dev.UserDefinedCommand(ctx, uci.GIDVendor, 0x00, []byte{0x01}))
	out, err := dev.WaitResponse(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	// 厂商组没有内置解码器
	assert.Equal(t, uci.StatusNotImplemented, out.Status)
	assert.Equal(t, uci.RawPayload{byte(uci.StatusRejected), 0, 0, 0}, out.Result)
	assert.Equal(t, []byte{0x2A, 0x00, 0x00, 0x01, 0x01}, stub.TxLog()[0])
}

func TestDevice_WithChecksum(t *testing.T) {
	dev, _ := newSimDevice(t, SimulatorConfig{Checksum: true}, uci.WithChecksum(nil))
	out, err := dev.ConfigureRxMode(context.Background(), 9, 0)
	require.NoError(t, err)
	assert.Equal(t, uci.StatusOK, out.Status)
}

func TestDevice_NoResetLine(t *testing.T) {
	layer := uci.NewLayer(noResetPort{})
	dev := NewDevice(layer)
	_, err := dev.HardReset(context.Background())
	assert.ErrorIs(t, err, ErrNoResetLine)
}

type noResetPort struct{}

func (noResetPort) Transmit(context.Context, []byte) error { return nil }
func (noResetPort) Receive(context.Context, time.Duration) ([]byte, error) {
	return nil, transport.ErrTimeout
}
