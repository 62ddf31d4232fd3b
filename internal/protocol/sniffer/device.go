package sniffer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/uwb-sniffer/internal/protocol/uci"
	"github.com/taoyao-code/uwb-sniffer/internal/transport"
)

// Timeouts 等待回包的超时
type Timeouts struct {
	// Config 配置类命令与查询
	Config time.Duration
	// Burst 启动收发/测距，最坏情况由射频超时 0xFFFFFF us 决定
	Burst time.Duration
}

// DefaultTimeouts 默认超时：配置 200ms，收发 17s
func DefaultTimeouts() Timeouts {
	return Timeouts{Config: 200 * time.Millisecond, Burst: 17000 * time.Millisecond}
}

// ErrNoResetLine 传输层不支持硬复位
var ErrNoResetLine = errors.New("sniffer: transport has no reset line")

// Device 嗅探器设备会话：在 UCI 分发层之上提供每条嗅探命令的封装。
// 与 Layer 相同，只支持单线程使用。
type Device struct {
	layer    *uci.Layer
	logger   *zap.Logger
	timeouts Timeouts

	// 最近一次 TX 配置为无限循环（burst=0），启动发射时不等待回包
	txContinuous bool
}

// DeviceOption Device 可选配置
type DeviceOption func(*Device)

// WithDeviceLogger 设置日志
func WithDeviceLogger(l *zap.Logger) DeviceOption {
	return func(d *Device) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithTimeouts 覆盖默认超时，零值字段保持默认
func WithTimeouts(t Timeouts) DeviceOption {
	return func(d *Device) {
		if t.Config > 0 {
			d.timeouts.Config = t.Config
		}
		if t.Burst > 0 {
			d.timeouts.Burst = t.Burst
		}
	}
}

// NewDevice 创建设备会话并注册内置的嗅探组解码器
func NewDevice(layer *uci.Layer, opts ...DeviceOption) *Device {
	d := &Device{
		layer:    layer,
		logger:   zap.NewNop(),
		timeouts: DefaultTimeouts(),
	}
	for _, opt := range opts {
		opt(d)
	}
	RegisterHandlers(layer)
	return d
}

// RegisterHandlers 注册嗅探组 (GID 0x0E) 的内置响应/通知解码器
func RegisterHandlers(layer *uci.Layer) {
	g := uci.GIDSniffer
	layer.RegisterNotificationHandler(g, uci.OIDSnifferResetStatusNtf, statusHandler("SNIFFER_RESET_STATUS_NTF"))

	layer.RegisterResponseHandler(g, uci.OIDSnifferCfgRangingApp, statusHandler("SNIFFER_CFG_RANGING_APP_RSP"))
	layer.RegisterResponseHandler(g, uci.OIDSnifferCfgRxMode, statusHandler("SNIFFER_CFG_RX_MODE_RSP"))
	layer.RegisterResponseHandler(g, uci.OIDSnifferCfgTxMode, statusHandler("SNIFFER_CFG_TX_MODE_RSP"))
	layer.RegisterResponseHandler(g, uci.OIDSnifferCfgRangingSeq, statusHandler("SNIFFER_CFG_RANGING_SEQ_RSP"))
	layer.RegisterResponseHandler(g, uci.OIDSnifferStartRanging, statusHandler("SNIFFER_START_RANGING_RSP"))

	layer.RegisterResponseHandler(g, uci.OIDSnifferStartRxMode, decoderHandler(DecodeRxResult))
	layer.RegisterResponseHandler(g, uci.OIDSnifferStartTxMode, decoderHandler(DecodeTxResult))
	layer.RegisterResponseHandler(g, uci.OIDSnifferGetRangingStatus, decoderHandler(DecodeRangingStatus))
	layer.RegisterResponseHandler(g, uci.OIDSnifferGetRangingResult, decoderHandler(DecodeRangingResult))
	layer.RegisterResponseHandler(g, uci.OIDSnifferGetPayload, decoderHandler(DecodePayload))
}

type statusResult interface {
	uci.Result
	StatusCode() uci.Status
}

func (r *StatusResult) StatusCode() uci.Status        { return r.Status }
func (r *RxResult) StatusCode() uci.Status            { return r.Status }
func (r *TxResult) StatusCode() uci.Status            { return r.Status }
func (r *RangingStatusResult) StatusCode() uci.Status { return r.Status }
func (r *RangingResult) StatusCode() uci.Status       { return r.Status }
func (r *PayloadResult) StatusCode() uci.Status       { return r.Status }

func decoderHandler[T statusResult](decode func(body []byte) (T, error)) uci.Handler {
	return func(m *uci.Message) (uci.Status, uci.Result, error) {
		r, err := decode(m.Body())
		if err != nil {
			return uci.StatusFailed, nil, err
		}
		return r.StatusCode(), r, nil
	}
}

func statusHandler(name string) uci.Handler {
	return decoderHandler(func(body []byte) (*StatusResult, error) {
		return DecodeStatusResult(name, body)
	})
}

// ResultAs 取出指定类型的解码结果；状态非 OK 或类型不符时返回 false
func ResultAs[T uci.Result](out *uci.Outcome) (T, bool) {
	var zero T
	if out == nil || out.Status != uci.StatusOK {
		return zero, false
	}
	r, ok := out.Result.(T)
	return r, ok
}

// Layer 返回底层分发层
func (d *Device) Layer() *uci.Layer { return d.layer }

// Timeouts 返回当前超时配置
func (d *Device) Timeouts() Timeouts { return d.timeouts }

func (d *Device) exchange(ctx context.Context, oid uci.OID, payload []byte, timeout time.Duration) (*uci.Outcome, error) {
	out, err := d.layer.Exchange(ctx, uci.GIDSniffer, oid, payload, timeout)
	if err != nil {
		return out, fmt.Errorf("%s: %w", uci.SnifferOIDName(oid), err)
	}
	return out, nil
}

// configure 配置类命令：状态非 OK 只记录错误，由调用方根据 Outcome 决定是否继续
func (d *Device) configure(ctx context.Context, oid uci.OID, payload []byte) (*uci.Outcome, error) {
	out, err := d.exchange(ctx, oid, payload, d.timeouts.Config)
	if err != nil {
		return out, err
	}
	if out.Status != uci.StatusOK {
		d.logger.Error("sniffer command not accepted",
			zap.String("op", uci.SnifferOIDName(oid)),
			zap.Stringer("status", out.Status))
	}
	return out, nil
}

// ConfigureRangingApp 配置测距应用射频参数；信道/功率非法时不发送任何字节
func (d *Device) ConfigureRangingApp(ctx context.Context, channel, txPowerDbm int) (*uci.Outcome, error) {
	payload, err := EncodeRangingApp(channel, txPowerDbm)
	if err != nil {
		d.logger.Error("invalid ranging app config", zap.Int("channel", channel), zap.Error(err))
		return nil, err
	}
	return d.configure(ctx, uci.OIDSnifferCfgRangingApp, payload)
}

// ConfigureRxMode 配置 RX 模式
func (d *Device) ConfigureRxMode(ctx context.Context, preambleID, sfdID int) (*uci.Outcome, error) {
	payload, err := EncodeRxMode(preambleID, sfdID)
	if err != nil {
		return nil, err
	}
	return d.configure(ctx, uci.OIDSnifferCfgRxMode, payload)
}

// StartRxMode 启动一次接收并等待结果（RxResult）
func (d *Device) StartRxMode(ctx context.Context) (*uci.Outcome, error) {
	return d.exchange(ctx, uci.OIDSnifferStartRxMode, nil, d.timeouts.Burst)
}

// ConfigureTxMode 配置 TX 模式；burstCount=0 时后续 StartTxMode 不等待回包
func (d *Device) ConfigureTxMode(ctx context.Context, preambleID, sfdID, burstCount, intervalUs int) (*uci.Outcome, error) {
	payload, err := EncodeTxMode(preambleID, sfdID, burstCount, intervalUs)
	if err != nil {
		return nil, err
	}
	out, err := d.configure(ctx, uci.OIDSnifferCfgTxMode, payload)
	if err == nil && out.Status == uci.StatusOK {
		d.txContinuous = burstCount == 0
	}
	return out, err
}

// StartTxMode 发射载荷（2~127 字节）。
// 无限循环模式下设备不会回包：命令发出后立即返回 nil Outcome，停止发射需要硬复位。
func (d *Device) StartTxMode(ctx context.Context, payload []byte) (*uci.Outcome, error) {
	data, err := EncodeStartTx(payload)
	if err != nil {
		return nil, err
	}
	if d.txContinuous {
		if err := d.layer.SendCommand(ctx, uci.GIDSniffer, uci.OIDSnifferStartTxMode, data); err != nil {
			return nil, fmt.Errorf("%s: %w", uci.SnifferOIDName(uci.OIDSnifferStartTxMode), err)
		}
		d.logger.Info("continuous tx started, hard reset required to stop", zap.Int("payload_len", len(payload)))
		return nil, nil
	}
	return d.exchange(ctx, uci.OIDSnifferStartTxMode, data, d.timeouts.Burst)
}

// ConfigureRangingSequence 下发测距序列
func (d *Device) ConfigureRangingSequence(ctx context.Context, entries []RangingEntry) (*uci.Outcome, error) {
	payload, err := EncodeRangingSequence(entries)
	if err != nil {
		return nil, err
	}
	return d.configure(ctx, uci.OIDSnifferCfgRangingSeq, payload)
}

// StartRanging 启动测距序列；首个窗口默认超时约 16.7s
func (d *Device) StartRanging(ctx context.Context) (*uci.Outcome, error) {
	return d.exchange(ctx, uci.OIDSnifferStartRanging, nil, d.timeouts.Burst)
}

// GetRangingStatus 读取每个接收窗口的状态位图
func (d *Device) GetRangingStatus(ctx context.Context) (*uci.Outcome, error) {
	return d.exchange(ctx, uci.OIDSnifferGetRangingStatus, nil, d.timeouts.Config)
}

// GetRangingResult 读取各帧相对首帧的时间戳差
func (d *Device) GetRangingResult(ctx context.Context) (*uci.Outcome, error) {
	return d.exchange(ctx, uci.OIDSnifferGetRangingResult, nil, d.timeouts.Config)
}

// GetPayload 读取第 index 帧的载荷
func (d *Device) GetPayload(ctx context.Context, index int) (*uci.Outcome, error) {
	if index < 0 || index > 0xFF {
		return nil, fmt.Errorf("%w: payload index %d", ErrInvalidSequence, index)
	}
	return d.exchange(ctx, uci.OIDSnifferGetPayload, []byte{byte(index)}, d.timeouts.Config)
}

// WaitReset 等待硬复位后的复位状态上报，期望状态为 REBOOT
func (d *Device) WaitReset(ctx context.Context) (*uci.Outcome, error) {
	out, err := d.layer.WaitResponse(ctx, d.timeouts.Config)
	if err != nil {
		return out, fmt.Errorf("wait reset: %w", err)
	}
	if out.Status != uci.StatusReboot {
		d.logger.Warn("unexpected reset status", zap.Stringer("status", out.Status))
	}
	return out, nil
}

// HardReset 通过复位线重启设备并等待复位上报
func (d *Device) HardReset(ctx context.Context) (*uci.Outcome, error) {
	r, ok := d.layer.Port().(transport.Resetter)
	if !ok {
		return nil, ErrNoResetLine
	}
	if err := r.HardReset(ctx); err != nil {
		return nil, fmt.Errorf("hard reset: %w", err)
	}
	d.txContinuous = false
	return d.WaitReset(ctx)
}

// UserDefinedCommand 发送任意 GID/OID 命令，不等待回包；回包用 WaitResponse 读取
func (d *Device) UserDefinedCommand(ctx context.Context, gid uci.GID, oid uci.OID, payload []byte) error {
	return d.layer.SendCommand(ctx, gid, oid, payload)
}

// WaitResponse 等待下一帧响应或通知
func (d *Device) WaitResponse(ctx context.Context, timeout time.Duration) (*uci.Outcome, error) {
	return d.layer.WaitResponse(ctx, timeout)
}
