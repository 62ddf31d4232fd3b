package uci

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/uwb-sniffer/internal/metrics"
	"github.com/taoyao-code/uwb-sniffer/internal/transport"
)

// State 单次交互的状态
type State int

const (
	StateIdle State = iota
	StateCommandSent
	StateAwaitingReply
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCommandSent:
		return "command-sent"
	case StateAwaitingReply:
		return "awaiting-reply"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Verdict 单次等待的结局
type Verdict int

const (
	VerdictNone Verdict = iota
	VerdictMatched
	VerdictUnmatched
	VerdictTimeout
	VerdictMalformed
)

func (v Verdict) String() string {
	switch v {
	case VerdictNone:
		return "none"
	case VerdictMatched:
		return "matched"
	case VerdictUnmatched:
		return "unmatched"
	case VerdictTimeout:
		return "timeout"
	case VerdictMalformed:
		return "malformed"
	}
	return fmt.Sprintf("verdict(%d)", int(v))
}

// Outcome 一次请求/响应交互的统一结果。
// Status 总是有值；Status 非 OK 时调用方不应解读 Result 中的业务字段。
type Outcome struct {
	MessageType MessageType
	GID         GID
	OID         OID
	Status      Status
	Result      Result
}

func (o *Outcome) String() string {
	return fmt.Sprintf("message type: %s\ngid: 0x%02x\noid: 0x%02x\nstatus: %s (0x%02x)\npayload: %v",
		o.MessageType, uint8(o.GID), uint8(o.OID), o.Status, uint8(o.Status), o.Result)
}

// failedOutcome 超时/传输失败的统一结果
func failedOutcome() *Outcome {
	return &Outcome{MessageType: MessageTypeUndefined, Status: StatusFailed, Result: RawPayload(nil)}
}

// Layer UCI 分发层：持有传输与响应/通知两张路由表，一个实例对应一个设备会话。
// 只支持单线程使用：同一时刻只有一条命令在等待回复。
type Layer struct {
	port     transport.Transport
	rsp      *Table
	ntf      *Table
	logger   *zap.Logger
	metrics  *metrics.AppMetrics
	checksum ChecksumFunc
	useCRC   bool

	state       State
	lastVerdict Verdict
}

// Option Layer 可选配置
type Option func(*Layer)

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(layer *Layer) {
		if l != nil {
			layer.logger = l
		}
	}
}

// WithMetrics 设置业务指标
func WithMetrics(m *metrics.AppMetrics) Option {
	return func(layer *Layer) { layer.metrics = m }
}

// WithChecksum 启用帧尾校验；sum 为 nil 时使用 CRC16
func WithChecksum(sum ChecksumFunc) Option {
	return func(layer *Layer) {
		layer.useCRC = true
		layer.checksum = sum
	}
}

// NewLayer 创建分发层
func NewLayer(port transport.Transport, opts ...Option) *Layer {
	l := &Layer{
		port:   port,
		rsp:    NewTable(),
		ntf:    NewTable(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RegisterResponseHandler 注册响应解码器（覆盖已有注册）
func (l *Layer) RegisterResponseHandler(gid GID, oid OID, h Handler) {
	l.rsp.Register(gid, oid, h)
}

// RegisterNotificationHandler 注册通知解码器（覆盖已有注册）
func (l *Layer) RegisterNotificationHandler(gid GID, oid OID, h Handler) {
	l.ntf.Register(gid, oid, h)
}

// State 当前交互状态
func (l *Layer) State() State { return l.state }

// LastVerdict 最近一次等待的结局
func (l *Layer) LastVerdict() Verdict { return l.lastVerdict }

// Port 返回底层传输
func (l *Layer) Port() transport.Transport { return l.port }

// Send 编码并发送消息
func (l *Layer) Send(ctx context.Context, m *Message) error {
	var (
		frame []byte
		err   error
	)
	if l.useCRC {
		frame, err = m.EncodeWithChecksum(l.checksum)
	} else {
		frame, err = m.Encode()
	}
	if err != nil {
		return fmt.Errorf("encode gid=0x%X oid=0x%X: %w", uint8(m.GID), uint8(m.OID), err)
	}
	if err := l.port.Transmit(ctx, frame); err != nil {
		l.logger.Error("uci transmit failed",
			zap.Uint8("gid", uint8(m.GID)), zap.Uint8("oid", uint8(m.OID)), zap.Error(err))
		return fmt.Errorf("transmit: %w", err)
	}
	l.state = StateCommandSent
	if l.metrics != nil {
		l.metrics.UCIFramesTotal.WithLabelValues("tx").Inc()
		l.metrics.UCIBytesTotal.WithLabelValues("tx").Add(float64(len(frame)))
	}
	l.logger.Debug("uci command sent",
		zap.Uint8("gid", uint8(m.GID)), zap.Uint8("oid", uint8(m.OID)),
		zap.Int("payload_len", len(m.Payload)))
	return nil
}

// SendCommand 构造命令并发送
func (l *Layer) SendCommand(ctx context.Context, gid GID, oid OID, payload []byte) error {
	return l.Send(ctx, NewCommand(gid, oid, payload))
}

// Exchange 发送命令并等待回复
func (l *Layer) Exchange(ctx context.Context, gid GID, oid OID, payload []byte, timeout time.Duration) (*Outcome, error) {
	if err := l.SendCommand(ctx, gid, oid, payload); err != nil {
		return failedOutcome(), err
	}
	return l.WaitResponse(ctx, timeout)
}

// WaitResponse 阻塞等待一帧响应或通知，并按 GID/OID 分发到解码器。
//   - 超时/传输错误：返回 Status=Failed 的结果，error 为 nil
//   - 未注册的 GID/OID：Status=NotImplemented，附带原始字节
//   - 未知消息类型：Status=Unknown
//   - 帧格式错误/未知状态码：返回 error（Outcome 仍为 Failed）
//   - ctx 取消：返回 ctx.Err()；已发出的命令不会被撤回
func (l *Layer) WaitResponse(ctx context.Context, timeout time.Duration) (*Outcome, error) {
	l.state = StateAwaitingReply
	defer func() { l.state = StateIdle }()

	start := time.Now()
	msg, err := l.receiveMessage(ctx, timeout)
	if l.metrics != nil {
		l.metrics.UCIWaitSeconds.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return l.classifyReceiveError(ctx, err)
	}
	out, matched, err := l.dispatch(msg)
	if err != nil {
		return l.classifyReceiveError(ctx, err)
	}
	if matched {
		l.lastVerdict = VerdictMatched
	} else {
		l.lastVerdict = VerdictUnmatched
	}
	if l.metrics != nil {
		l.metrics.UCIDispatchTotal.WithLabelValues(out.MessageType.String(),
			fmt.Sprintf("%02X", uint8(out.GID)), fmt.Sprintf("%02X", uint8(out.OID)), out.Status.String()).Inc()
	}
	return out, nil
}

func (l *Layer) classifyReceiveError(ctx context.Context, err error) (*Outcome, error) {
	switch {
	case errors.Is(err, transport.ErrTimeout):
		l.lastVerdict = VerdictTimeout
		if l.metrics != nil {
			l.metrics.UCITimeoutTotal.Inc()
		}
		l.logger.Warn("uci wait response timed out")
		return failedOutcome(), nil
	case errors.Is(err, ErrFormat), errors.Is(err, ErrUnknownEnum):
		l.lastVerdict = VerdictMalformed
		kind := "format"
		if errors.Is(err, ErrUnknownEnum) {
			kind = "enum"
		}
		if l.metrics != nil {
			l.metrics.UCIDecodeErrorTotal.WithLabelValues(kind).Inc()
		}
		l.logger.Error("uci invalid message received", zap.Error(err))
		return failedOutcome(), err
	case ctx.Err() != nil:
		l.lastVerdict = VerdictTimeout
		return failedOutcome(), ctx.Err()
	default:
		l.lastVerdict = VerdictTimeout
		if l.metrics != nil {
			l.metrics.UCIDecodeErrorTotal.WithLabelValues("transport").Inc()
		}
		l.logger.Error("uci wait response failed", zap.Error(err))
		return failedOutcome(), nil
	}
}

// receiveMessage 读取并解码一条完整消息；PBF 分片会在同一超时内拼接
func (l *Layer) receiveMessage(ctx context.Context, timeout time.Duration) (*Message, error) {
	deadline := time.Now().Add(timeout)
	var (
		whole    *Message
		priorPBF bool
	)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, transport.ErrTimeout
		}
		raw, err := l.port.Receive(ctx, remaining)
		if err != nil {
			return nil, err
		}
		if l.metrics != nil {
			l.metrics.UCIFramesTotal.WithLabelValues("rx").Inc()
			l.metrics.UCIBytesTotal.WithLabelValues("rx").Add(float64(len(raw)))
		}
		if l.useCRC {
			if raw, err = StripChecksum(raw, l.checksum); err != nil {
				return nil, err
			}
		}
		frag, err := Decode(raw, priorPBF)
		if err != nil {
			return nil, err
		}
		if whole == nil {
			whole = frag
		} else if whole, err = joinFragments(whole, frag); err != nil {
			return nil, err
		}
		if !frag.PBF {
			return whole, nil
		}
		priorPBF = true
	}
}

// joinFragments 合并续片：沿用首片的头部，PBF 清零，长度取合并后的实际值。
// 合并后超出 16 位长度字段的上限时返回 ErrPayloadTooLong
func joinFragments(head, next *Message) (*Message, error) {
	total := len(head.Payload) + len(next.Payload)
	if total > maxExtPayload {
		return nil, fmt.Errorf("%w: reassembled %d bytes", ErrPayloadTooLong, total)
	}
	payload := make([]byte, 0, len(head.Payload)+len(next.Payload))
	payload = append(payload, head.Payload...)
	payload = append(payload, next.Payload...)
	out := *head
	out.PBF = false
	out.Payload = payload
	out.PayloadLength = uint16(len(payload))
	out.PayloadExtension = len(payload) > maxShortPayload
	return &out, nil
}

func (l *Layer) dispatch(msg *Message) (*Outcome, bool, error) {
	var table *Table
	switch msg.MessageType {
	case MessageTypeResponse:
		table = l.rsp
	case MessageTypeNotification:
		table = l.ntf
	default:
		l.logger.Error("uci unknown message type",
			zap.Uint8("mt", msg.WireType()),
			zap.Uint8("gid", uint8(msg.GID)), zap.Uint8("oid", uint8(msg.OID)))
		return &Outcome{MessageType: msg.MessageType, GID: msg.GID, OID: msg.OID, Status: StatusUnknown}, false, nil
	}

	h, ok := table.Lookup(msg.GID, msg.OID)
	if !ok {
		l.logger.Info("uci message has no handler",
			zap.Stringer("mt", msg.MessageType),
			zap.String("gid", fmt.Sprintf("0x%X", uint8(msg.GID))),
			zap.String("oid", fmt.Sprintf("0x%X", uint8(msg.OID))),
			zap.Uint16("payload_len", msg.PayloadLength))
		return &Outcome{
			MessageType: msg.MessageType,
			GID:         msg.GID,
			OID:         msg.OID,
			Status:      StatusNotImplemented,
			Result:      RawPayload(msg.Body()),
		}, false, nil
	}
	status, result, err := h(msg)
	if err != nil {
		return nil, true, fmt.Errorf("decode gid=0x%X oid=0x%X: %w", uint8(msg.GID), uint8(msg.OID), err)
	}
	return &Outcome{MessageType: msg.MessageType, GID: msg.GID, OID: msg.OID, Status: status, Result: result}, true, nil
}
