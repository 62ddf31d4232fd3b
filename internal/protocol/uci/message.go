package uci

import (
	"fmt"
	"strings"
)

const (
	// HeaderSize 固定头长度：byte0(MT|PBF|GID) byte1(EXT|OID) byte2(len高位) byte3(len低位)
	HeaderSize = 4

	maxGID          = 0x0F
	maxOID          = 0x3F
	maxShortPayload = 0xFF
	maxExtPayload   = 0xFFFF
)

// Message UCI 线上消息单元（构造后不再修改）
// 布局：
//
//	byte0 = MT<<5 | PBF<<4 | GID
//	byte1 = EXT<<7 | OID
//	byte2 = len高8位（仅 EXT=1 时有效，否则为0）
//	byte3 = len低8位
//	[byte4 = status]（仅响应）
//	payload...
type Message struct {
	MessageType      MessageType
	PBF              bool // 后续还有分片
	GID              GID
	PayloadExtension bool
	OID              OID
	PayloadLength    uint16
	HasStatus        bool
	Status           Status
	Payload          []byte

	wireType uint8 // 线上 MT 原始值，MessageType 为 Undefined 时用于诊断
}

// NewCommand 构造待发送的命令消息，payload 超过 255 字节时自动启用扩展长度
func NewCommand(gid GID, oid OID, payload []byte) *Message {
	return newMessage(MessageTypeCommand, gid, oid, payload)
}

// NewNotification 构造通知消息（主要用于模拟设备与测试）
func NewNotification(gid GID, oid OID, payload []byte) *Message {
	return newMessage(MessageTypeNotification, gid, oid, payload)
}

// NewResponse 构造带状态字节的响应消息（主要用于模拟设备与测试）
func NewResponse(gid GID, oid OID, status Status, payload []byte) *Message {
	m := newMessage(MessageTypeResponse, gid, oid, payload)
	m.HasStatus = true
	m.Status = status
	return m
}

func newMessage(mt MessageType, gid GID, oid OID, payload []byte) *Message {
	p := make([]byte, len(payload))
	copy(p, payload)
	return &Message{
		MessageType:      mt,
		GID:              gid,
		PayloadExtension: len(p) > maxShortPayload,
		OID:              oid,
		PayloadLength:    uint16(len(p)),
		Payload:          p,
		wireType:         uint8(mt),
	}
}

// WireType 返回线上 MT 字段原始值
func (m *Message) WireType() uint8 { return m.wireType }

// Body 返回头部之后的原始字节：响应消息包含状态字节，其余为 payload 本身。
// 各响应解码器按此视图的偏移量取字段（状态位于 offset 0）。
func (m *Message) Body() []byte {
	if !m.HasStatus {
		return m.Payload
	}
	b := make([]byte, 0, len(m.Payload)+1)
	b = append(b, byte(m.Status))
	return append(b, m.Payload...)
}

// Encode 编码为线上字节（不含校验）
// 状态字节只要 HasStatus 为真即写入，与解码侧的判断条件不对称，这是协议既有约定。
func (m *Message) Encode() ([]byte, error) {
	if m.GID > maxGID || m.OID > maxOID {
		return nil, fmt.Errorf("%w: gid=0x%X oid=0x%X", ErrFieldRange, uint8(m.GID), uint8(m.OID))
	}
	switch m.MessageType {
	case MessageTypeCommand, MessageTypeResponse, MessageTypeNotification:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, uint8(m.MessageType))
	}
	if int(m.PayloadLength) != len(m.Payload) {
		return nil, fmt.Errorf("%w: declared=%d actual=%d", ErrLengthMismatch, m.PayloadLength, len(m.Payload))
	}
	if !m.PayloadExtension && len(m.Payload) > maxShortPayload {
		return nil, fmt.Errorf("%w: %d bytes without extension", ErrPayloadTooLong, len(m.Payload))
	}

	size := HeaderSize + len(m.Payload)
	if m.HasStatus {
		size++
	}
	buf := make([]byte, 0, size)
	buf = append(buf, uint8(m.MessageType)<<5|boolBit(m.PBF)<<4|uint8(m.GID))
	buf = append(buf, boolBit(m.PayloadExtension)<<7|uint8(m.OID))
	if m.PayloadExtension {
		buf = append(buf, byte(m.PayloadLength>>8))
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, byte(m.PayloadLength))
	if m.HasStatus {
		buf = append(buf, byte(m.Status))
	}
	buf = append(buf, m.Payload...)
	return buf, nil
}

// EncodeWithChecksum 编码并追加 2 字节小端校验
func (m *Message) EncodeWithChecksum(sum ChecksumFunc) ([]byte, error) {
	buf, err := m.Encode()
	if err != nil {
		return nil, err
	}
	return AppendChecksum(buf, sum), nil
}

// Decode 解析一帧（调用方已剥离末尾校验）。
// priorPBF 表示上一帧带有分片标志，本帧为续片：续片即使是响应也没有状态字节。
// MT 越界时不会中止，而是返回 MessageType=Undefined 的消息，由调用方记录错误。
func Decode(raw []byte, priorPBF bool) (*Message, error) {
	if len(raw) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(raw))
	}
	wt := (raw[0] & 0xE0) >> 5
	mt := MessageType(wt)
	switch mt {
	case MessageTypeCommand, MessageTypeResponse, MessageTypeNotification:
	default:
		mt = MessageTypeUndefined
	}
	m := &Message{
		MessageType:      mt,
		PBF:              raw[0]&0x10 != 0,
		GID:              GID(raw[0] & 0x0F),
		PayloadExtension: raw[1]&0x80 != 0,
		OID:              OID(raw[1] & 0x3F),
		PayloadLength:    uint16(raw[2])<<8 | uint16(raw[3]),
		wireType:         wt,
	}

	body := raw[HeaderSize:]
	declared := int(m.PayloadLength)
	if mt == MessageTypeResponse && !priorPBF {
		if len(body) < 1 {
			return nil, ErrMissingStatus
		}
		// 设备侧的长度字段可能包含状态字节，也可能不包含
		if len(body) != declared && len(body) != declared+1 {
			return nil, fmt.Errorf("%w: declared=%d actual=%d", ErrLengthMismatch, declared, len(body))
		}
		st, err := ParseStatus(body[0])
		if err != nil {
			return nil, err
		}
		m.HasStatus = true
		m.Status = st
		body = body[1:]
	} else if len(body) != declared {
		return nil, fmt.Errorf("%w: declared=%d actual=%d", ErrLengthMismatch, declared, len(body))
	}
	m.Payload = make([]byte, len(body))
	copy(m.Payload, body)
	return m, nil
}

func (m *Message) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "message type: %s (0x%02x)\n", m.MessageType, m.wireType)
	fmt.Fprintf(&sb, "packet boundary flag: %d\n", boolBit(m.PBF))
	fmt.Fprintf(&sb, "gid: 0x%02x\n", uint8(m.GID))
	fmt.Fprintf(&sb, "payload extension: %d\n", boolBit(m.PayloadExtension))
	fmt.Fprintf(&sb, "oid: 0x%02x\n", uint8(m.OID))
	fmt.Fprintf(&sb, "payload length: %d bytes (0x%02x)\n", m.PayloadLength, m.PayloadLength)
	if m.HasStatus {
		fmt.Fprintf(&sb, "status: %s\n", m.Status)
	}
	fmt.Fprintf(&sb, "payload: %s", HexBytes(m.Payload))
	return sb.String()
}

// HexBytes 以 "0x11, 0x22" 形式格式化字节序列
func HexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("0x%02x", v)
	}
	return strings.Join(parts, ", ")
}

func boolBit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
