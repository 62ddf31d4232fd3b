package uci

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_CommandHeader(t *testing.T) {
	m := NewCommand(GIDSniffer, OIDSnifferCfgRxMode, []byte{0x04, 0x01})
	raw, err := m.Encode()
	require.NoError(t, err)
	// MT=1 -> 0x20, GID=0x0E
	assert.Equal(t, []byte{0x2E, 0x1A, 0x00, 0x02, 0x04, 0x01}, raw)
}

func TestEncode_ExtendedLength(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 300)
	m := NewCommand(GIDSniffer, OIDSnifferCfgRangingSeq, payload)
	require.True(t, m.PayloadExtension)
	raw, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, byte(0x80|0x2D), raw[1])
	assert.Equal(t, byte(0x01), raw[2])
	assert.Equal(t, byte(0x2C), raw[3])
	assert.Len(t, raw, HeaderSize+300)
}

func TestEncode_ShortLengthWritesZeroHighByte(t *testing.T) {
	m := &Message{MessageType: MessageTypeCommand, GID: GIDSniffer, OID: OIDSnifferStartRxMode,
		PayloadLength: 1, Payload: []byte{0x01}}
	raw, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), raw[2])
}

func TestEncode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
	}{
		{name: "GID越界", msg: &Message{MessageType: MessageTypeCommand, GID: 0x10}},
		{name: "OID越界", msg: &Message{MessageType: MessageTypeCommand, OID: 0x40}},
		{name: "未定义类型", msg: &Message{MessageType: MessageTypeUndefined}},
		{name: "长度不一致", msg: &Message{MessageType: MessageTypeCommand, PayloadLength: 3, Payload: []byte{1}}},
		{name: "未扩展却超过255", msg: &Message{MessageType: MessageTypeCommand, PayloadLength: 256, Payload: make([]byte, 256)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.msg.Encode()
			assert.Error(t, err)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
	}{
		{name: "命令", msg: NewCommand(GIDSniffer, OIDSnifferCfgRangingApp, []byte{1, 2, 3})},
		{name: "空命令", msg: NewCommand(GIDSniffer, OIDSnifferStartRanging, nil)},
		{name: "通知", msg: NewNotification(GIDSniffer, OIDSnifferResetStatusNtf, []byte{0x80})},
		{name: "响应带状态", msg: NewResponse(GIDSniffer, OIDSnifferGetPayload, StatusOK, []byte{0, 0, 0, 9, 8})},
		{name: "扩展长度响应", msg: NewResponse(GIDSniffer, OIDSnifferGetRangingResult, StatusFailed, bytes.Repeat([]byte{7}, 400))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.msg.Encode()
			require.NoError(t, err)
			got, err := Decode(raw, false)
			require.NoError(t, err)
			assert.Equal(t, tt.msg.MessageType, got.MessageType)
			assert.Equal(t, tt.msg.GID, got.GID)
			assert.Equal(t, tt.msg.OID, got.OID)
			assert.Equal(t, tt.msg.PayloadLength, got.PayloadLength)
			assert.Equal(t, tt.msg.Payload, got.Payload)
			assert.Equal(t, tt.msg.HasStatus, got.HasStatus)
			if tt.msg.HasStatus {
				assert.Equal(t, tt.msg.Status, got.Status)
			}
		})
	}
}

func TestDecode_DeviceResponseLengthIncludesStatus(t *testing.T) {
	// 设备上报：长度字段包含状态字节
	raw := []byte{0x4E, 0x19, 0x00, 0x06, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80}
	m, err := Decode(raw, false)
	require.NoError(t, err)
	assert.True(t, m.HasStatus)
	assert.Equal(t, StatusOK, m.Status)
	assert.Equal(t, uint16(6), m.PayloadLength)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x80}, m.Payload)
	assert.Equal(t, raw[HeaderSize:], m.Body())
}

func TestDecode_PriorPBFSkipsStatus(t *testing.T) {
	raw := []byte{0x4E, 0x27, 0x00, 0x02, 0xAA, 0xBB}
	m, err := Decode(raw, true)
	require.NoError(t, err)
	assert.False(t, m.HasStatus)
	assert.Equal(t, []byte{0xAA, 0xBB}, m.Payload)
}

func TestDecode_NotificationHasNoStatus(t *testing.T) {
	m, err := Decode([]byte{0x6E, 0x00, 0x00, 0x01, 0x80}, false)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeNotification, m.MessageType)
	assert.False(t, m.HasStatus)
	assert.Equal(t, []byte{0x80}, m.Payload)
}

func TestDecode_HeaderBits(t *testing.T) {
	m, err := Decode([]byte{0x7E, 0xBF, 0x00, 0x00}, false)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeNotification, m.MessageType)
	assert.True(t, m.PBF)
	assert.Equal(t, GID(0x0E), m.GID)
	assert.True(t, m.PayloadExtension)
	assert.Equal(t, OID(0x3F), m.OID)
}

func TestDecode_UnknownMessageTypeIsUndefined(t *testing.T) {
	m, err := Decode([]byte{0xAE, 0x00, 0x00, 0x00}, false)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeUndefined, m.MessageType)
	assert.Equal(t, uint8(5), m.WireType())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{name: "不足4字节", raw: []byte{0x4E, 0x00, 0x00}, want: ErrShortFrame},
		{name: "响应缺状态", raw: []byte{0x4E, 0x28, 0x00, 0x00}, want: ErrMissingStatus},
		{name: "声明长度过长", raw: []byte{0x2E, 0x28, 0x00, 0x05, 0x01}, want: ErrLengthMismatch},
		{name: "声明长度过短", raw: []byte{0x6E, 0x00, 0x00, 0x01, 0x80, 0x81}, want: ErrLengthMismatch},
		{name: "响应长度不符", raw: []byte{0x4E, 0x28, 0x00, 0x09, 0x00, 0x01}, want: ErrLengthMismatch},
		{name: "未知状态码", raw: []byte{0x4E, 0x28, 0x00, 0x01, 0x55}, want: ErrUnknownStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw, false)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	_, err := Decode([]byte{0x4E, 0x28, 0x00, 0x01, 0x55}, false)
	assert.ErrorIs(t, err, ErrUnknownEnum)
	_, err = Decode([]byte{0x4E}, false)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestParseStatus(t *testing.T) {
	for _, b := range []byte{0x00, 0x0C, 0x11, 0x1C, 0x20, 0x27, 0x7D, 0x80, 0x81, 0xA0, 0xA4, 0xE1, 0xF8, 0xFE, 0xFF} {
		s, err := ParseStatus(b)
		require.NoError(t, err, "0x%02X", b)
		assert.Equal(t, Status(b), s)
	}
	for _, b := range []byte{0x0D, 0x10, 0x1D, 0x28, 0x7C, 0x82, 0xA5, 0xE0} {
		_, err := ParseStatus(b)
		assert.ErrorIs(t, err, ErrUnknownStatus, "0x%02X", b)
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "UCI_STATUS_NOT_IMPLEMENTED", StatusNotImplemented.String())
	assert.Equal(t, "UCI_STATUS(0x55)", Status(0x55).String())
	assert.Equal(t, "SNIFFER_GET_RANGING_RESULT", SnifferOIDName(OIDSnifferGetRangingResult))
	assert.Equal(t, "OID(0x3E)", SnifferOIDName(0x3E))
	assert.True(t, IsSnifferOID(OIDSnifferGetFirstPathInfo))
	assert.Equal(t, "RESPONSE", MessageTypeResponse.String())
}

func TestMessageString(t *testing.T) {
	s := NewResponse(GIDSniffer, OIDSnifferCfgRxMode, StatusOK, []byte{0x01, 0xFF}).String()
	assert.Contains(t, s, "gid: 0x0e")
	assert.Contains(t, s, "status: UCI_STATUS_OK")
	assert.Contains(t, s, "payload: 0x01, 0xff")
}
