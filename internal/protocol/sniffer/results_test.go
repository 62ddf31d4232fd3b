package sniffer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/uwb-sniffer/internal/protocol/uci"
)

func rxBody(status byte, rxStatus uint16, rssi int32, payload []byte) []byte {
	b := make([]byte, 33)
	b[0] = status
	binary.LittleEndian.PutUint16(b[4:], rxStatus)
	b[6], b[7] = 3, 1
	for _, off := range []int{8, 16, 20, 28} {
		binary.LittleEndian.PutUint32(b[off:], uint32(rssi))
	}
	b[32] = byte(len(payload))
	return append(b, payload...)
}

func TestRSSIToDbm(t *testing.T) {
	assert.InDelta(t, 10*math.Log10(2), RSSIToDbm(1<<25), 1e-12)
	assert.InDelta(t, 3.0103, RSSIToDbm(1<<25), 1e-4)
	assert.Equal(t, 0.0, RSSIToDbm(0))
	assert.InDelta(t, -10*math.Log10(2), RSSIToDbm(-(1 << 25)), 1e-12)
}

func TestDecodeRxResult(t *testing.T) {
	body := rxBody(0x00, 0x0000, 1<<25, []byte{0xAA, 0xBB})
	r, err := DecodeRxResult(body)
	require.NoError(t, err)
	assert.True(t, r.OK())
	require.NotNil(t, r.RxStatus)
	assert.Equal(t, uint16(0), *r.RxStatus)
	assert.Equal(t, uint8(3), *r.FrameNum)
	assert.Equal(t, uint8(1), *r.ErrNum)
	assert.InDelta(t, 3.0103, *r.MinOverallRSSI, 1e-4)
	assert.InDelta(t, 3.0103, *r.MaxNoiseRSSI, 1e-4)
	assert.Equal(t, uint8(2), *r.PayloadLen)
	assert.Equal(t, []byte{0xAA, 0xBB}, r.Payload)

	s := r.String()
	assert.Contains(t, s, "status: UCI_STATUS_OK")
	assert.Contains(t, s, "rx_status: SUCCESS")
	assert.Contains(t, s, "min_overall_rssi: 3.01 dBm")
	assert.Contains(t, s, "payload: 0xaa, 0xbb")
}

func TestDecodeRxResult_NoPayload(t *testing.T) {
	r, err := DecodeRxResult(rxBody(0x00, 0x0006, 0, nil))
	require.NoError(t, err)
	assert.Nil(t, r.Payload)
	assert.Contains(t, r.String(), "rx_status: RX_SIGNAL_LOST| RX_PRMBL_TIMEOUT")
	assert.Contains(t, r.String(), "payload: None")
}

func TestDecodeRxResult_Short(t *testing.T) {
	_, err := DecodeRxResult([]byte{0x00, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrShortResult)
	assert.ErrorIs(t, err, uci.ErrFormat)

	body := rxBody(0x00, 0, 0, []byte{1, 2, 3})
	_, err = DecodeRxResult(body[:len(body)-1])
	assert.ErrorIs(t, err, ErrShortResult)
}

// 状态非 OK 时所有业务字段为空，与尾部字节无关
func TestDecoders_AbortOnErrorStatus(t *testing.T) {
	trailing := append([]byte{byte(uci.StatusRejected), 0, 0, 0}, make([]byte, 40)...)
	for i := 4; i < len(trailing); i++ {
		trailing[i] = 0x5A
	}

	rx, err := DecodeRxResult(trailing)
	require.NoError(t, err)
	assert.Equal(t, uci.StatusRejected, rx.Status)
	assert.Nil(t, rx.RxStatus)
	assert.Nil(t, rx.FrameNum)
	assert.Nil(t, rx.ErrNum)
	assert.Nil(t, rx.MinOverallRSSI)
	assert.Nil(t, rx.MaxOverallRSSI)
	assert.Nil(t, rx.MinNoiseRSSI)
	assert.Nil(t, rx.MaxNoiseRSSI)
	assert.Nil(t, rx.PayloadLen)
	assert.Nil(t, rx.Payload)

	tx, err := DecodeTxResult(trailing)
	require.NoError(t, err)
	assert.Nil(t, tx.TxStatus)

	rs, err := DecodeRangingStatus(trailing)
	require.NoError(t, err)
	assert.Nil(t, rs.RxStatusList)

	rr, err := DecodeRangingResult(trailing)
	require.NoError(t, err)
	assert.Nil(t, rr.TimestampDiffs)

	pr, err := DecodePayload(trailing)
	require.NoError(t, err)
	assert.Nil(t, pr.Payload)
	assert.Equal(t, " PAYLOAD_RESULT:\n          status: UCI_STATUS_REJECTED\n", pr.String())
}

func TestDecodeTxResult(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want string
		raw  *uint16
	}{
		{name: "成功", body: []byte{0, 0, 0, 0, 0x00, 0x00}, want: "tx_status: TX_SUCCESS", raw: u16(0x0000)},
		{name: "失败", body: []byte{0, 0, 0, 0, 0x00, 0x80}, want: "tx_status: TX_ERROR", raw: u16(0x8000)},
		{name: "未知值打印None", body: []byte{0, 0, 0, 0, 0x01, 0x00}, want: "tx_status: None", raw: u16(0x0001)},
		{name: "无状态字段", body: []byte{0, 0, 0, 0}, want: "tx_status: None"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := DecodeTxResult(tt.body)
			require.NoError(t, err)
			assert.Contains(t, r.String(), tt.want)
			assert.Equal(t, tt.raw, r.TxStatus)
		})
	}
}

func u16(v uint16) *uint16 { return &v }

func TestDecodeRangingStatus(t *testing.T) {
	body := []byte{0, 0, 0, 0, 0x00, 0x00, 0x08, 0x00, 0x01, 0x01, 0xFF}
	r, err := DecodeRangingStatus(body)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x0000, 0x0008, 0x0101}, r.RxStatusList)
	assert.Contains(t, r.String(), "SUCCESS\t\tRX_SFD_TIMEOUT\t\tRX_TOA_DETECT_FAILED| RX_STS_MISMATCH\t\t")
}

func TestDecodeRangingResult_Count(t *testing.T) {
	for k := 0; k <= 5; k++ {
		body := make([]byte, 4+4*(k+1))
		for i := 0; i < k+1; i++ {
			binary.LittleEndian.PutUint32(body[4+4*i:], uint32(100*(i+1)))
		}
		r, err := DecodeRangingResult(body)
		require.NoError(t, err)
		assert.Len(t, r.TimestampDiffs, k, "k=%d", k)
		if k > 0 {
			assert.Equal(t, uint32(100), r.TimestampDiffs[0])
		}
	}
	r, err := DecodeRangingResult([]byte{0x00})
	require.NoError(t, err)
	assert.Empty(t, r.TimestampDiffs)
}

func TestDecodePayload(t *testing.T) {
	r, err := DecodePayload([]byte{0, 0, 0, 0, 0x41, 0x88})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41, 0x88}, r.Payload)
	assert.Contains(t, r.String(), "payload: 0x41, 0x88")

	_, err = DecodePayload(nil)
	assert.ErrorIs(t, err, ErrShortResult)
}

func TestDecodeStatusResult(t *testing.T) {
	r, err := DecodeStatusResult("SNIFFER_RESET_STATUS_NTF", []byte{0x80})
	require.NoError(t, err)
	assert.Equal(t, uci.StatusReboot, r.Status)
	assert.Equal(t, " SNIFFER_RESET_STATUS_NTF:\n          status: UCI_STATUS_REBOOT\n", r.String())

	_, err = DecodeStatusResult("X", []byte{0x55})
	assert.ErrorIs(t, err, uci.ErrUnknownStatus)
}

func TestTRXBitmapString(t *testing.T) {
	tests := []struct {
		name   string
		bitmap uint16
		want   string
	}{
		{name: "成功", bitmap: 0, want: "SUCCESS"},
		{name: "单一原因", bitmap: 0x0001, want: "RX_TOA_DETECT_FAILED"},
		{name: "多原因按位序", bitmap: 0x0180, want: "RX_DATA_BUFFER_OVERFLOW| RX_STS_MISMATCH"},
		{name: "发射错误", bitmap: 0x0800, want: "TX_ERROR"},
		{name: "载荷长度错误高位", bitmap: 0x8000, want: "TX_PAYLOAD_LENGTH_ERROR"},
		{name: "载荷长度错误低位", bitmap: 0x2000, want: "TX_PAYLOAD_LENGTH_ERROR"},
		{name: "全部解码失败", bitmap: 0x0070, want: "RX_SECDED_DECODE_FAILURE| RX_RS_DECODE_FAILURE| RX_DECODE_CHAIN_FAILURE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TRXBitmapString(tt.bitmap))
		})
	}
}
