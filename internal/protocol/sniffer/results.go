package sniffer

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/taoyao-code/uwb-sniffer/internal/protocol/uci"
)

// 响应体布局：byte0 为状态，byte1~3 保留，业务字段从 offset 4 开始。
// 状态非 OK 时所有业务字段为空，调用方不应读取。
const resultHeader = 4

// ErrShortResult 状态为 OK 但响应体不足以解码
var ErrShortResult = fmt.Errorf("%w: sniffer result too short", uci.ErrFormat)

// RSSI 定点数换算系数：value * 10*log10(2) / 2^25
var rssiScale = 10 * math.Log10(2) / (1 << 25)

// RSSIToDbm 32 位定点 RSSI 转 dBm
func RSSIToDbm(raw int32) float64 {
	return float64(raw) * rssiScale
}

// bodyStatus 取响应体首字节作为状态
func bodyStatus(body []byte) (uci.Status, error) {
	if len(body) == 0 {
		return uci.StatusFailed, fmt.Errorf("%w: empty body", ErrShortResult)
	}
	return uci.ParseStatus(body[0])
}

func resultHead(title string, status uci.Status) string {
	return fmt.Sprintf(" %s:\n          status: %s\n", title, status)
}

// StatusResult 仅含状态的应答（配置类命令与复位通知）
type StatusResult struct {
	Name   string
	Status uci.Status
}

func (r *StatusResult) String() string { return resultHead(r.Name, r.Status) }

// DecodeStatusResult 解码仅含状态的应答
func DecodeStatusResult(name string, body []byte) (*StatusResult, error) {
	st, err := bodyStatus(body)
	if err != nil {
		return nil, err
	}
	return &StatusResult{Name: name, Status: st}, nil
}

// RxResult RX 模式单次接收结果 (OID 0x1B)
type RxResult struct {
	Status         uci.Status
	RxStatus       *uint16
	FrameNum       *uint8
	ErrNum         *uint8
	MinOverallRSSI *float64
	MaxOverallRSSI *float64
	MinNoiseRSSI   *float64
	MaxNoiseRSSI   *float64
	PayloadLen     *uint8
	Payload        []byte
}

const rxResultMinSize = 33

// DecodeRxResult 字段偏移：rx_status[4:6] frame_num[6] err_num[7]
// min_overall[8:12] max_overall[16:20] min_noise[20:24] max_noise[28:32] payload_len[32] payload[33:]
func DecodeRxResult(body []byte) (*RxResult, error) {
	st, err := bodyStatus(body)
	if err != nil {
		return nil, err
	}
	r := &RxResult{Status: st}
	if st != uci.StatusOK {
		return r, nil
	}
	if len(body) < rxResultMinSize {
		return nil, fmt.Errorf("%w: rx result %d bytes", ErrShortResult, len(body))
	}
	n := int(body[32])
	if len(body) < rxResultMinSize+n {
		return nil, fmt.Errorf("%w: rx payload_len=%d but %d bytes left", ErrShortResult, n, len(body)-rxResultMinSize)
	}
	rxStatus := binary.LittleEndian.Uint16(body[4:6])
	frameNum, errNum, payloadLen := body[6], body[7], body[32]
	r.RxStatus = &rxStatus
	r.FrameNum = &frameNum
	r.ErrNum = &errNum
	r.MinOverallRSSI = rssiAt(body, 8)
	r.MaxOverallRSSI = rssiAt(body, 16)
	r.MinNoiseRSSI = rssiAt(body, 20)
	r.MaxNoiseRSSI = rssiAt(body, 28)
	r.PayloadLen = &payloadLen
	if n > 0 {
		r.Payload = make([]byte, n)
		copy(r.Payload, body[rxResultMinSize:rxResultMinSize+n])
	}
	return r, nil
}

func rssiAt(body []byte, off int) *float64 {
	v := RSSIToDbm(int32(binary.LittleEndian.Uint32(body[off : off+4])))
	return &v
}

// OK 是否成功收到帧
func (r *RxResult) OK() bool { return r.Status == uci.StatusOK }

func (r *RxResult) String() string {
	var sb strings.Builder
	sb.WriteString(resultHead("RX_RESULT", r.Status))
	if r.Status != uci.StatusOK || r.RxStatus == nil {
		return sb.String()
	}
	fmt.Fprintf(&sb, "       rx_status: %s\n", TRXBitmapString(*r.RxStatus))
	fmt.Fprintf(&sb, "    rx_frame_num: %d\n", *r.FrameNum)
	fmt.Fprintf(&sb, "      rx_err_num: %d\n", *r.ErrNum)
	fmt.Fprintf(&sb, "min_overall_rssi: %.2f dBm\n", *r.MinOverallRSSI)
	fmt.Fprintf(&sb, "max_overall_rssi: %.2f dBm\n", *r.MaxOverallRSSI)
	fmt.Fprintf(&sb, "  min_noise_rssi: %.2f dBm\n", *r.MinNoiseRSSI)
	fmt.Fprintf(&sb, "  max_noise_rssi: %.2f dBm\n", *r.MaxNoiseRSSI)
	fmt.Fprintf(&sb, "     payload_len: %d\n", *r.PayloadLen)
	if len(r.Payload) > 0 {
		fmt.Fprintf(&sb, "         payload: %s\n", uci.HexBytes(r.Payload))
	} else {
		sb.WriteString("         payload: None\n")
	}
	return sb.String()
}

// 发射结果取值
const (
	TxStatusSuccess uint16 = 0x0000
	TxStatusError   uint16 = 0x8000
)

// TxResult TX 模式发射结果 (OID 0x19)；载荷不足 2 字节时 TxStatus 为空
type TxResult struct {
	Status   uci.Status
	TxStatus *uint16
}

func DecodeTxResult(body []byte) (*TxResult, error) {
	st, err := bodyStatus(body)
	if err != nil {
		return nil, err
	}
	r := &TxResult{Status: st}
	if st == uci.StatusOK && len(body) >= resultHeader+2 {
		v := binary.LittleEndian.Uint16(body[4:6])
		r.TxStatus = &v
	}
	return r, nil
}

// String 未识别的 tx_status 与缺失字段一样打印 None，原始值保留在 TxStatus 中
func (r *TxResult) String() string {
	s := "None"
	if r.TxStatus != nil {
		switch *r.TxStatus {
		case TxStatusSuccess:
			s = "TX_SUCCESS"
		case TxStatusError:
			s = "TX_ERROR"
		}
	}
	return resultHead("TX_RESULT", r.Status) + fmt.Sprintf("       tx_status: %s\n", s)
}

// RangingStatusResult 测距序列每个接收窗口的状态位图 (OID 0x35)
type RangingStatusResult struct {
	Status       uci.Status
	RxStatusList []uint16
}

// DecodeRangingStatus 从 offset 4 起每 2 字节一个位图，多余的奇数字节忽略
func DecodeRangingStatus(body []byte) (*RangingStatusResult, error) {
	st, err := bodyStatus(body)
	if err != nil {
		return nil, err
	}
	r := &RangingStatusResult{Status: st}
	if st != uci.StatusOK {
		return r, nil
	}
	n := 0
	if len(body) > resultHeader {
		n = (len(body) - resultHeader) / 2
	}
	r.RxStatusList = make([]uint16, n)
	for i := 0; i < n; i++ {
		off := resultHeader + 2*i
		r.RxStatusList[i] = binary.LittleEndian.Uint16(body[off : off+2])
	}
	return r, nil
}

func (r *RangingStatusResult) String() string {
	head := resultHead("RANGING_STATUS_RESULT", r.Status)
	if r.Status != uci.StatusOK {
		return head
	}
	var sb strings.Builder
	for _, v := range r.RxStatusList {
		sb.WriteString(TRXBitmapString(v))
		sb.WriteString("\t\t")
	}
	return head + "  rx_status_list: " + sb.String()
}

// RangingResult 各帧相对首帧的时间戳差 (OID 0x36)
type RangingResult struct {
	Status         uci.Status
	TimestampDiffs []uint32
}

// DecodeRangingResult 从 offset 4 起每 4 字节一个值，最后一个字为保留字，不计入
func DecodeRangingResult(body []byte) (*RangingResult, error) {
	st, err := bodyStatus(body)
	if err != nil {
		return nil, err
	}
	r := &RangingResult{Status: st}
	if st != uci.StatusOK {
		return r, nil
	}
	n := 0
	if len(body) > resultHeader {
		n = max((len(body)-resultHeader)/4-1, 0)
	}
	r.TimestampDiffs = make([]uint32, n)
	for i := 0; i < n; i++ {
		off := resultHeader + 4*i
		r.TimestampDiffs[i] = binary.LittleEndian.Uint32(body[off : off+4])
	}
	return r, nil
}

func (r *RangingResult) String() string {
	head := resultHead("RANGING_RESULT", r.Status)
	if r.Status != uci.StatusOK {
		return head
	}
	var sb strings.Builder
	for _, v := range r.TimestampDiffs {
		fmt.Fprintf(&sb, "%d\t\t", v)
	}
	return head + "rx_timestamp_dif: " + sb.String()
}

// PayloadResult 测距序列中某一帧的载荷 (OID 0x27)，长度由帧长度隐含
type PayloadResult struct {
	Status  uci.Status
	Payload []byte
}

func DecodePayload(body []byte) (*PayloadResult, error) {
	st, err := bodyStatus(body)
	if err != nil {
		return nil, err
	}
	r := &PayloadResult{Status: st}
	if st != uci.StatusOK {
		return r, nil
	}
	r.Payload = []byte{}
	if len(body) > resultHeader {
		r.Payload = make([]byte, len(body)-resultHeader)
		copy(r.Payload, body[resultHeader:])
	}
	return r, nil
}

func (r *PayloadResult) String() string {
	head := resultHead("PAYLOAD_RESULT", r.Status)
	if r.Status != uci.StatusOK {
		return head
	}
	return head + fmt.Sprintf("          payload: %s\n", uci.HexBytes(r.Payload))
}
