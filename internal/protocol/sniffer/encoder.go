package sniffer

import (
	"encoding/binary"
	"fmt"
	"math"
)

// 信道 -> 中心频率（kHz）
var channelFrequency = map[int]uint32{
	5: 6489600,
	6: 6988800,
	8: 7488000,
	9: 7987200,
}

const (
	txRampUpUs = 80
	rxRampUpUs = 100

	// 射频超时上限 0xFFFFFF us，约 16.7s
	maxRadioTimeout = 0xFFFFFF

	radioBase   = 0x04
	radioTxFlag = 0x10

	// RangingEntrySize 测距序列单条配置长度
	RangingEntrySize = 12
)

// ChannelFrequency 返回信道对应的中心频率
func ChannelFrequency(channel int) (uint32, error) {
	f, ok := channelFrequency[channel]
	if !ok {
		return 0, fmt.Errorf("%w: %d (want 5, 6, 8 or 9)", ErrInvalidChannel, channel)
	}
	return f, nil
}

// EncodeRangingApp 测距应用射频配置 (OID 0x28)
// 布局 <IBHHbBBBB：频率、PLL、TX/RX 爬升时间、功率(0.25dBm/步)、NBIC、加密、TX 温补、晶振温补
func EncodeRangingApp(channel, txPowerDbm int) ([]byte, error) {
	freq, err := ChannelFrequency(channel)
	if err != nil {
		return nil, err
	}
	if txPowerDbm < MinTxPowerDbm || txPowerDbm > MaxTxPowerDbm {
		return nil, fmt.Errorf("%w: %d dBm", ErrInvalidTxPower, txPowerDbm)
	}
	buf := make([]byte, 0, 14)
	buf = binary.LittleEndian.AppendUint32(buf, freq)
	buf = append(buf, byte(PLLModeOn))
	buf = binary.LittleEndian.AppendUint16(buf, txRampUpUs)
	buf = binary.LittleEndian.AppendUint16(buf, rxRampUpUs)
	buf = append(buf, byte(int8(txPowerDbm*4)))
	buf = append(buf, byte(NBICDisable), byte(CipherDisable), byte(TxTempCompDisable), byte(XtalTempCompEnable))
	return buf, nil
}

// EncodeRxMode RX 模式配置 (OID 0x1A)
// 布局 <BBBBHIBBB：radio、前导码索引、STS 偏移、TOA、延时、超时、次数、加密、晶振温补
func EncodeRxMode(preambleID, sfdID int) ([]byte, error) {
	radio, index, err := radioAndPreamble(preambleID, sfdID)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 13)
	buf = append(buf, radio, index, 0, byte(TOAEnable))
	buf = binary.LittleEndian.AppendUint16(buf, 0) // 立即接收
	buf = binary.LittleEndian.AppendUint32(buf, maxRadioTimeout)
	buf = append(buf, 1, byte(CipherDisable), byte(XtalTempCompEnable))
	return buf, nil
}

// EncodeTxMode TX 模式配置 (OID 0x18)
// 布局 <BBBBHIBBBBB；radio 额外置 0x10 位区分发射；tx_delay 即帧间隔，字段只有 16 位
func EncodeTxMode(preambleID, sfdID, burstCount, intervalUs int) ([]byte, error) {
	radio, index, err := radioAndPreamble(preambleID, sfdID)
	if err != nil {
		return nil, err
	}
	if burstCount < 0 || burstCount > MaxBurstCount {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBurstCount, burstCount)
	}
	if intervalUs < 0 || intervalUs > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d us does not fit tx_delay", ErrInvalidInterval, intervalUs)
	}
	buf := make([]byte, 0, 15)
	buf = append(buf, radio|radioTxFlag, index, 0, byte(TOAEnable))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(intervalUs))
	buf = binary.LittleEndian.AppendUint32(buf, maxRadioTimeout)
	buf = append(buf, byte(burstCount), byte(TxTempCompDisable), byte(CipherDisable),
		byte(TxTempCompDisable), byte(XtalTempCompEnable))
	return buf, nil
}

// EncodeStartTx 启动发射 (OID 0x19)：u8 长度 + 2~127 字节载荷
func EncodeStartTx(payload []byte) ([]byte, error) {
	if len(payload) < MinTxPayload || len(payload) > MaxTxPayload {
		return nil, fmt.Errorf("%w: %d bytes (want %d~%d)", ErrInvalidPayloadLength, len(payload), MinTxPayload, MaxTxPayload)
	}
	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, byte(len(payload)))
	return append(buf, payload...), nil
}

// RangingEntry 测距序列中的一条接收窗口（时间单位 us）
type RangingEntry struct {
	PreambleID int     `yaml:"preamble_id" json:"preamble_id"`
	SFDID      int     `yaml:"sfd_id" json:"sfd_id"`
	DelayUs    float64 `yaml:"delay_us" json:"delay_us"`
	TimeoutUs  float64 `yaml:"timeout_us" json:"timeout_us"`
	PSDUIndex  int     `yaml:"psdu_index" json:"psdu_index"`
}

// Encode 编码单条序列配置
// 布局 <BBBBHIBB：动作固定为不带 TOA 的接收，PSDU 同时携带前导数据与时间戳；
// 延时与超时四舍五入到整数微秒（.5 取偶）
func (e RangingEntry) Encode() ([]byte, error) {
	radio, index, err := radioAndPreamble(e.PreambleID, e.SFDID)
	if err != nil {
		return nil, err
	}
	delay := math.RoundToEven(e.DelayUs)
	timeout := math.RoundToEven(e.TimeoutUs)
	if delay < 0 || delay > math.MaxUint16 {
		return nil, fmt.Errorf("%w: delay %.1f us", ErrInvalidSequence, e.DelayUs)
	}
	if timeout < 0 || timeout > math.MaxUint32 {
		return nil, fmt.Errorf("%w: timeout %.1f us", ErrInvalidSequence, e.TimeoutUs)
	}
	if e.PSDUIndex < 0 || e.PSDUIndex > math.MaxUint8 {
		return nil, fmt.Errorf("%w: psdu index %d", ErrInvalidSequence, e.PSDUIndex)
	}
	buf := make([]byte, 0, RangingEntrySize)
	buf = append(buf, byte(RangingActionRxWithoutTOA), radio, index, 0)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(delay))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(timeout))
	buf = append(buf, byte(DataInPSDUPrePSDUAndTimestamp), byte(e.PSDUIndex))
	return buf, nil
}

// EncodeRangingSequence 按顺序拼接多条序列配置 (OID 0x2D)
func EncodeRangingSequence(entries []RangingEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSequence)
	}
	buf := make([]byte, 0, len(entries)*RangingEntrySize)
	for i, e := range entries {
		b, err := e.Encode()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		buf = append(buf, b...)
	}
	return buf, nil
}

// radioAndPreamble radio = sfd + 4；前导码 9~24 映射为索引 1~16
func radioAndPreamble(preambleID, sfdID int) (radio, index byte, err error) {
	if sfdID != 0 && sfdID != 2 {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidSFD, sfdID)
	}
	if preambleID < MinPreambleID || preambleID > MaxPreambleID {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidPreamble, preambleID)
	}
	return byte(sfdID + radioBase), byte(preambleID - 8), nil
}
