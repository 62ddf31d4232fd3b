package sniffer

import (
	"errors"
	"fmt"
)

// ErrValidation 配置参数越界；所有参数类错误都包裹它，在构造任何字节之前返回
var ErrValidation = errors.New("sniffer: invalid parameter")

var (
	ErrInvalidChannel       = fmt.Errorf("%w: channel", ErrValidation)
	ErrInvalidSFD           = fmt.Errorf("%w: sfd id", ErrValidation)
	ErrInvalidPreamble      = fmt.Errorf("%w: preamble id", ErrValidation)
	ErrInvalidTxPower       = fmt.Errorf("%w: tx power", ErrValidation)
	ErrInvalidBurstCount    = fmt.Errorf("%w: tx burst count", ErrValidation)
	ErrInvalidInterval      = fmt.Errorf("%w: tx interval", ErrValidation)
	ErrInvalidPayloadLength = fmt.Errorf("%w: tx payload length", ErrValidation)
	ErrInvalidSequence      = fmt.Errorf("%w: ranging sequence", ErrValidation)
)

// 参数取值范围
const (
	MinPreambleID  = 9
	MaxPreambleID  = 24
	MinTxPowerDbm  = -12
	MaxTxPowerDbm  = 14
	MaxBurstCount  = 0xFF
	MaxIntervalUs  = 0xFFFFFF
	MinTxPayload   = 2
	MaxTxPayload   = 127
	DefaultChannel = 9
)

// Parameters 一次嗅探会话的射频参数，只通过 Set* 方法修改。
// BurstCount=0 表示无限循环发射，设备不会回包。
type Parameters struct {
	channel    uint8
	sfdID      uint8
	preambleID uint8
	txPowerDbm int8
	burstCount uint8
	intervalUs uint32
}

// NewParameters 按信道创建参数，其余字段取默认值
func NewParameters(channel int) (*Parameters, error) {
	p := &Parameters{
		sfdID:      0,
		preambleID: MinPreambleID,
		txPowerDbm: MaxTxPowerDbm,
		burstCount: 5,
		intervalUs: 10000,
	}
	if err := p.SetChannel(channel); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parameters) Channel() uint8     { return p.channel }
func (p *Parameters) SFDID() uint8       { return p.sfdID }
func (p *Parameters) PreambleID() uint8  { return p.preambleID }
func (p *Parameters) TxPowerDbm() int8   { return p.txPowerDbm }
func (p *Parameters) BurstCount() uint8  { return p.burstCount }
func (p *Parameters) IntervalUs() uint32 { return p.intervalUs }

// SetChannel 信道：5/6/8/9
func (p *Parameters) SetChannel(ch int) error {
	if _, ok := channelFrequency[ch]; !ok {
		return fmt.Errorf("%w: %d (want 5, 6, 8 or 9)", ErrInvalidChannel, ch)
	}
	p.channel = uint8(ch)
	return nil
}

// SetSFDID SFD：0 或 2
func (p *Parameters) SetSFDID(id int) error {
	if id != 0 && id != 2 {
		return fmt.Errorf("%w: %d (want 0 or 2)", ErrInvalidSFD, id)
	}
	p.sfdID = uint8(id)
	return nil
}

// SetPreambleID 前导码：9~24
func (p *Parameters) SetPreambleID(id int) error {
	if id < MinPreambleID || id > MaxPreambleID {
		return fmt.Errorf("%w: %d (want %d~%d)", ErrInvalidPreamble, id, MinPreambleID, MaxPreambleID)
	}
	p.preambleID = uint8(id)
	return nil
}

// SetTxPower 发射功率：-12~14 dBm
func (p *Parameters) SetTxPower(dbm int) error {
	if dbm < MinTxPowerDbm || dbm > MaxTxPowerDbm {
		return fmt.Errorf("%w: %d dBm (want %d~%d)", ErrInvalidTxPower, dbm, MinTxPowerDbm, MaxTxPowerDbm)
	}
	p.txPowerDbm = int8(dbm)
	return nil
}

// SetBurstCount 发射次数：0~255，0 为无限循环直到设备复位
func (p *Parameters) SetBurstCount(n int) error {
	if n < 0 || n > MaxBurstCount {
		return fmt.Errorf("%w: %d (want 0~%d)", ErrInvalidBurstCount, n, MaxBurstCount)
	}
	p.burstCount = uint8(n)
	return nil
}

// SetInterval 发射间隔：0~0xFFFFFF 微秒
func (p *Parameters) SetInterval(us int) error {
	if us < 0 || us > MaxIntervalUs {
		return fmt.Errorf("%w: %d us (want 0~%d)", ErrInvalidInterval, us, MaxIntervalUs)
	}
	p.intervalUs = uint32(us)
	return nil
}

// Continuous 是否为无限循环发射（设备不回包）
func (p *Parameters) Continuous() bool { return p.burstCount == 0 }

func (p *Parameters) String() string {
	return fmt.Sprintf("channel=%d sfd=%d preamble=%d tx_power=%ddBm burst=%d interval=%dus",
		p.channel, p.sfdID, p.preambleID, p.txPowerDbm, p.burstCount, p.intervalUs)
}
