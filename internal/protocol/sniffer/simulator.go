package sniffer

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/taoyao-code/uwb-sniffer/internal/protocol/uci"
)

// SimulatorConfig 模拟设备行为
type SimulatorConfig struct {
	// RSSI 原始定点值（RSSIToDbm 之前）
	OverallRSSI int32
	NoiseRSSI   int32
	// RxPayload 每次接收返回的载荷
	RxPayload []byte
	// DropEvery 每 N 次启动接收丢弃一次回包以模拟超时，0 表示不丢
	DropEvery int
	// Checksum 与 Layer 的 WithChecksum 保持一致
	Checksum     bool
	ChecksumFunc uci.ChecksumFunc
}

// Simulator 无硬件时的嗅探器模拟：实现 transport.Responder 签名，
// 配合 transport.Stub 使用。只覆盖内置解码器涉及的命令，其余命令回 REJECTED。
type Simulator struct {
	mu        sync.Mutex
	cfg       SimulatorConfig
	seqFrames int
	burst     uint8
	rxCount   int
}

// NewSimulator 创建模拟设备
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.RxPayload == nil {
		cfg.RxPayload = []byte{0x41, 0x88, 0x01, 0xCD, 0xAB}
	}
	return &Simulator{cfg: cfg}
}

// ResetFrames 硬复位后设备上报的复位通知
func (s *Simulator) ResetFrames() [][]byte {
	s.mu.Lock()
	s.seqFrames, s.burst, s.rxCount = 0, 0, 0
	s.mu.Unlock()
	return [][]byte{s.frame(uci.NewNotification(uci.GIDSniffer, uci.OIDSnifferResetStatusNtf, []byte{byte(uci.StatusReboot)}))}
}

// Respond 根据收到的命令帧生成回包
func (s *Simulator) Respond(raw []byte) [][]byte {
	if s.cfg.Checksum {
		var err error
		if raw, err = uci.StripChecksum(raw, s.cfg.ChecksumFunc); err != nil {
			return nil
		}
	}
	cmd, err := uci.Decode(raw, false)
	if err != nil || cmd.MessageType != uci.MessageTypeCommand {
		return nil
	}
	if cmd.GID != uci.GIDSniffer {
		return [][]byte{s.reply(cmd, uci.StatusRejected, nil)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch cmd.OID {
	case uci.OIDSnifferCfgRangingApp, uci.OIDSnifferCfgRxMode:
		return [][]byte{s.reply(cmd, uci.StatusOK, nil)}
	case uci.OIDSnifferCfgTxMode:
		// tx_cycles 位于 offset 10
		if len(cmd.Payload) > 10 {
			s.burst = cmd.Payload[10]
		}
		return [][]byte{s.reply(cmd, uci.StatusOK, nil)}
	case uci.OIDSnifferCfgRangingSeq:
		s.seqFrames = len(cmd.Payload) / RangingEntrySize
		return [][]byte{s.reply(cmd, uci.StatusOK, nil)}
	case uci.OIDSnifferStartRxMode:
		s.rxCount++
		if s.cfg.DropEvery > 0 && s.rxCount%s.cfg.DropEvery == 0 {
			return nil
		}
		return [][]byte{s.reply(cmd, uci.StatusOK, s.rxResult())}
	case uci.OIDSnifferStartTxMode:
		if s.burst == 0 {
			return nil
		}
		return [][]byte{s.reply(cmd, uci.StatusOK, binary.LittleEndian.AppendUint16(nil, TxStatusSuccess))}
	case uci.OIDSnifferStartRanging:
		if s.seqFrames == 0 {
			return [][]byte{s.reply(cmd, uci.StatusRejected, nil)}
		}
		return [][]byte{s.reply(cmd, uci.StatusOK, nil)}
	case uci.OIDSnifferGetRangingStatus:
		return [][]byte{s.reply(cmd, uci.StatusOK, make([]byte, 2*s.seqFrames))}
	case uci.OIDSnifferGetRangingResult:
		var b []byte
		for i := 1; i < s.seqFrames; i++ {
			b = binary.LittleEndian.AppendUint32(b, uint32(i)*10000)
		}
		// 末尾保留字
		b = binary.LittleEndian.AppendUint32(b, 0)
		return [][]byte{s.reply(cmd, uci.StatusOK, b)}
	case uci.OIDSnifferGetPayload:
		if len(cmd.Payload) != 1 || int(cmd.Payload[0]) >= s.seqFrames {
			return [][]byte{s.reply(cmd, uci.StatusInvalidParam, nil)}
		}
		return [][]byte{s.reply(cmd, uci.StatusOK, append([]byte{cmd.Payload[0]}, s.cfg.RxPayload...))}
	}
	return [][]byte{s.reply(cmd, uci.StatusRejected, nil)}
}

func (s *Simulator) rxResult() []byte {
	b := make([]byte, rxResultMinSize-resultHeader, rxResultMinSize-resultHeader+len(s.cfg.RxPayload))
	// 相对 offset 4 的位置
	b[2], b[3] = 1, 0
	binary.LittleEndian.PutUint32(b[4:], uint32(s.cfg.OverallRSSI))
	binary.LittleEndian.PutUint32(b[12:], uint32(s.cfg.OverallRSSI))
	binary.LittleEndian.PutUint32(b[16:], uint32(s.cfg.NoiseRSSI))
	binary.LittleEndian.PutUint32(b[24:], uint32(s.cfg.NoiseRSSI))
	b[28] = byte(min(len(s.cfg.RxPayload), math.MaxUint8))
	return append(b, s.cfg.RxPayload[:b[28]]...)
}

// reply 构造响应：状态字节之后 3 字节保留，再接业务字段
func (s *Simulator) reply(cmd *uci.Message, status uci.Status, fields []byte) []byte {
	payload := make([]byte, resultHeader-1, resultHeader-1+len(fields))
	payload = append(payload, fields...)
	return s.frame(uci.NewResponse(cmd.GID, cmd.OID, status, payload))
}

func (s *Simulator) frame(m *uci.Message) []byte {
	var (
		b   []byte
		err error
	)
	if s.cfg.Checksum {
		b, err = m.EncodeWithChecksum(s.cfg.ChecksumFunc)
	} else {
		b, err = m.Encode()
	}
	if err != nil {
		return nil
	}
	return b
}
