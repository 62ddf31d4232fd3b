package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/uwb-sniffer/internal/config"
	"github.com/taoyao-code/uwb-sniffer/internal/metrics"
	"github.com/taoyao-code/uwb-sniffer/internal/protocol/sniffer"
	"github.com/taoyao-code/uwb-sniffer/internal/protocol/uci"
	"github.com/taoyao-code/uwb-sniffer/internal/transport"
)

// 模拟设备 RSSI 原始值，约 -78 / -93 dBm
const (
	simOverallRSSI int32 = -26 << 25
	simNoiseRSSI   int32 = -31 << 25
)

// OpenDevice 打开嗅探器。simulate 为 true 时使用内存传输与模拟设备，不需要硬件。
// 返回的 closer 负责释放串口。
func OpenDevice(cfg *cfgpkg.Config, simulate bool, logger *zap.Logger, m *metrics.AppMetrics) (*sniffer.Device, func() error, error) {
	var (
		port   transport.Transport
		closer = func() error { return nil }
	)
	if simulate {
		sim := sniffer.NewSimulator(sniffer.SimulatorConfig{
			OverallRSSI:  simOverallRSSI,
			NoiseRSSI:    simNoiseRSSI,
			Checksum:     cfg.UCI.CRC,
			ChecksumFunc: uci.CRC16,
		})
		stub := transport.NewStub()
		stub.SetResponder(sim.Respond)
		stub.SetResetFrames(sim.ResetFrames()...)
		port = stub
		logger.Info("using simulated sniffer")
	} else {
		s, err := transport.OpenSerial(transport.SerialConfig{
			Port:       cfg.Serial.Port,
			BaudRate:   cfg.Serial.BaudRate,
			ReadPoll:   cfg.Serial.ReadPoll,
			ResetLine:  cfg.Serial.ResetLine,
			ResetPulse: cfg.Serial.ResetPulse,
			Checksum:   cfg.UCI.CRC,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open serial %s: %w", cfg.Serial.Port, err)
		}
		port, closer = s, s.Close
	}

	opts := []uci.Option{uci.WithLogger(logger), uci.WithMetrics(m)}
	if cfg.UCI.CRC {
		opts = append(opts, uci.WithChecksum(uci.CRC16))
	}
	dev := sniffer.NewDevice(uci.NewLayer(port, opts...),
		sniffer.WithDeviceLogger(logger),
		sniffer.WithTimeouts(sniffer.Timeouts{Config: cfg.UCI.ConfigTimeout, Burst: cfg.UCI.BurstTimeout}))
	return dev, closer, nil
}

// NewParameters 由配置构造并校验射频参数
func NewParameters(cfg cfgpkg.SnifferConfig) (*sniffer.Parameters, error) {
	p, err := sniffer.NewParameters(cfg.Channel)
	if err != nil {
		return nil, err
	}
	for _, set := range []func() error{
		func() error { return p.SetSFDID(cfg.SFDID) },
		func() error { return p.SetPreambleID(cfg.PreambleID) },
		func() error { return p.SetTxPower(cfg.TxPower) },
		func() error { return p.SetBurstCount(cfg.BurstCount) },
		func() error { return p.SetInterval(cfg.IntervalUs) },
	} {
		if err := set(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ResetDevice 硬复位并等待复位上报；传输层没有复位线时跳过
func ResetDevice(ctx context.Context, dev *sniffer.Device, logger *zap.Logger) error {
	out, err := dev.HardReset(ctx)
	switch {
	case err == nil:
		logger.Info("device reset", zap.Stringer("status", out.Status))
		return nil
	case errors.Is(err, sniffer.ErrNoResetLine):
		logger.Warn("transport has no reset line, skipping hard reset")
		return nil
	default:
		return err
	}
}
