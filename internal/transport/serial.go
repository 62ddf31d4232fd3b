package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	uciHeaderSize   = 4
	uciChecksumSize = 2
	defaultPoll     = 20 * time.Millisecond
	defaultPulse    = 10 * time.Millisecond
)

// SerialConfig 串口传输配置
type SerialConfig struct {
	Port       string
	BaudRate   int
	ReadPoll   time.Duration // 单次 Read 的最长阻塞时间，决定 ctx 取消的响应速度
	ResetLine  string        // "rts" | "dtr" | ""（不支持硬复位）
	ResetPulse time.Duration
	// Checksum 帧尾是否带 2 字节校验；只影响读取长度，校验本身由 UCI 层完成
	Checksum bool
}

// Serial 基于 go.bug.st/serial 的 UCI 帧传输
type Serial struct {
	cfg    SerialConfig
	port   serial.Port
	logger *zap.Logger

	mu     sync.Mutex // 串行化 Receive，保证按帧读取
	closed atomic.Bool
}

// OpenSerial 打开串口（8N1）
func OpenSerial(cfg SerialConfig, logger *zap.Logger) (*Serial, error) {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 115200
	}
	if cfg.ReadPoll <= 0 {
		cfg.ReadPoll = defaultPoll
	}
	if cfg.ResetPulse <= 0 {
		cfg.ResetPulse = defaultPulse
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Port, err)
	}
	logger.Info("serial transport opened", zap.String("port", cfg.Port), zap.Int("baud", cfg.BaudRate))
	return &Serial{cfg: cfg, port: port, logger: logger}, nil
}

// Transmit 写出整帧
func (s *Serial) Transmit(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	for written := 0; written < len(frame); {
		n, err := s.port.Write(frame[written:])
		if err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
		written += n
	}
	return s.port.Drain()
}

// Receive 读取一整帧：先读 4 字节头，再按长度字段读剩余部分。
// 按设备侧约定，响应的长度字段已计入状态字节；uci.Encode 产生的帧不计入，不能经此读回
func (s *Serial) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return nil, ErrClosed
	}
	deadline := time.Now().Add(timeout)

	header := make([]byte, uciHeaderSize)
	if err := s.readFull(ctx, header, deadline); err != nil {
		return nil, err
	}
	rest := frameLength(header)
	if s.cfg.Checksum {
		rest += uciChecksumSize
	}
	frame := make([]byte, uciHeaderSize+rest)
	copy(frame, header)
	if err := s.readFull(ctx, frame[uciHeaderSize:], deadline); err != nil {
		if err == ErrTimeout {
			s.logger.Warn("serial frame truncated",
				zap.Int("expected", len(frame)),
				zap.String("header", fmt.Sprintf("% X", header)))
		}
		return nil, err
	}
	return frame, nil
}

func (s *Serial) readFull(ctx context.Context, buf []byte, deadline time.Time) error {
	for got := 0; got < len(buf); {
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		if remaining > s.cfg.ReadPoll {
			remaining = s.cfg.ReadPoll
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return fmt.Errorf("serial set read timeout: %w", err)
		}
		n, err := s.port.Read(buf[got:])
		if err != nil {
			return fmt.Errorf("serial read: %w", err)
		}
		got += n
	}
	return nil
}

// HardReset 通过 RTS/DTR 拉一次复位脉冲，并清空输入缓冲
func (s *Serial) HardReset(ctx context.Context) error {
	var set func(bool) error
	switch strings.ToLower(s.cfg.ResetLine) {
	case "rts":
		set = s.port.SetRTS
	case "dtr":
		set = s.port.SetDTR
	default:
		return fmt.Errorf("hard reset not supported (reset line %q)", s.cfg.ResetLine)
	}
	if err := set(true); err != nil {
		return fmt.Errorf("assert reset: %w", err)
	}
	select {
	case <-ctx.Done():
		_ = set(false)
		return ctx.Err()
	case <-time.After(s.cfg.ResetPulse):
	}
	if err := set(false); err != nil {
		return fmt.Errorf("release reset: %w", err)
	}
	if err := s.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("flush input: %w", err)
	}
	s.logger.Info("device hard reset", zap.String("line", s.cfg.ResetLine))
	return nil
}

// Close 关闭串口，正在阻塞的 Receive 会随之返回
func (s *Serial) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.port.Close()
}
