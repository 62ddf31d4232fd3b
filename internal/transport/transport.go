package transport

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout 在超时时间内没有收到完整帧
	ErrTimeout = errors.New("transport: receive timed out")
	// ErrClosed 传输已关闭
	ErrClosed = errors.New("transport: closed")
)

// Transport UCI 字节传输协作方（SPI/串口等）。
// Transmit 发送一整帧；Receive 阻塞直到收到一整帧、超时或 ctx 取消。
type Transport interface {
	Transmit(ctx context.Context, frame []byte) error
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// Resetter 可选能力：硬件复位（拉复位线）。复位后设备会上报复位状态。
type Resetter interface {
	HardReset(ctx context.Context) error
}

// frameLength 根据 UCI 头计算头部之后的字节数。
// EXT 置位时使用 16bit 长度，否则只取 byte3。
func frameLength(header []byte) int {
	if header[1]&0x80 != 0 {
		return int(header[2])<<8 | int(header[3])
	}
	return int(header[3])
}
