package transport

import (
	"context"
	"sync"
	"time"
)

const stubQueueCapacity = 64

// Responder 根据发出的帧生成设备回包，用于模拟设备
type Responder func(frame []byte) [][]byte

// Stub 内存传输实现：记录所有发出的帧，并从注入队列返回收到的帧。
// 队列满时丢弃最旧的一帧，避免测试中无界增长。
type Stub struct {
	mu        sync.Mutex
	rx        chan []byte
	tx        [][]byte
	responder Responder
	onReset   [][]byte
	txErr     error
	resets    int
}

// NewStub 创建内存传输
func NewStub() *Stub {
	return &Stub{rx: make(chan []byte, stubQueueCapacity)}
}

// SetResponder 设置自动回包逻辑
func (s *Stub) SetResponder(r Responder) {
	s.mu.Lock()
	s.responder = r
	s.mu.Unlock()
}

// SetResetFrames 设置 HardReset 之后设备上报的帧
func (s *Stub) SetResetFrames(frames ...[]byte) {
	s.mu.Lock()
	s.onReset = frames
	s.mu.Unlock()
}

// FailTransmit 让后续 Transmit 返回 err（nil 恢复正常）
func (s *Stub) FailTransmit(err error) {
	s.mu.Lock()
	s.txErr = err
	s.mu.Unlock()
}

func (s *Stub) Transmit(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.txErr != nil {
		err := s.txErr
		s.mu.Unlock()
		return err
	}
	s.tx = append(s.tx, clone(frame))
	r := s.responder
	s.mu.Unlock()

	if r != nil {
		for _, reply := range r(clone(frame)) {
			s.InjectRx(reply)
		}
	}
	return nil
}

func (s *Stub) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case frame := <-s.rx:
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// HardReset 记录复位次数并注入复位后的上报帧
func (s *Stub) HardReset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.resets++
	frames := s.onReset
	s.mu.Unlock()
	for _, f := range frames {
		s.InjectRx(f)
	}
	return nil
}

// InjectRx 注入一帧待接收数据
func (s *Stub) InjectRx(frame []byte) {
	f := clone(frame)
	for {
		select {
		case s.rx <- f:
			return
		default:
		}
		select {
		case <-s.rx:
		default:
		}
	}
}

// TxLog 返回已发送帧的快照
func (s *Stub) TxLog() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.tx))
	for i, f := range s.tx {
		out[i] = clone(f)
	}
	return out
}

// Resets 返回 HardReset 调用次数
func (s *Stub) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
