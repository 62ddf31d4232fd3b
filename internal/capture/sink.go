package capture

import (
	"context"
	"sync"
)

// Sink 抓包记录的去向（内存、PostgreSQL、Redis Stream）
type Sink interface {
	Name() string
	Write(ctx context.Context, rec *Record) error
}

// Reader 查询最近的记录，新记录在前
type Reader interface {
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// Ring 定长内存环形缓冲，写满后覆盖最旧记录
type Ring struct {
	mu   sync.RWMutex
	buf  []Record
	next int
	full bool
}

// NewRing 创建环形缓冲
func NewRing(size int) *Ring {
	if size <= 0 {
		size = 1024
	}
	return &Ring{buf: make([]Record, size)}
}

func (r *Ring) Name() string { return "memory" }

func (r *Ring) Write(_ context.Context, rec *Record) error {
	r.mu.Lock()
	r.buf[r.next] = *rec
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
	return nil
}

// Len 当前保存的记录数
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Recent limit<=0 时返回全部
func (r *Ring) Recent(_ context.Context, limit int) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.next
	if r.full {
		n = len(r.buf)
	}
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Record, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out, nil
}
