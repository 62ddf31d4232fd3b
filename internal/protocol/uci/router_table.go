package uci

import (
	"fmt"
	"sync"
)

// Result 解码后的结果（按 GID/OID 区分具体类型）
type Result interface {
	fmt.Stringer
}

// RawPayload 未注册解码器时附带的原始字节
type RawPayload []byte

func (p RawPayload) String() string { return HexBytes(p) }

// Handler 响应/通知解码器：返回状态与解码结果。
// 载荷不足以解码时返回 error（应包裹 ErrFormat），本次交互按帧格式错误处理。
type Handler func(m *Message) (Status, Result, error)

type routeKey struct {
	gid GID
	oid OID
}

// Table 路由表（GID/OID -> handler）。
// 每个键只保留一个处理器，重复注册直接覆盖，不做多订阅分发。
type Table struct {
	mu       sync.RWMutex
	handlers map[routeKey]Handler
}

func NewTable() *Table { return &Table{handlers: make(map[routeKey]Handler)} }

func (t *Table) Register(gid GID, oid OID, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[routeKey{gid, oid}] = h
}

func (t *Table) Lookup(gid GID, oid OID) (Handler, bool) {
	t.mu.RLock()
	h, ok := t.handlers[routeKey{gid, oid}]
	t.mu.RUnlock()
	return h, ok && h != nil
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handlers)
}
