package uci

import (
	"errors"
	"fmt"
)

// 错误分类：格式错误与枚举越界会直接中止当前操作；
// 超时与未注册的 GID/OID 不是 error，而是体现在 Outcome.Status 中。
var (
	ErrFormat      = errors.New("uci: invalid format")
	ErrUnknownEnum = errors.New("uci: unknown enum value")
)

var (
	ErrShortFrame       = fmt.Errorf("%w: frame shorter than header", ErrFormat)
	ErrMissingStatus    = fmt.Errorf("%w: response status missing", ErrFormat)
	ErrLengthMismatch   = fmt.Errorf("%w: declared payload length mismatch", ErrFormat)
	ErrPayloadTooLong   = fmt.Errorf("%w: payload too long", ErrFormat)
	ErrChecksumMismatch = fmt.Errorf("%w: checksum mismatch", ErrFormat)
	ErrFieldRange       = fmt.Errorf("%w: header field out of range", ErrFormat)

	ErrUnknownStatus      = fmt.Errorf("%w: status", ErrUnknownEnum)
	ErrUnknownMessageType = fmt.Errorf("%w: message type", ErrUnknownEnum)
)
