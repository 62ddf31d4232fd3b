package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/taoyao-code/uwb-sniffer/internal/capture"
)

const (
	defaultStream = "uwb:captures"
	// 流字段名
	fieldRecord = "rec"
	fieldKind   = "kind"
	fieldRunID  = "run_id"
	fieldSeq    = "seq"
)

// CaptureStream 把抓包记录以 CBOR 编码追加到 Redis Stream，供下游消费者订阅。
// 流按 MAXLEN ~ 近似裁剪。
type CaptureStream struct {
	rdb    redis.Cmdable
	stream string
	maxLen int64
}

// NewCaptureStream 创建发布器；stream 为空时使用 uwb:captures
func NewCaptureStream(rdb redis.Cmdable, stream string, maxLen int64) *CaptureStream {
	if stream == "" {
		stream = defaultStream
	}
	return &CaptureStream{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (s *CaptureStream) Name() string { return "redis" }

// Write XADD 一条记录
func (s *CaptureStream) Write(ctx context.Context, rec *capture.Record) error {
	b, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			fieldRecord: b,
			fieldKind:   string(rec.Kind),
			fieldRunID:  rec.RunID.String(),
			fieldSeq:    strconv.FormatUint(rec.Seq, 10),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Recent 从流尾部倒序读取，实现 capture.Reader
func (s *CaptureStream) Recent(ctx context.Context, limit int) ([]capture.Record, error) {
	var (
		msgs []redis.XMessage
		err  error
	)
	if limit > 0 {
		msgs, err = s.rdb.XRevRangeN(ctx, s.stream, "+", "-", int64(limit)).Result()
	} else {
		msgs, err = s.rdb.XRevRange(ctx, s.stream, "+", "-").Result()
	}
	if err != nil {
		return nil, fmt.Errorf("xrevrange %s: %w", s.stream, err)
	}
	out := make([]capture.Record, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values[fieldRecord].(string)
		if !ok {
			continue
		}
		rec, err := DecodeRecord([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode stream entry %s: %w", m.ID, err)
		}
		out = append(out, *rec)
	}
	return out, nil
}

// 时间按 RFC3339 纳秒精度编码，保留时区与亚秒部分
var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// EncodeRecord CBOR 编码（字段名沿用 json tag）
func EncodeRecord(rec *capture.Record) ([]byte, error) {
	b, err := encMode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("cbor encode capture: %w", err)
	}
	return b, nil
}

// DecodeRecord CBOR 解码
func DecodeRecord(b []byte) (*capture.Record, error) {
	var rec capture.Record
	if err := cbor.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("cbor decode capture: %w", err)
	}
	return &rec, nil
}
