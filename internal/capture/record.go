package capture

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/taoyao-code/uwb-sniffer/internal/protocol/sniffer"
)

// Kind 记录类型
type Kind string

const (
	KindRx      Kind = "rx"      // RX 模式单帧
	KindRanging Kind = "ranging" // 一次测距序列
)

// Record 一条抓包记录，各 sink 共用
type Record struct {
	RunID      uuid.UUID `json:"run_id"`
	Sniffer    string    `json:"sniffer,omitempty"`
	Seq        uint64    `json:"seq"`
	Kind       Kind      `json:"kind"`
	CapturedAt time.Time `json:"captured_at"`

	Channel    int `json:"channel"`
	PreambleID int `json:"preamble_id"`
	SFDID      int `json:"sfd_id"`

	Status  string `json:"status"`
	Reasons string `json:"reasons,omitempty"`

	// RX 模式
	RxStatus       uint16  `json:"rx_status"`
	FrameNum       uint8   `json:"frame_num"`
	ErrNum         uint8   `json:"err_num"`
	OverallRSSIMin float64 `json:"overall_rssi_min"`
	OverallRSSIMax float64 `json:"overall_rssi_max"`
	NoiseRSSIMin   float64 `json:"noise_rssi_min"`
	NoiseRSSIMax   float64 `json:"noise_rssi_max"`
	Payload        []byte  `json:"payload,omitempty"`

	// 测距序列
	RxStatusList   []uint16 `json:"rx_status_list,omitempty"`
	TimestampDiffs []uint32 `json:"timestamp_diffs,omitempty"`
	Payloads       [][]byte `json:"payloads,omitempty"`
}

// Run 一次抓包会话，run id 贯穿所有记录
type Run struct {
	ID         uuid.UUID
	Sniffer    string // 采集实例标识，多台嗅探器写同一库时区分来源
	StartedAt  time.Time
	Channel    int
	PreambleID int
	SFDID      int

	seq atomic.Uint64
	now func() time.Time
}

// NewRun 按当前射频参数开启会话
func NewRun(p *sniffer.Parameters) *Run {
	r := &Run{
		ID:         uuid.New(),
		Channel:    int(p.Channel()),
		PreambleID: int(p.PreambleID()),
		SFDID:      int(p.SFDID()),
		now:        time.Now,
	}
	r.StartedAt = r.now()
	return r
}

func (r *Run) next(kind Kind, status string) *Record {
	return &Record{
		RunID:      r.ID,
		Sniffer:    r.Sniffer,
		Seq:        r.seq.Add(1),
		Kind:       kind,
		CapturedAt: r.now().UTC(),
		Channel:    r.Channel,
		PreambleID: r.PreambleID,
		SFDID:      r.SFDID,
		Status:     status,
	}
}

// Captured 已生成的记录数
func (r *Run) Captured() uint64 { return r.seq.Load() }

// FromRx RX 结果转记录；状态非 OK 时返回 nil
func (r *Run) FromRx(res *sniffer.RxResult) *Record {
	if res == nil || !res.OK() || res.RxStatus == nil {
		return nil
	}
	rec := r.next(KindRx, res.Status.String())
	rec.RxStatus = *res.RxStatus
	rec.Reasons = sniffer.TRXBitmapString(*res.RxStatus)
	rec.FrameNum = *res.FrameNum
	rec.ErrNum = *res.ErrNum
	rec.OverallRSSIMin = *res.MinOverallRSSI
	rec.OverallRSSIMax = *res.MaxOverallRSSI
	rec.NoiseRSSIMin = *res.MinNoiseRSSI
	rec.NoiseRSSIMax = *res.MaxNoiseRSSI
	rec.Payload = res.Payload
	return rec
}

// FromRanging 测距序列结果转记录；st 为 nil 时返回 nil
func (r *Run) FromRanging(st *sniffer.RangingStatusResult, res *sniffer.RangingResult, payloads [][]byte) *Record {
	if st == nil {
		return nil
	}
	rec := r.next(KindRanging, st.Status.String())
	rec.RxStatusList = st.RxStatusList
	var all uint16
	for _, s := range st.RxStatusList {
		all |= s
	}
	rec.RxStatus = all
	rec.Reasons = sniffer.TRXBitmapString(all)
	if res != nil {
		rec.TimestampDiffs = res.TimestampDiffs
	}
	rec.Payloads = payloads
	return rec
}
