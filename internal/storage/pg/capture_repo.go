package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taoyao-code/uwb-sniffer/internal/capture"
)

// CaptureRow 映射 captures 表
// 不使用 gorm.Model，显式声明每个字段
type CaptureRow struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID      uuid.UUID `gorm:"column:run_id;type:uuid;not null;index:idx_captures_run_seq,priority:1"`
	Sniffer    string    `gorm:"column:sniffer;type:varchar(64);index"`
	Seq        int64     `gorm:"column:seq;not null;index:idx_captures_run_seq,priority:2"`
	Kind       string    `gorm:"column:kind;type:varchar(16);not null"`
	CapturedAt time.Time `gorm:"column:captured_at;not null;index"`

	Channel    int16 `gorm:"column:channel;not null"`
	PreambleID int16 `gorm:"column:preamble_id;not null"`
	SFDID      int16 `gorm:"column:sfd_id;not null"`

	Status  string `gorm:"column:status;type:varchar(48);not null"`
	Reasons string `gorm:"column:reasons;type:text"`

	RxStatus       int32   `gorm:"column:rx_status;not null;default:0"`
	FrameNum       int16   `gorm:"column:frame_num"`
	ErrNum         int16   `gorm:"column:err_num"`
	OverallRSSIMin float64 `gorm:"column:overall_rssi_min"`
	OverallRSSIMax float64 `gorm:"column:overall_rssi_max"`
	NoiseRSSIMin   float64 `gorm:"column:noise_rssi_min"`
	NoiseRSSIMax   float64 `gorm:"column:noise_rssi_max"`
	Payload        []byte  `gorm:"column:payload;type:bytea"`

	RxStatusList   []uint16 `gorm:"column:rx_status_list;type:jsonb;serializer:json"`
	TimestampDiffs []uint32 `gorm:"column:timestamp_diffs;type:jsonb;serializer:json"`
	Payloads       [][]byte `gorm:"column:payloads;type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (CaptureRow) TableName() string { return "captures" }

func rowFromRecord(rec *capture.Record) *CaptureRow {
	return &CaptureRow{
		RunID:          rec.RunID,
		Sniffer:        rec.Sniffer,
		Seq:            int64(rec.Seq),
		Kind:           string(rec.Kind),
		CapturedAt:     rec.CapturedAt,
		Channel:        int16(rec.Channel),
		PreambleID:     int16(rec.PreambleID),
		SFDID:          int16(rec.SFDID),
		Status:         rec.Status,
		Reasons:        rec.Reasons,
		RxStatus:       int32(rec.RxStatus),
		FrameNum:       int16(rec.FrameNum),
		ErrNum:         int16(rec.ErrNum),
		OverallRSSIMin: rec.OverallRSSIMin,
		OverallRSSIMax: rec.OverallRSSIMax,
		NoiseRSSIMin:   rec.NoiseRSSIMin,
		NoiseRSSIMax:   rec.NoiseRSSIMax,
		Payload:        rec.Payload,
		RxStatusList:   rec.RxStatusList,
		TimestampDiffs: rec.TimestampDiffs,
		Payloads:       rec.Payloads,
	}
}

func (r *CaptureRow) record() capture.Record {
	return capture.Record{
		RunID:          r.RunID,
		Sniffer:        r.Sniffer,
		Seq:            uint64(r.Seq),
		Kind:           capture.Kind(r.Kind),
		CapturedAt:     r.CapturedAt,
		Channel:        int(r.Channel),
		PreambleID:     int(r.PreambleID),
		SFDID:          int(r.SFDID),
		Status:         r.Status,
		Reasons:        r.Reasons,
		RxStatus:       uint16(r.RxStatus),
		FrameNum:       uint8(r.FrameNum),
		ErrNum:         uint8(r.ErrNum),
		OverallRSSIMin: r.OverallRSSIMin,
		OverallRSSIMax: r.OverallRSSIMax,
		NoiseRSSIMin:   r.NoiseRSSIMin,
		NoiseRSSIMax:   r.NoiseRSSIMax,
		Payload:        r.Payload,
		RxStatusList:   r.RxStatusList,
		TimestampDiffs: r.TimestampDiffs,
		Payloads:       r.Payloads,
	}
}

// CaptureRepo 基于 GORM 的抓包记录存储，实现 capture.Sink 与 capture.Reader
type CaptureRepo struct {
	db *gorm.DB
}

// NewCaptureRepo 创建存储
func NewCaptureRepo(db *gorm.DB) *CaptureRepo {
	return &CaptureRepo{db: db}
}

// Migrate 建表/补列
func (r *CaptureRepo) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&CaptureRow{}); err != nil {
		return fmt.Errorf("migrate captures: %w", err)
	}
	return nil
}

func (r *CaptureRepo) Name() string { return "postgres" }

func (r *CaptureRepo) Write(ctx context.Context, rec *capture.Record) error {
	return r.db.WithContext(ctx).Create(rowFromRecord(rec)).Error
}

// Recent 按写入顺序倒序
func (r *CaptureRepo) Recent(ctx context.Context, limit int) ([]capture.Record, error) {
	q := r.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []CaptureRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return records(rows), nil
}

// ByRun 某次会话的全部记录，按序号升序
func (r *CaptureRepo) ByRun(ctx context.Context, runID uuid.UUID) ([]capture.Record, error) {
	var rows []CaptureRow
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return records(rows), nil
}

func records(rows []CaptureRow) []capture.Record {
	out := make([]capture.Record, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].record())
	}
	return out
}
