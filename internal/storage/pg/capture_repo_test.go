package pg

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/uwb-sniffer/internal/capture"
	cfgpkg "github.com/taoyao-code/uwb-sniffer/internal/config"
)

// openTestRepo 需要 TEST_DATABASE_URL 指向可用的 PostgreSQL，否则跳过
func openTestRepo(t *testing.T) *CaptureRepo {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL 未设置，跳过数据库测试")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, cfgpkg.DatabaseConfig{DSN: dsn}, zap.NewNop())
	if err != nil {
		t.Skipf("测试数据库不可用: %v", err)
	}
	t.Cleanup(pool.Close)

	db, err := OpenGorm(pool)
	require.NoError(t, err)
	repo := NewCaptureRepo(db)
	require.NoError(t, repo.Migrate(ctx))
	return repo
}

func sampleRecord(runID uuid.UUID, seq uint64) *capture.Record {
	return &capture.Record{
		RunID:          runID,
		Seq:            seq,
		Kind:           capture.KindRx,
		CapturedAt:     time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Channel:        9,
		PreambleID:     10,
		SFDID:          2,
		Status:         "UCI_STATUS_OK",
		Reasons:        "SUCCESS",
		FrameNum:       1,
		OverallRSSIMin: -81.25,
		OverallRSSIMax: -79.5,
		Payload:        []byte{0x41, 0x88},
	}
}

func TestCaptureRow_Mapping(t *testing.T) {
	rec := sampleRecord(uuid.New(), 7)
	rec.Kind = capture.KindRanging
	rec.RxStatus = 0x8000
	rec.RxStatusList = []uint16{0, 0x8000}
	rec.TimestampDiffs = []uint32{10000}
	rec.Payloads = [][]byte{{0x00, 0x41}}

	row := rowFromRecord(rec)
	assert.Equal(t, "captures", row.TableName())
	assert.Equal(t, int64(7), row.Seq)
	assert.Equal(t, int32(0x8000), row.RxStatus)
	assert.Equal(t, int16(2), row.SFDID)
	assert.Equal(t, *rec, row.record())
}

func TestCaptureRepo_WriteAndQuery(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	runID := uuid.New()
	t.Cleanup(func() {
		repo.db.Where("run_id = ?", runID).Delete(&CaptureRow{})
	})

	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, repo.Write(ctx, sampleRecord(runID, seq)))
	}

	recs, err := repo.ByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, uint64(1), recs[0].Seq)
	assert.Equal(t, []byte{0x41, 0x88}, recs[2].Payload)
	assert.Equal(t, -79.5, recs[2].OverallRSSIMax)

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(3), recent[0].Seq)
}
