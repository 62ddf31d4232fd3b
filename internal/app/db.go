package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/uwb-sniffer/internal/config"
	pgstorage "github.com/taoyao-code/uwb-sniffer/internal/storage/pg"
)

// ConnectDB 建立数据库连接并创建抓包仓库；AutoMigrate 打开时同步表结构。
// 未启用数据库时返回 nil, nil, nil。
func ConnectDB(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, *pgstorage.CaptureRepo, error) {
	if !cfg.Enabled {
		log.Info("database is disabled, captures stay in memory")
		return nil, nil, nil
	}
	pool, err := pgstorage.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error("db connect error", zap.Error(err))
		return nil, nil, err
	}
	gdb, err := pgstorage.OpenGorm(pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("open gorm: %w", err)
	}
	repo := pgstorage.NewCaptureRepo(gdb)
	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			log.Error("db migrate error", zap.Error(err))
			pool.Close()
			return nil, nil, err
		}
		log.Info("capture schema migrated")
	}
	return pool, repo, nil
}
