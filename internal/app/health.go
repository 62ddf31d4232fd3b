package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/uwb-sniffer/internal/health"
)

// NewHealthAggregator 创建健康检查聚合器；未启用数据库时不加数据库检查
func NewHealthAggregator(dbpool *pgxpool.Pool) *health.Aggregator {
	agg := health.NewAggregator()
	if dbpool != nil {
		agg.AddChecker(health.NewDatabaseChecker(dbpool))
	}
	return agg
}

// RegisterHealthRoutes 注册健康检查HTTP路由
func RegisterHealthRoutes(r *gin.Engine, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}

// AddListenerChecker 监听循环启动后加入进度检查
func AddListenerChecker(aggregator *health.Aggregator, src health.ListenerStats, stall time.Duration) {
	aggregator.AddChecker(health.NewListenerChecker(src, stall))
}
