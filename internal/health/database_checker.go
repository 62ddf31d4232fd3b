package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DatabaseChecker 抓包库连接池检查
type DatabaseChecker struct {
	pool *pgxpool.Pool
}

// NewDatabaseChecker 创建检查器
func NewDatabaseChecker(pool *pgxpool.Pool) *DatabaseChecker {
	return &DatabaseChecker{pool: pool}
}

func (c *DatabaseChecker) Name() string { return "database" }

func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.pool.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err), Latency: time.Since(start)}
	}

	stats := c.pool.Stat()
	utilization := 0.0
	if stats.MaxConns() > 0 {
		utilization = float64(stats.AcquiredConns()) / float64(stats.MaxConns())
	}
	status, message := StatusHealthy, "ok"
	if utilization >= 1.0 {
		// 抓包写入阻塞在连接获取上
		status, message = StatusDegraded, "connection pool exhausted"
	}
	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]any{
			"total_conns":    stats.TotalConns(),
			"acquired_conns": stats.AcquiredConns(),
			"max_conns":      stats.MaxConns(),
		},
		Latency: time.Since(start),
	}
}
