package health

import (
	"context"
	"fmt"
	"time"

	redisstorage "github.com/taoyao-code/uwb-sniffer/internal/storage/redis"
)

// RedisChecker 抓包流所在 Redis 的检查
type RedisChecker struct {
	client *redisstorage.Client
}

// NewRedisChecker 创建检查器
func NewRedisChecker(client *redisstorage.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.client.HealthCheck(ctx); err != nil {
		// Redis 只是旁路发布，不可用时降级而非不可服务
		return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("ping failed: %v", err), Latency: time.Since(start)}
	}
	stats := c.client.Stats()
	return CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]any{
			"total_conns": stats.TotalConns,
			"idle_conns":  stats.IdleConns,
			"timeouts":    stats.Timeouts,
		},
		Latency: time.Since(start),
	}
}
