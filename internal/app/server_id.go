package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateSnifferID 生成采集实例ID，写入每条抓包记录。
// 优先使用环境变量 UWB_SNIFFER_ID，否则按主机名生成
func GenerateSnifferID() string {
	if id := os.Getenv("UWB_SNIFFER_ID"); id != "" {
		return id
	}

	// 格式：uwb-sniffer-{hostname}-{uuid前8位}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	shortUUID := uuid.New().String()[:8]
	return fmt.Sprintf("uwb-sniffer-%s-%s", hostname, shortUUID)
}
