package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taoyao-code/uwb-sniffer/internal/capture"
)

const (
	defaultCaptureLimit = 50
	maxCaptureLimit     = 1000
)

// RunReader 按会话查询，PostgreSQL 存储提供
type RunReader interface {
	ByRun(ctx context.Context, runID uuid.UUID) ([]capture.Record, error)
}

// CaptureRoutes 抓包记录只读接口
type CaptureRoutes struct {
	Recent capture.Reader
	Runs   RunReader // 可为 nil
	Stats  func() capture.ListenerStats
}

// Register 注册 /api 路由
func (cr CaptureRoutes) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/captures", cr.list)
	api.GET("/captures/runs/:id", cr.byRun)
	api.GET("/listener", func(c *gin.Context) {
		if cr.Stats == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "listener not running"})
			return
		}
		c.JSON(http.StatusOK, cr.Stats())
	})
}

func (cr CaptureRoutes) list(c *gin.Context) {
	limit := defaultCaptureLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxCaptureLimit)
	}
	recs, err := cr.Recent.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(recs), "items": recs})
}

func (cr CaptureRoutes) byRun(c *gin.Context) {
	if cr.Runs == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "run lookup requires database"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}
	recs, err := cr.Runs.ByRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "count": len(recs), "items": recs})
}
