package session

import (
	"context"
	"time"

	"github.com/gocrud/objects/logging"
)

// GarbageCollector 定期清理过期会话，实现 cron.Job
type GarbageCollector struct {
	handler *Handler
	timeout time.Duration
}

// NewGarbageCollector 创建会话清理任务
func NewGarbageCollector(h *Handler) *GarbageCollector {
	return &GarbageCollector{handler: h, timeout: 30 * time.Second}
}

// Run 执行一次清理
func (g *GarbageCollector) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	count, err := g.handler.Collect(ctx)
	if err != nil {
		g.handler.logger.Error("Session garbage collection failed", logging.Err(err))
		return
	}
	if count > 0 {
		g.handler.logger.Info("Expired sessions collected", logging.Any("count", count))
	}
}
