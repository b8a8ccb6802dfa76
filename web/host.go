package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/objects/core"
	"github.com/gocrud/objects/logging"
	"github.com/gocrud/objects/metrics"
	"github.com/gocrud/objects/session"
)

// Host Web 主机
type Host struct {
	port   int
	engine *gin.Engine
	server *http.Server
	logger logging.Logger

	mu    sync.RWMutex
	addr  string
	ready chan struct{}
}

// Build 创建引擎并注册中间件、路由和控制器
func (b *Builder) Build(rt *core.Runtime) (*Host, error) {
	gin.SetMode(b.mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(b.middleware...)

	logger := rt.Logger.WithCategory("web")

	if b.sessions {
		h, ok := core.GetFeature[*session.Handler](rt)
		if !ok {
			return nil, errors.New("web: sessions are not enabled, apply session.New first")
		}
		engine.Use(session.Middleware(h, b.sessionOpts...))
	}

	for _, route := range b.routes {
		route(engine)
	}

	if b.metricsPath != "" {
		c, ok := core.GetFeature[*metrics.Collector](rt)
		if !ok {
			return nil, errors.New("web: metrics are not enabled, apply metrics.New first")
		}
		engine.GET(b.metricsPath, gin.WrapH(c.Handler()))
	}

	for _, name := range b.controllers {
		instance, err := rt.Get(name)
		if err != nil {
			return nil, fmt.Errorf("web: failed to resolve controller %s: %w", name, err)
		}
		ctrl, ok := instance.(Controller)
		if !ok {
			return nil, fmt.Errorf("web: component %s (%T) does not implement web.Controller", name, instance)
		}
		ctrl.MountRoutes(engine)
		logger.Debug("Mapped controller routes", logging.String("controller", name))
	}

	return &Host{
		port:   b.port,
		engine: engine,
		server: &http.Server{Handler: engine},
		logger: logger,
		ready:  make(chan struct{}),
	}, nil
}

// Handler 返回处理请求的 http.Handler
func (h *Host) Handler() http.Handler {
	return h.engine
}

// Address 获取监听地址 (e.g., "[::]:50234")
// 仅在 Ready 关闭后有效
func (h *Host) Address() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.addr
}

// Ready 在开始监听后关闭
func (h *Host) Ready() <-chan struct{} {
	return h.ready
}

// Start 启动 Web 主机
// 注意：此方法会阻塞，直到服务退出。框架会在独立的 Goroutine 中调用它。
func (h *Host) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", h.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", addr, err)
	}

	h.mu.Lock()
	h.addr = ln.Addr().String()
	h.mu.Unlock()
	close(h.ready)

	h.logger.Info("Web host started", logging.String("address", h.Address()))

	// Serve 会一直阻塞直到 Shutdown 被调用或发生错误
	if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		h.logger.Error("Web host error", logging.Err(err))
		return err
	}
	return nil
}

// Stop 停止 Web 主机
func (h *Host) Stop(ctx context.Context) error {
	h.logger.Info("Stopping web host")
	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Error("Failed to shutdown web host gracefully", logging.Err(err))
		return err
	}
	h.logger.Info("Web host stopped")
	return nil
}
