package web

import (
	"github.com/gin-gonic/gin"
	"github.com/gocrud/objects/core"
	"github.com/gocrud/objects/session"
)

// BuilderOption 用于配置 Web Builder
type BuilderOption func(*Builder)

// WithPort 设置端口
func WithPort(port int) BuilderOption {
	return func(b *Builder) {
		b.UsePort(port)
	}
}

// WithMode 设置 Gin 模式
func WithMode(mode string) BuilderOption {
	return func(b *Builder) {
		b.SetMode(mode)
	}
}

// WithMiddleware 添加全局中间件
func WithMiddleware(middleware ...gin.HandlerFunc) BuilderOption {
	return func(b *Builder) {
		b.Use(middleware...)
	}
}

// WithControllers 按组件名添加控制器
func WithControllers(componentNames ...string) BuilderOption {
	return func(b *Builder) {
		b.AddControllers(componentNames...)
	}
}

// WithRoutes 添加自定义路由
func WithRoutes(fn func(router gin.IRouter)) BuilderOption {
	return func(b *Builder) {
		b.Route(fn)
	}
}

// WithSessions 启用会话中间件
func WithSessions(opts ...func(*session.MiddlewareOptions)) BuilderOption {
	return func(b *Builder) {
		b.UseSessions(opts...)
	}
}

// WithMetricsEndpoint 暴露 Prometheus 指标
func WithMetricsEndpoint(path string) BuilderOption {
	return func(b *Builder) {
		b.UseMetrics(path)
	}
}

// New 启用 Web 能力
// Host 在 Build 时创建并保存为特性，随生命周期作为托管服务运行
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}
		rt.Features.Set(builder)

		var host *Host
		rt.OnBuild(func(rt *core.Runtime) error {
			var err error
			host, err = builder.Build(rt)
			if err != nil {
				return err
			}
			rt.Features.Set(host)
			return nil
		})

		rt.AddHostedService("web", func() (core.HostedService, error) {
			return host, nil
		})
		return nil
	}
}
