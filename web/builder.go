package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/objects/session"
)

// Controller 控制器接口
type Controller interface {
	// MountRoutes 注册路由
	MountRoutes(router gin.IRouter)
}

// Builder Web 主机构建器（基于 Gin）
// 中间件和路由先记录下来，在 Build 时按顺序注册到引擎，保证会话中间件覆盖所有路由
type Builder struct {
	port        int
	mode        string
	middleware  []gin.HandlerFunc
	routes      []func(router gin.IRouter)
	controllers []string
	sessions    bool
	sessionOpts []func(*session.MiddlewareOptions)
	metricsPath string
}

// NewBuilder 创建 Web 构建器
func NewBuilder() *Builder {
	return &Builder{
		port: 8080,
		mode: gin.ReleaseMode,
	}
}

// UsePort 设置端口，0 表示随机端口
func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// SetMode 设置 Gin 模式
func (b *Builder) SetMode(mode string) *Builder {
	b.mode = mode
	return b
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.middleware = append(b.middleware, middleware...)
	return b
}

// UseSessions 为所有路由启用会话中间件，需要 session.New
func (b *Builder) UseSessions(opts ...func(*session.MiddlewareOptions)) *Builder {
	b.sessions = true
	b.sessionOpts = append(b.sessionOpts, opts...)
	return b
}

// UseMetrics 在 path 暴露 Prometheus 指标，需要 metrics.New
func (b *Builder) UseMetrics(path string) *Builder {
	b.metricsPath = path
	return b
}

// AddControllers 按组件名注册控制器
// 控制器在 Build 时从对象管理器获取，必须实现 Controller
func (b *Builder) AddControllers(componentNames ...string) *Builder {
	b.controllers = append(b.controllers, componentNames...)
	return b
}

// Route 注册自定义路由
func (b *Builder) Route(fn func(router gin.IRouter)) *Builder {
	b.routes = append(b.routes, fn)
	return b
}

// Get 注册 GET 路由
func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	return b.Route(func(r gin.IRouter) { r.GET(path, handlers...) })
}

// Post 注册 POST 路由
func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	return b.Route(func(r gin.IRouter) { r.POST(path, handlers...) })
}

// Put 注册 PUT 路由
func (b *Builder) Put(path string, handlers ...gin.HandlerFunc) *Builder {
	return b.Route(func(r gin.IRouter) { r.PUT(path, handlers...) })
}

// Delete 注册 DELETE 路由
func (b *Builder) Delete(path string, handlers ...gin.HandlerFunc) *Builder {
	return b.Route(func(r gin.IRouter) { r.DELETE(path, handlers...) })
}

// StaticFS 服务静态文件系统
func (b *Builder) StaticFS(relativePath string, fs http.FileSystem) *Builder {
	return b.Route(func(r gin.IRouter) { r.StaticFS(relativePath, fs) })
}
