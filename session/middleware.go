package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/objects/logging"
)

// ContextKey gin.Context 中保存会话容器的键
const ContextKey = "objects.session"

// DefaultCookieName 默认的会话 cookie 名
const DefaultCookieName = "OBJSESSID"

// MiddlewareOptions 会话中间件选项
type MiddlewareOptions struct {
	CookieName string
	Path       string
	Domain     string
	Secure     bool
}

// Middleware 在处理请求前恢复会话，处理完成后保存
func Middleware(h *Handler, opts ...func(*MiddlewareOptions)) gin.HandlerFunc {
	options := MiddlewareOptions{CookieName: DefaultCookieName, Path: "/"}
	for _, opt := range opts {
		opt(&options)
	}

	return func(c *gin.Context) {
		id, _ := c.Cookie(options.CookieName)

		container, err := h.Resume(c.Request.Context(), id)
		if err != nil {
			h.logger.Error("Failed to resume session", logging.Err(err))
			_ = c.AbortWithError(http.StatusInternalServerError, err)
			return
		}

		c.Set(ContextKey, container)
		c.SetCookie(options.CookieName, container.ID(), int(h.ttl.Seconds()), options.Path, options.Domain, options.Secure, true)

		c.Next()

		if err := h.Persist(c.Request.Context(), container); err != nil {
			h.logger.Error("Failed to persist session",
				logging.String("session", container.ID()),
				logging.Err(err))
			_ = c.Error(err)
		}
	}
}

// FromContext 获取当前请求的会话容器
func FromContext(c *gin.Context) (*Container, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return nil, false
	}
	container, ok := v.(*Container)
	return container, ok
}
