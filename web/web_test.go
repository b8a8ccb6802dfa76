package web_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/objects/core"
	"github.com/gocrud/objects/logging"
	"github.com/gocrud/objects/metrics"
	"github.com/gocrud/objects/reflection"
	"github.com/gocrud/objects/session"
	"github.com/gocrud/objects/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Greeting struct {
	Text string
}

type Visits struct {
	Count int
}

// VisitController 带依赖的控制器 (构造函数注入)
type VisitController struct {
	greeting *Greeting
}

func NewVisitController(greeting *Greeting) *VisitController {
	return &VisitController{greeting: greeting}
}

func (c *VisitController) MountRoutes(router gin.IRouter) {
	router.GET("/hello", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, c.greeting.Text)
	})
	router.GET("/visits", func(ctx *gin.Context) {
		container, ok := session.FromContext(ctx)
		if !ok {
			ctx.Status(http.StatusInternalServerError)
			return
		}
		v, err := container.Get("Visits")
		if err != nil {
			ctx.String(http.StatusInternalServerError, err.Error())
			return
		}
		visits := v.(*Visits)
		visits.Count++
		ctx.String(http.StatusOK, fmt.Sprint(visits.Count))
	})
}

func newRuntime(t *testing.T, opts ...core.Option) *core.Runtime {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(core.WithLogging(func(*logging.LoggingBuilder) {})))
	require.NoError(t, rt.Apply(opts...))
	require.NoError(t, rt.Build())
	return rt
}

func appOptions(webOpts ...web.BuilderOption) []core.Option {
	return []core.Option{
		metrics.New("web_test"),
		core.ProvideInstance("Greeting", &Greeting{Text: "hello"}),
		core.Provide("VisitController", NewVisitController),
		core.Provide("Visits", (*Visits)(nil), reflection.WithScope("session")),
		session.New(session.UseMemory()),
		web.New(webOpts...),
	}
}

func get(t *testing.T, h http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHost_ControllersAndSessions(t *testing.T) {
	rt := newRuntime(t, appOptions(
		web.WithControllers("VisitController"),
		web.WithSessions(),
		web.WithMetricsEndpoint("/metrics"),
		web.WithRoutes(func(r gin.IRouter) {
			r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		}),
	)...)

	host, ok := core.GetFeature[*web.Host](rt)
	require.True(t, ok)
	h := host.Handler()

	w := get(t, h, "/hello")
	assert.Equal(t, "hello", w.Body.String())

	w = get(t, h, "/ping")
	assert.Equal(t, "pong", w.Body.String())

	w = get(t, h, "/visits")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, session.DefaultCookieName, cookies[0].Name)

	// 同一会话内状态被保存
	w = get(t, h, "/visits", cookies[0])
	assert.Equal(t, "2", w.Body.String())

	// 新会话从头开始
	w = get(t, h, "/visits")
	assert.Equal(t, "1", w.Body.String())

	w = get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "web_test_objects_built_total")
}

func TestHost_BuildFailures(t *testing.T) {
	cases := map[string][]core.Option{
		"unknown controller": appOptions(web.WithControllers("Missing")),
		"not a controller":   appOptions(web.WithControllers("Greeting")),
		"sessions disabled": {
			core.WithLogging(func(*logging.LoggingBuilder) {}),
			web.New(web.WithSessions()),
		},
		"metrics disabled": {
			core.WithLogging(func(*logging.LoggingBuilder) {}),
			web.New(web.WithMetricsEndpoint("/metrics")),
		},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			rt := core.NewRuntime()
			require.NoError(t, rt.Apply(core.WithLogging(func(*logging.LoggingBuilder) {})))
			require.NoError(t, rt.Apply(opts...))
			assert.Error(t, rt.Build())
		})
	}
}

func TestHost_StartStop(t *testing.T) {
	rt := newRuntime(t, appOptions(web.WithPort(0), web.WithControllers("VisitController"))...)
	host, ok := core.GetFeature[*web.Host](rt)
	require.True(t, ok)

	ctx := context.Background()
	require.NoError(t, rt.Lifecycle.Start(ctx))

	select {
	case <-host.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("web host did not start")
	}
	_, port, err := net.SplitHostPort(host.Address())
	require.NoError(t, err)

	resp, err := http.Get("http://127.0.0.1:" + port + "/hello")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", strings.TrimSpace(string(body)))

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, rt.Lifecycle.Stop(stopCtx))
}
