package objects_test

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/objects"
	"github.com/gocrud/objects/config"
	"github.com/gocrud/objects/core"
	"github.com/gocrud/objects/cron"
	"github.com/gocrud/objects/database"
	"github.com/gocrud/objects/logging"
	"github.com/gocrud/objects/metrics"
	"github.com/gocrud/objects/reflection"
	"github.com/gocrud/objects/session"
	"github.com/gocrud/objects/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const objectsYaml = `
objects:
  AppInfo:
    properties:
      Name:
        value: from-yaml
  Basket:
    scope: session
`

type AppInfo struct {
	Name string
}

type Product struct {
	ID    uint `gorm:"primaryKey"`
	Title string
}

// Basket 会话组件，已持久化的商品只保存引用
type Basket struct {
	Products []*Product
}

// ShopController 使用构造函数注入
type ShopController struct {
	info *AppInfo
	db   *gorm.DB
}

func NewShopController(info *AppInfo, db *gorm.DB) *ShopController {
	return &ShopController{info: info, db: db}
}

func (c *ShopController) MountRoutes(r gin.IRouter) {
	r.GET("/ping", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "pong: "+c.info.Name)
	})
	r.POST("/basket/:id", func(ctx *gin.Context) {
		id, err := strconv.Atoi(ctx.Param("id"))
		if err != nil {
			ctx.String(http.StatusBadRequest, err.Error())
			return
		}
		var p Product
		if err := c.db.First(&p, id).Error; err != nil {
			ctx.String(http.StatusNotFound, err.Error())
			return
		}
		container, _ := session.FromContext(ctx)
		v, err := container.Get("Basket")
		if err != nil {
			ctx.String(http.StatusInternalServerError, err.Error())
			return
		}
		basket := v.(*Basket)
		basket.Products = append(basket.Products, &p)
		ctx.String(http.StatusOK, fmt.Sprint(len(basket.Products)))
	})
	r.GET("/basket", func(ctx *gin.Context) {
		container, _ := session.FromContext(ctx)
		v, err := container.Get("Basket")
		if err != nil {
			ctx.String(http.StatusInternalServerError, err.Error())
			return
		}
		titles := ""
		for _, p := range v.(*Basket).Products {
			titles += p.Title + ";"
		}
		ctx.String(http.StatusOK, titles)
	})
}

func TestIntegration(t *testing.T) {
	dir := t.TempDir()
	settingsFile := filepath.Join(dir, "Objects.yaml")
	require.NoError(t, os.WriteFile(settingsFile, []byte(objectsYaml), 0o644))
	t.Setenv("OBJIT_APP_PORT", "0")

	store := session.NewMemoryStore()
	rt, err := objects.New(
		core.WithSettings(func(b *config.SettingsBuilder) {
			b.AddYamlFile(settingsFile).AddEnvironmentVariables("OBJIT_")
		}),
		core.WithLogging(func(b *logging.LoggingBuilder) { b.SetMinimumLevel(logging.LogLevelError) }),
		metrics.New("it"),
		core.Provide("AppInfo", (*AppInfo)(nil)),
		core.Provide("Product", (*Product)(nil), reflection.AsEntity()),
		core.Provide("Basket", (*Basket)(nil)),
		core.Provide("ShopController", NewShopController),
		core.WithObjectSettings("objects"),
		database.New(
			database.WithDatabase(database.DefaultName,
				sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())),
				database.WithAutoMigrate(&Product{})),
			database.WithPersistence(database.DefaultName),
		),
		session.New(session.UseStore(store)),
		cron.New(session.CollectGarbage("@every 1h")),
		web.New(
			web.WithPort(0),
			web.WithSessions(),
			web.WithControllers("ShopController"),
			web.WithMetricsEndpoint("/metrics"),
		),
	)
	require.NoError(t, err)

	// 端口来自环境变量
	port, err := rt.Settings.GetInt("app:port")
	require.NoError(t, err)
	assert.Equal(t, 0, port)

	v, err := rt.Get("Database")
	require.NoError(t, err)
	require.NoError(t, v.(*gorm.DB).Create(&Product{Title: "Go"}).Error)
	require.NoError(t, v.(*gorm.DB).Create(&Product{Title: "Flow"}).Error)

	quit := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() { done <- objects.Serve(rt, quit) }()

	host, ok := core.GetFeature[*web.Host](rt)
	require.True(t, ok)
	select {
	case <-host.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("web host did not start")
	}
	_, p, err := net.SplitHostPort(host.Address())
	require.NoError(t, err)
	base := "http://127.0.0.1:" + p

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar, Timeout: 5 * time.Second}

	call := func(method, path string) string {
		req, err := http.NewRequest(method, base+path, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		return string(body)
	}

	assert.Equal(t, "pong: from-yaml", call(http.MethodGet, "/ping"))
	assert.Equal(t, "1", call(http.MethodPost, "/basket/1"))
	assert.Equal(t, "2", call(http.MethodPost, "/basket/2"))
	assert.Equal(t, "Go;Flow;", call(http.MethodGet, "/basket"))
	assert.Equal(t, 1, store.Len())
	assert.Contains(t, call(http.MethodGet, "/metrics"), "it_objects_built_total")

	quit <- os.Interrupt
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("application did not stop")
	}
}
