package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocrud/objects/config"
	"github.com/gocrud/objects/logging"
	"github.com/gocrud/objects/object"
	"github.com/gocrud/objects/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Notifier interface {
	Notify(msg string) string
}

type mailer struct {
	From string
}

func (m *mailer) Notify(msg string) string { return m.From + ": " + msg }

type signup struct {
	notifier Notifier
	greeting string
}

func newSignup(notifier Notifier, greeting string) *signup {
	return &signup{notifier: notifier, greeting: greeting}
}

type pinger struct {
	started chan struct{}
	stopped bool
}

func (p *pinger) Start(ctx context.Context) error {
	close(p.started)
	<-ctx.Done()
	return nil
}

func (p *pinger) Stop(ctx context.Context) error {
	p.stopped = true
	return nil
}

func quietLogging() Option {
	return WithLogging(func(b *logging.LoggingBuilder) {})
}

func TestRuntime_Build(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Apply(
		quietLogging(),
		Provide("Mailer", (*mailer)(nil)),
		ProvideInterface[Notifier]("Notifier"),
		Provide("Signup", newSignup, reflection.WithParameterNames("notifier", "greeting"), reflection.WithDefault(2, "welcome")),
	))
	require.NoError(t, rt.Build())

	v, err := rt.Get("Signup")
	require.NoError(t, err)
	s := v.(*signup)
	assert.Equal(t, "welcome", s.greeting)
	require.NotNil(t, s.notifier)
	assert.IsType(t, &mailer{}, s.notifier)

	// 对象管理器把自身注册为组件
	self, err := rt.Get(ObjectManagerComponent)
	require.NoError(t, err)
	assert.Same(t, rt.Objects, self)

	assert.NotNil(t, rt.Serializer)
	assert.Error(t, rt.Build())
}

func TestRuntime_GetBeforeBuild(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.Get("Anything")
	assert.Error(t, err)
}

func TestRuntime_ProvideInstance(t *testing.T) {
	m := &mailer{From: "ops"}
	rt := NewRuntime()
	require.NoError(t, rt.Apply(quietLogging(), ProvideInstance("Mailer", m)))
	require.NoError(t, rt.Build())

	v, err := rt.Get("Mailer")
	require.NoError(t, err)
	assert.Same(t, m, v)
	assert.True(t, rt.Objects.IsSingleton(m))
}

func TestRuntime_ObjectSettings(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Apply(
		quietLogging(),
		WithSettings(func(b *config.SettingsBuilder) {
			b.AddInMemory(map[string]any{
				"objects": map[string]any{
					"Mailer": map[string]any{
						"scope": "prototype",
						"properties": map[string]any{
							"From": map[string]any{"value": "noreply"},
						},
					},
				},
			})
		}),
		Provide("Mailer", (*mailer)(nil)),
		WithObjectSettings("objects"),
	))
	require.NoError(t, rt.Build())

	a, err := rt.Get("Mailer")
	require.NoError(t, err)
	b, err := rt.Get("Mailer")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, "noreply", a.(*mailer).From)

	cfg, err := rt.Objects.Configuration("Mailer")
	require.NoError(t, err)
	assert.Equal(t, object.ScopePrototype, cfg.Scope())
	assert.Equal(t, "settings:objects", cfg.ConfigurationSourceHint())
}

func TestRuntime_ObjectSettingsInvalid(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Apply(
		quietLogging(),
		WithSettings(func(b *config.SettingsBuilder) {
			b.AddInMemory(map[string]any{
				"objects": map[string]any{
					"Mailer": map[string]any{"scope": "request"},
				},
			})
		}),
		Provide("Mailer", (*mailer)(nil)),
		WithObjectSettings("objects"),
	))
	assert.Error(t, rt.Build())
}

func TestRuntime_HostedService(t *testing.T) {
	p := &pinger{started: make(chan struct{})}
	rt := NewRuntime()
	require.NoError(t, rt.Apply(quietLogging(), ProvideInstance("Pinger", p), WithHostedService("Pinger")))
	require.NoError(t, rt.Build())

	ctx := context.Background()
	require.NoError(t, rt.Lifecycle.Start(ctx))
	select {
	case <-p.started:
	case <-time.After(time.Second):
		t.Fatal("hosted service did not start")
	}
	require.NoError(t, rt.Lifecycle.Stop(ctx))
	assert.True(t, p.stopped)
}

func TestRuntime_HostedServiceNotImplemented(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Apply(quietLogging(), Provide("Mailer", (*mailer)(nil)), WithHostedService("Mailer")))
	require.NoError(t, rt.Build())
	assert.Error(t, rt.Lifecycle.Start(context.Background()))
}

func TestRuntime_WorkerFailureShutsDown(t *testing.T) {
	var reported error
	rt := NewRuntime()
	rt.ErrorHandler = func(err error) { reported = err }
	require.NoError(t, rt.Apply(quietLogging(), WithWorker(func(ctx context.Context) error {
		return errors.New("boom")
	})))
	require.NoError(t, rt.Build())
	require.NoError(t, rt.Lifecycle.Start(context.Background()))

	select {
	case <-rt.Done():
	case <-time.After(time.Second):
		t.Fatal("runtime was not shut down")
	}
	require.Error(t, reported)
	assert.Contains(t, reported.Error(), "boom")
	require.NoError(t, rt.Lifecycle.Stop(context.Background()))
}

func TestLifecycle_StopOrder(t *testing.T) {
	var order []int
	l := NewLifecycle()
	errFirst := errors.New("first")
	l.OnStop(func(context.Context) error { order = append(order, 1); return errFirst })
	l.OnStop(func(context.Context) error { order = append(order, 2); return nil })
	l.OnStop(func(context.Context) error { order = append(order, 3); return nil })

	err := l.Stop(context.Background())
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.ErrorIs(t, err, errFirst)
}

func TestFeatureCollection(t *testing.T) {
	rt := NewRuntime()
	_, ok := GetFeature[*mailer](rt)
	assert.False(t, ok)

	m := &mailer{From: "a"}
	rt.Features.Set(m)
	got, ok := GetFeature[*mailer](rt)
	require.True(t, ok)
	assert.Same(t, m, got)
}

func TestRuntime_FileLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objects.log")

	var stopped []string
	rt := NewRuntime()
	require.NoError(t, rt.Apply(
		WithLogging(func(b *logging.LoggingBuilder) {
			b.SetMinimumLevel(logging.LogLevelDebug).AddFile(path)
		}),
		func(rt *Runtime) error {
			rt.Lifecycle.OnStop(func(context.Context) error {
				rt.Logger.Info("feature stopped")
				stopped = append(stopped, "feature")
				return nil
			})
			return nil
		},
	))
	require.NoError(t, rt.Build())

	rt.Logger.Info("runtime built", logging.String("component", "Mailer"))
	require.NoError(t, rt.Lifecycle.Stop(context.Background()))
	assert.Equal(t, []string{"feature"}, stopped)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "runtime built")
	assert.Contains(t, string(data), "component=Mailer")
	// 文件在其他停止钩子之后关闭
	assert.Contains(t, string(data), "feature stopped")
}

func TestRuntime_FileLoggingInvalidPath(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Apply(WithLogging(func(b *logging.LoggingBuilder) {
		b.AddFile(filepath.Join(t.TempDir(), "missing", "objects.log"))
	})))
	assert.ErrorContains(t, rt.Build(), "failed to open log file")
}
