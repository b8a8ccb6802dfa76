package object

import (
	"errors"
	"sync"
	"testing"

	"github.com/gocrud/objects/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Greeter interface {
	Greet() string
}

type greeterImpl struct {
	greeting string
}

func newGreeterImpl() *greeterImpl { return &greeterImpl{greeting: "hello"} }

func (g *greeterImpl) Greet() string { return g.greeting }

type repository struct {
	DSN string
}

type service struct {
	repo        *repository
	name        string
	retries     int
	greeter     Greeter
	Tags        []string
	initialized int
}

func newService(repo *repository, name string, retries int) *service {
	return &service{repo: repo, name: name, retries: retries}
}

func (s *service) InitializeComponent() error {
	s.initialized++
	return nil
}

type nodeA struct{ b *nodeB }
type nodeB struct{ a *nodeA }

func newNodeA(b *nodeB) *nodeA { return &nodeA{b: b} }
func newNodeB(a *nodeA) *nodeB { return &nodeB{a: a} }

func newTestManager(t *testing.T) (*reflection.Registry, *Manager) {
	t.Helper()
	r := reflection.NewRegistry()

	_, err := reflection.Interface[Greeter](r, "Greeter")
	require.NoError(t, err)
	_, err = r.Register("GreeterImpl", newGreeterImpl)
	require.NoError(t, err)
	_, err = r.Register("Repository", (*repository)(nil))
	require.NoError(t, err)
	_, err = r.Register("Service", newService,
		reflection.WithParameterNames("repo", "name", "retries"),
		reflection.WithDefault(2, "default"),
		reflection.WithDefault(3, 3),
		reflection.WithInjection("greeter", func(s *service, g Greeter) { s.greeter = g }),
	)
	require.NoError(t, err)
	_, err = r.Register("NodeA", newNodeA)
	require.NoError(t, err)
	_, err = r.Register("NodeB", newNodeB)
	require.NoError(t, err)

	return r, NewManager(r)
}

func TestManager_ExampleScenario(t *testing.T) {
	r := reflection.NewRegistry()
	_, err := r.Register("GreeterImpl", newGreeterImpl)
	require.NoError(t, err)

	m := NewManager(r)
	require.NoError(t, m.Register("Greeter", "GreeterImpl", nil))

	first, err := m.Get("Greeter")
	require.NoError(t, err)
	assert.IsType(t, &greeterImpl{}, first)

	second, err := m.Get("Greeter")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestManager_Scopes(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("Repository", "", nil))
	require.NoError(t, m.Register("Prototype", "Repository", nil))

	cfg, err := m.Configuration("Prototype")
	require.NoError(t, err)
	cfg.SetScope(ScopePrototype)
	require.NoError(t, m.SetConfiguration(cfg))

	s1, err := m.Get("Repository")
	require.NoError(t, err)
	s2, err := m.Get("Repository")
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	p1, err := m.Get("Prototype")
	require.NoError(t, err)
	p2, err := m.Get("Prototype")
	require.NoError(t, err)
	assert.NotSame(t, p1, p2)
	assert.False(t, m.cache.Exists("Prototype"))
}

func TestManager_ScopeFromClassAnnotation(t *testing.T) {
	r := reflection.NewRegistry()
	_, err := r.Register("Request", (*repository)(nil), reflection.WithScope("prototype"))
	require.NoError(t, err)

	m := NewManager(r)
	require.NoError(t, m.Register("Request", "", nil))

	scope, err := m.ScopeOf("Request")
	require.NoError(t, err)
	assert.Equal(t, ScopePrototype, scope)

	a, _ := m.Get("Request")
	b, _ := m.Get("Request")
	assert.NotSame(t, a, b)
}

func TestManager_CircularDependency(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("NodeA", "", nil))
	require.NoError(t, m.Register("NodeB", "", nil))

	_, err := m.Get("NodeA")
	var circular *CircularDependencyError
	require.ErrorAs(t, err, &circular)
	assert.Equal(t, []string{"NodeA", "NodeB", "NodeA"}, circular.Path)
	assert.False(t, m.cache.Exists("NodeA"))
	assert.False(t, m.cache.Exists("NodeB"))

	// 失败后构建状态已清理，再次获取得到同样的错误
	_, err = m.Get("NodeB")
	require.ErrorAs(t, err, &circular)
	assert.Equal(t, []string{"NodeB", "NodeA", "NodeB"}, circular.Path)
}

func registerGreeter(t *testing.T, m *Manager) {
	t.Helper()
	require.NoError(t, m.Register("GreeterImpl", "", nil))
	require.NoError(t, m.RegisterType("Greeter"))
}

func TestManager_AutowiringByType(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("Repository", "", nil))
	registerGreeter(t, m)
	require.NoError(t, m.Register("Service", "", nil))

	cfg, err := m.Configuration("Greeter")
	require.NoError(t, err)
	assert.Equal(t, "GreeterImpl", cfg.ClassName())

	instance, err := m.Get("Service")
	require.NoError(t, err)
	svc := instance.(*service)

	repo, err := m.Get("Repository")
	require.NoError(t, err)
	assert.Same(t, repo, svc.repo)
	assert.Equal(t, "default", svc.name)
	assert.Equal(t, 3, svc.retries)
	assert.Equal(t, 1, svc.initialized)
	require.NotNil(t, svc.greeter)
	assert.Equal(t, "hello", svc.greeter.Greet())
}

func TestManager_AutowiredSetterNeedsComponent(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("Repository", "", nil))
	require.NoError(t, m.Register("Service", "", nil))

	_, err := m.Get("Service")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Greeter", notFound.ComponentName)
}

func TestManager_RegisterTypeWithoutImplementation(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.RegisterType("Greeter"))

	cfg, err := m.Configuration("Greeter")
	require.NoError(t, err)
	assert.Empty(t, cfg.ClassName())

	_, err = m.Get("Greeter")
	var cannotBuild *CannotBuildError
	assert.ErrorAs(t, err, &cannotBuild)

	assert.ErrorAs(t, m.RegisterType("Missing"), new(*UnknownClassError))
}

func TestManager_ExplicitArgumentsAndOverrides(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("Repository", "", nil))
	registerGreeter(t, m)
	require.NoError(t, m.Register("Service", "", nil))

	cfg, err := m.Configuration("Service")
	require.NoError(t, err)
	cfg.SetScope(ScopePrototype)
	require.NoError(t, cfg.SetArgument(NewConfigurationArgument(2, "configured", StraightValue)))
	require.NoError(t, cfg.SetProperty(NewConfigurationProperty("Tags", []any{"a", "b"}, StraightValue)))
	require.NoError(t, m.SetConfiguration(cfg))

	instance, err := m.Get("Service")
	require.NoError(t, err)
	svc := instance.(*service)
	assert.Equal(t, "configured", svc.name)
	assert.Equal(t, []string{"a", "b"}, svc.Tags)

	instance, err = m.Get("Service", nil, "override", 7)
	require.NoError(t, err)
	svc = instance.(*service)
	assert.Nil(t, svc.repo)
	assert.Equal(t, "override", svc.name)
	assert.Equal(t, 7, svc.retries)
}

func TestManager_MissingArgumentFailsToBuild(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("Repository", "", nil))
	require.NoError(t, m.Register("Service", "", nil))

	cfg, err := m.Configuration("Service")
	require.NoError(t, err)
	cfg.SetAutowiringMode(AutowiringOff)
	require.NoError(t, m.SetConfiguration(cfg))

	_, err = m.Get("Service")
	var cannotBuild *CannotBuildError
	require.ErrorAs(t, err, &cannotBuild)
	assert.Equal(t, "Service", cannotBuild.ComponentName)
	assert.False(t, m.cache.Exists("Service"))
}

func TestManager_UnknownReference(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("Service", "", nil))

	cfg, err := m.Configuration("Service")
	require.NoError(t, err)
	require.NoError(t, cfg.SetArgument(NewConfigurationArgument(1, "Nowhere", Reference)))
	require.NoError(t, m.SetConfiguration(cfg))

	_, err = m.Get("Service")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Nowhere", notFound.ComponentName)
}

func TestManager_RequiredInjectionWithUnknownType(t *testing.T) {
	r := reflection.NewRegistry()
	_, err := r.Register("Counter", (*repository)(nil),
		reflection.WithRequiredInjection("limit", func(r *repository, n int) {}))
	require.NoError(t, err)

	m := NewManager(r)
	require.NoError(t, m.Register("Counter", "", nil))

	_, err = m.Get("Counter")
	var cannotBuild *CannotBuildError
	assert.ErrorAs(t, err, &cannotBuild)
}

type bag struct {
	values map[string]any
}

func (b *bag) SetProperty(name string, value any) error {
	if b.values == nil {
		b.values = make(map[string]any)
	}
	b.values[name] = value
	return nil
}

type starter struct {
	started bool
	fail    bool
}

func (s *starter) Start() error {
	if s.fail {
		return errors.New("boom")
	}
	s.started = true
	return nil
}

func TestManager_PropertySetterAndLifecycle(t *testing.T) {
	r := reflection.NewRegistry()
	_, err := r.Register("Bag", (*bag)(nil))
	require.NoError(t, err)
	_, err = r.Register("Starter", (*starter)(nil))
	require.NoError(t, err)

	m := NewManager(r)
	require.NoError(t, m.Register("Bag", "", nil))
	require.NoError(t, m.Register("Starter", "", nil))

	cfg, _ := m.Configuration("Bag")
	require.NoError(t, cfg.SetProperty(NewConfigurationProperty("color", "red", StraightValue)))
	require.NoError(t, cfg.SetProperty(NewConfigurationProperty("starter", "Starter", Reference)))
	require.NoError(t, m.SetConfiguration(cfg))

	cfg, _ = m.Configuration("Starter")
	cfg.SetLifecycleInitializationMethod("Start")
	require.NoError(t, m.SetConfiguration(cfg))

	instance, err := m.Get("Bag")
	require.NoError(t, err)
	b := instance.(*bag)
	assert.Equal(t, "red", b.values["color"])
	require.IsType(t, &starter{}, b.values["starter"])
	assert.True(t, b.values["starter"].(*starter).started)
}

func TestManager_LifecycleFailure(t *testing.T) {
	r := reflection.NewRegistry()
	_, err := r.Register("Starter", func() *starter { return &starter{fail: true} })
	require.NoError(t, err)

	m := NewManager(r)
	require.NoError(t, m.Register("Starter", "", nil))
	cfg, _ := m.Configuration("Starter")
	cfg.SetLifecycleInitializationMethod("Start")
	require.NoError(t, m.SetConfiguration(cfg))

	_, err = m.Get("Starter")
	var cannotBuild *CannotBuildError
	require.ErrorAs(t, err, &cannotBuild)
	assert.EqualError(t, errors.Unwrap(err), "boom")
	assert.False(t, m.cache.Exists("Starter"))
}

func TestManager_UnsupportedScope(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("Repository", "", nil))

	cfg, _ := m.Configuration("Repository")
	cfg.SetScope(ScopeSession)
	require.NoError(t, m.SetConfiguration(cfg))

	_, err := m.Get("Repository")
	var unsupported *UnsupportedScopeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, ScopeSession, unsupported.Scope)

	handler := &recordingHandler{instances: make(map[string]any)}
	handlers := map[Scope]ScopeHandler{ScopeSession: handler}
	a, err := m.GetWith(handlers, "Repository")
	require.NoError(t, err)
	b, err := m.GetWith(handlers, "Repository")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, handler.created)
}

type recordingHandler struct {
	instances map[string]any
	created   int
}

func (h *recordingHandler) Resolve(name string, create func() (any, error)) (any, error) {
	if instance, ok := h.instances[name]; ok {
		return instance, nil
	}
	instance, err := create()
	if err != nil {
		return nil, err
	}
	h.created++
	h.instances[name] = instance
	return instance, nil
}

func TestManager_RegistrationValidation(t *testing.T) {
	_, m := newTestManager(t)

	assert.ErrorAs(t, m.Register("Greeter", "", nil), new(*InvalidClassError))

	require.NoError(t, m.Register("Repository", "", nil))
	assert.ErrorAs(t, m.Register("Repository", "", nil), new(*AlreadyRegisteredError))

	err := m.Register("Missing", "", nil)
	var unknown *UnknownClassError
	require.ErrorAs(t, err, &unknown)
	assert.ErrorIs(t, err, reflection.ErrUnknownClass)

	assert.ErrorAs(t, m.Register("Wrong", "GreeterImpl", &repository{}), new(*InvalidObjectError))
	assert.ErrorAs(t, m.Register("", "", nil), new(*InvalidArgumentError))
}

func TestManager_RegisterInstance(t *testing.T) {
	r, m := newTestManager(t)
	_, err := r.Register("ObjectManager", (*Manager)(nil))
	require.NoError(t, err)
	require.NoError(t, m.Register("ObjectManager", "", m))

	got, err := m.Get("ObjectManager")
	require.NoError(t, err)
	assert.Same(t, m, got)
	assert.True(t, m.IsSingleton(m))
}

func TestManager_Unregister(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("Repository", "", nil))
	_, err := m.Get("Repository")
	require.NoError(t, err)
	require.True(t, m.cache.Exists("Repository"))

	require.NoError(t, m.Unregister("Repository"))
	assert.False(t, m.IsRegistered("Repository"))
	assert.False(t, m.cache.Exists("Repository"))

	assert.ErrorAs(t, m.Unregister("Repository"), new(*NotFoundError))
	_, err = m.Get("Repository")
	assert.ErrorAs(t, err, new(*NotFoundError))
}

func TestManager_ConfigurationIsCopy(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("Repository", "", nil))

	cfg, err := m.Configuration("Repository")
	require.NoError(t, err)
	cfg.SetScope(ScopePrototype)
	require.NoError(t, cfg.SetArgument(NewConfigurationArgument(1, "x", StraightValue)))

	stored, err := m.Configuration("Repository")
	require.NoError(t, err)
	assert.Equal(t, ScopeSingleton, stored.Scope())
	assert.Empty(t, stored.Arguments())
	assert.Equal(t, "registration", stored.ConfigurationSourceHint())
}

func TestManager_SetConfigurations(t *testing.T) {
	_, m := newTestManager(t)

	cfg := NewConfiguration("Repository", "")
	cfg.SetScope(ScopePrototype)
	require.NoError(t, m.SetConfigurations(map[string]*Configuration{"Repository": cfg}))
	assert.Equal(t, []string{"Repository"}, m.ComponentNames())

	err := m.SetConfigurations(map[string]*Configuration{"Other": cfg})
	assert.ErrorAs(t, err, new(*InvalidArgumentError))
}

func TestManager_CreateIgnoresCache(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("Repository", "", nil))

	cached, err := m.Get("Repository")
	require.NoError(t, err)
	created, err := m.Create("Repository")
	require.NoError(t, err)
	assert.NotSame(t, cached, created)
}

func TestManager_IsSingleton(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("Repository", "", nil))
	require.NoError(t, m.Register("GreeterImpl", "", nil))
	cfg, _ := m.Configuration("GreeterImpl")
	cfg.SetScope(ScopePrototype)
	require.NoError(t, m.SetConfiguration(cfg))

	repo, err := m.Get("Repository")
	require.NoError(t, err)
	assert.True(t, m.IsSingleton(repo))
	// 同类型的其他实例也被视为单例组件
	assert.True(t, m.IsSingleton(&repository{}))

	greeter, err := m.Get("GreeterImpl")
	require.NoError(t, err)
	assert.False(t, m.IsSingleton(greeter))
	assert.False(t, m.IsSingleton(nil))
}

func TestManager_ConcurrentSingleton(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("Repository", "", nil))

	const n = 16
	results := make([]any, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = m.Get("Repository")
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestCache(t *testing.T) {
	c := NewCache()
	repo := &repository{}

	_, err := c.Get("Repository")
	assert.ErrorAs(t, err, new(*NotFoundError))
	assert.ErrorAs(t, c.Put("", repo), new(*InvalidArgumentError))
	assert.ErrorAs(t, c.Put("Repository", "not an object"), new(*InvalidArgumentError))

	require.NoError(t, c.Put("Repository", repo))
	assert.True(t, c.Exists("Repository"))

	clone := c.Clone()
	require.NoError(t, c.Remove("Repository"))
	assert.False(t, c.Exists("Repository"))
	assert.True(t, clone.Exists("Repository"))

	got, err := clone.Get("Repository")
	require.NoError(t, err)
	assert.Same(t, repo, got)
	assert.ErrorAs(t, c.Remove("Repository"), new(*NotFoundError))
}

func TestConfiguration_Arguments(t *testing.T) {
	cfg := NewConfiguration("Service", "")
	assert.Equal(t, "Service", cfg.ClassName())
	assert.Equal(t, AutowiringOn, cfg.AutowiringMode())
	assert.Equal(t, DefaultLifecycleInitializationMethod, cfg.LifecycleInitializationMethod())

	require.NoError(t, cfg.SetArguments([]*ConfigurationArgument{
		NewConfigurationArgument(3, "c", StraightValue),
		NewConfigurationArgument(1, "Logger", Reference),
	}))
	sorted := cfg.SortedArguments()
	require.Len(t, sorted, 2)
	assert.Equal(t, 1, sorted[0].Index())
	name, ok := sorted[0].ReferenceName()
	assert.True(t, ok)
	assert.Equal(t, "Logger", name)

	_, ok = sorted[1].ReferenceName()
	assert.False(t, ok)

	assert.Error(t, cfg.SetArgument(NewConfigurationArgument(0, "x", StraightValue)))
	assert.Error(t, cfg.SetProperty(NewConfigurationProperty("", "x", StraightValue)))
}

type fragile struct {
	Name string
}

func (f *fragile) InitializeComponent() error {
	panic("init exploded")
}

type brittleSetter struct {
	dep *repository
}

func TestManager_PanicsFailTheBuild(t *testing.T) {
	r := reflection.NewRegistry()
	_, err := r.Register("Fragile", (*fragile)(nil))
	require.NoError(t, err)
	_, err = r.Register("Repository", (*repository)(nil))
	require.NoError(t, err)
	_, err = r.Register("Brittle", (*brittleSetter)(nil),
		reflection.WithInjection("dep", func(b *brittleSetter, repo *repository) { panic("setter exploded") }),
	)
	require.NoError(t, err)

	m := NewManager(r)
	for _, name := range []string{"Fragile", "Repository", "Brittle"} {
		require.NoError(t, m.Register(name, "", nil))
	}

	var cannotBuild *CannotBuildError
	_, err = m.Get("Fragile")
	require.ErrorAs(t, err, &cannotBuild)
	assert.Equal(t, "Fragile", cannotBuild.ComponentName)
	assert.Contains(t, cannotBuild.Reason, "init exploded")
	assert.False(t, m.cache.Exists("Fragile"))

	_, err = m.Get("Brittle")
	require.ErrorAs(t, err, &cannotBuild)
	assert.Contains(t, cannotBuild.Reason, "setter exploded")

	// 失败后构建树已清理，后续构建不受影响
	repo, err := m.Get("Repository")
	require.NoError(t, err)
	assert.NotNil(t, repo)
}

func TestManager_CacheAndBuilder(t *testing.T) {
	_, m := newTestManager(t)
	require.NoError(t, m.Register("Repository", "", nil))

	assert.Empty(t, m.Cache().Names())
	repo, err := m.Get("Repository")
	require.NoError(t, err)

	snapshot := m.Cache()
	assert.Equal(t, []string{"Repository"}, snapshot.Names())
	cached, err := snapshot.Get("Repository")
	require.NoError(t, err)
	assert.Same(t, repo, cached)
	// 快照与管理器的缓存相互独立
	require.NoError(t, snapshot.Remove("Repository"))
	assert.True(t, m.Cache().Exists("Repository"))

	cfg, err := m.Configuration("Repository")
	require.NoError(t, err)
	built, err := m.Builder().Build(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &repository{}, built)
	assert.NotSame(t, repo, built)
}

func TestManager_EntitiesArePrototypes(t *testing.T) {
	r := reflection.NewRegistry()
	_, err := r.Register("Account", (*repository)(nil), reflection.AsEntity())
	require.NoError(t, err)

	m := NewManager(r)
	require.NoError(t, m.Register("Account", "", nil))

	scope, err := m.ScopeOf("Account")
	require.NoError(t, err)
	assert.Equal(t, ScopePrototype, scope)

	a, err := m.Get("Account")
	require.NoError(t, err)
	assert.False(t, m.IsSingleton(a))
}
