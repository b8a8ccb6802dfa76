package object

import (
	"errors"
	"maps"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/gocrud/objects/logging"
	"github.com/gocrud/objects/reflection"
)

// Manager 对象管理器
// 持有组件配置注册表和单例缓存，应用通过 Get 获取组件而不是直接实例化
type Manager struct {
	mu             sync.RWMutex
	reflection     reflection.Service
	configurations map[string]*Configuration
	// sources 记录 SetConfigurations 最近一次写入的原始配置
	sources map[string]*Configuration
	cache   *Cache
	builder *Builder
	logger  logging.Logger
	metrics Metrics
}

// NewManager 创建对象管理器
func NewManager(refl reflection.Service, opts ...Option) *Manager {
	m := &Manager{
		reflection:     refl,
		configurations: make(map[string]*Configuration),
		sources:        make(map[string]*Configuration),
		cache:          NewCache(),
		logger:         logging.Nop(),
		metrics:        nopMetrics{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.builder = newBuilder(m)
	return m
}

// Cache 返回单例缓存的快照，实例本身共享
func (m *Manager) Cache() *Cache {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache.Clone()
}

// Builder 返回组件构建器
func (m *Manager) Builder() *Builder {
	return m.builder
}

// Register 注册组件
// className 为空时与组件名相同；instance 不为空时直接写入单例缓存
func (m *Manager) Register(componentName, className string, instance any) error {
	if componentName == "" {
		return &InvalidArgumentError{Argument: "componentName", Reason: "不能为空"}
	}
	if className == "" {
		className = componentName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.configurations[componentName]; exists {
		return &AlreadyRegisteredError{ComponentName: componentName}
	}
	class, err := m.reflection.Class(className)
	if err != nil {
		return &UnknownClassError{ComponentName: componentName, ClassName: className, Err: err}
	}
	if class.IsAbstract() {
		return &InvalidClassError{ComponentName: componentName, ClassName: className}
	}
	if instance != nil && (!objectLike(instance) || !m.reflection.IsInstanceOf(instance, className)) {
		return &InvalidObjectError{ComponentName: componentName, ClassName: className, Instance: instance}
	}

	cfg := NewConfiguration(componentName, className)
	cfg.SetScope(ScopeSingleton)
	// 实体和值对象默认是 prototype
	if class.IsEntity() || class.IsValueObject() {
		cfg.SetScope(ScopePrototype)
	}
	if scope := Scope(class.Scope()); scope != ScopeUnresolved {
		cfg.SetScope(scope)
	}
	cfg.SetConfigurationSourceHint("registration")
	m.configurations[componentName] = cfg

	if instance != nil {
		if err := m.cache.Put(componentName, instance); err != nil {
			delete(m.configurations, componentName)
			return err
		}
	}

	m.logger.Debug("Component registered",
		logging.String("component", componentName),
		logging.String("class", className),
		logging.Any("scope", cfg.Scope()))
	return nil
}

// RegisterType 注册接口/抽象类型
// 已注册的配置中恰好有一个实现类时绑定到该类，否则类名留空
func (m *Manager) RegisterType(componentName string) error {
	if componentName == "" {
		return &InvalidArgumentError{Argument: "componentName", Reason: "不能为空"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.configurations[componentName]; exists {
		return &AlreadyRegisteredError{ComponentName: componentName}
	}
	if !m.reflection.HasClass(componentName) {
		return &UnknownClassError{ComponentName: componentName, ClassName: componentName}
	}

	implementations := make(map[string]bool)
	for _, cfg := range m.configurations {
		if cfg.ClassName() != "" && m.reflection.Implements(cfg.ClassName(), componentName) {
			implementations[cfg.ClassName()] = true
		}
	}

	cfg := NewConfiguration(componentName, "")
	cfg.SetClassName("")
	if len(implementations) == 1 {
		for className := range implementations {
			cfg.SetClassName(className)
		}
	}
	cfg.SetConfigurationSourceHint("type registration")
	m.configurations[componentName] = cfg

	m.logger.Debug("Component type registered",
		logging.String("component", componentName),
		logging.String("class", cfg.ClassName()),
		logging.Any("implementations", len(implementations)))
	return nil
}

// Unregister 注销组件，同时清除缓存的实例
func (m *Manager) Unregister(componentName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.configurations[componentName]; !exists {
		return &NotFoundError{ComponentName: componentName}
	}
	if m.cache.Exists(componentName) {
		_ = m.cache.Remove(componentName)
	}
	delete(m.configurations, componentName)
	delete(m.sources, componentName)
	return nil
}

// IsRegistered 组件是否已注册
func (m *Manager) IsRegistered(componentName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.configurations[componentName]
	return exists
}

// ComponentNames 返回所有组件名（排序）
func (m *Manager) ComponentNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.configurations))
}

// Configuration 返回组件配置的副本
func (m *Manager) Configuration(componentName string) (*Configuration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, exists := m.configurations[componentName]
	if !exists {
		return nil, &NotFoundError{ComponentName: componentName}
	}
	return cfg.Clone(), nil
}

// SetConfiguration 保存配置的副本，以配置自身的组件名为键
func (m *Manager) SetConfiguration(cfg *Configuration) error {
	if cfg == nil || cfg.ComponentName() == "" {
		return &InvalidArgumentError{Argument: "configuration", Reason: "缺少组件名"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.configurations[cfg.ComponentName()] = cfg.Clone()
	delete(m.sources, cfg.ComponentName())
	return nil
}

// SetConfigurations 批量保存配置，与上次写入相同的配置对象会被跳过
func (m *Manager) SetConfigurations(configurations map[string]*Configuration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range slices.Sorted(maps.Keys(configurations)) {
		cfg := configurations[name]
		if cfg == nil || cfg.ComponentName() != name {
			return &InvalidArgumentError{Argument: name, Reason: "配置的组件名与键不一致"}
		}
		if m.sources[name] == cfg {
			continue
		}
		m.configurations[name] = cfg.Clone()
		m.sources[name] = cfg
	}
	return nil
}

// ScopeOf 解析组件的有效作用域：配置 > 类注解 > singleton
func (m *Manager) ScopeOf(componentName string) (Scope, error) {
	cfg, err := m.Configuration(componentName)
	if err != nil {
		return ScopeUnresolved, err
	}
	return m.scopeOf(cfg), nil
}

func (m *Manager) scopeOf(cfg *Configuration) Scope {
	if cfg.Scope() != ScopeUnresolved {
		return cfg.Scope()
	}
	if cfg.ClassName() != "" {
		if class, err := m.reflection.Class(cfg.ClassName()); err == nil {
			if class.Scope() != "" {
				return Scope(class.Scope())
			}
			if class.IsEntity() || class.IsValueObject() {
				return ScopePrototype
			}
		}
	}
	return ScopeSingleton
}

// Get 获取组件实例
// args 为按位置（从 1 开始）覆盖的构造参数
func (m *Manager) Get(componentName string, args ...any) (any, error) {
	return m.get(newBuildTree(nil), componentName, args)
}

// GetWith 获取组件实例，不支持的作用域交给 handlers 处理
func (m *Manager) GetWith(handlers map[Scope]ScopeHandler, componentName string, args ...any) (any, error) {
	return m.get(newBuildTree(handlers), componentName, args)
}

// Create 忽略作用域，总是构建新实例
func (m *Manager) Create(componentName string, args ...any) (any, error) {
	cfg, err := m.Configuration(componentName)
	if err != nil {
		return nil, err
	}
	return m.build(newBuildTree(nil), cfg, m.scopeOf(cfg), overrideArguments(args))
}

func (m *Manager) get(tree *buildTree, componentName string, args []any) (any, error) {
	cfg, err := m.Configuration(componentName)
	if err != nil {
		return nil, err
	}
	scope := m.scopeOf(cfg)
	overrides := overrideArguments(args)

	switch scope {
	case ScopePrototype:
		return m.build(tree, cfg, scope, overrides)

	case ScopeSingleton:
		m.mu.RLock()
		instance, cached := m.cache.instances[componentName]
		m.mu.RUnlock()
		if cached {
			m.metrics.CacheHit(componentName)
			return instance, nil
		}
		m.metrics.CacheMiss(componentName)

		instance, err := m.build(tree, cfg, scope, overrides)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		// 并发构建时保留先写入的实例
		if existing, ok := m.cache.instances[componentName]; ok {
			return existing, nil
		}
		if err := m.cache.Put(componentName, instance); err != nil {
			return nil, &CannotBuildError{ComponentName: componentName, ClassName: cfg.ClassName(), Err: err}
		}
		return instance, nil
	}

	if handler, ok := tree.handlers[scope]; ok {
		return handler.Resolve(componentName, func() (any, error) {
			return m.build(tree, cfg, scope, overrides)
		})
	}
	return nil, &UnsupportedScopeError{ComponentName: componentName, Scope: scope}
}

func (m *Manager) build(tree *buildTree, cfg *Configuration, scope Scope, overrides []*ConfigurationArgument) (any, error) {
	start := time.Now()
	instance, err := m.builder.build(tree, cfg, overrides)
	if err != nil {
		// 只在顶层记录一次，嵌套构建的错误会原样向上返回
		if len(tree.path) == 0 {
			m.metrics.BuildFailed(cfg.ComponentName(), err)
			var circular *CircularDependencyError
			if errors.As(err, &circular) {
				m.logger.Error("Circular dependency detected",
					logging.String("component", cfg.ComponentName()),
					logging.Any("path", circular.Path))
			}
		}
		return nil, err
	}
	m.metrics.ObjectBuilt(cfg.ComponentName(), scope, time.Since(start))
	return instance, nil
}

// IsSingleton 对象是否为单例组件：已缓存的单例实例，或其类被注册为单例组件
func (m *Manager) IsSingleton(obj any) bool {
	if !objectLike(obj) {
		return false
	}
	id := identityOf(obj)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, instance := range m.cache.instances {
		if identityOf(instance) == id {
			return true
		}
	}
	t := reflect.TypeOf(obj)
	for _, cfg := range m.configurations {
		if cfg.ClassName() == "" {
			continue
		}
		class, err := m.reflection.Class(cfg.ClassName())
		if err != nil || class.IsAbstract() || class.Type() != t {
			continue
		}
		if m.scopeOf(cfg) == ScopeSingleton {
			return true
		}
	}
	return false
}

// singletonComponent 查找以 className 为实现类的单例组件，优先返回已缓存的
func (m *Manager) singletonComponent(className string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := ""
	for _, name := range slices.Sorted(maps.Keys(m.configurations)) {
		cfg := m.configurations[name]
		if cfg.ClassName() != className || m.scopeOf(cfg) != ScopeSingleton {
			continue
		}
		if m.cache.Exists(name) {
			return name, true
		}
		if found == "" {
			found = name
		}
	}
	return found, found != ""
}

func overrideArguments(args []any) []*ConfigurationArgument {
	overrides := make([]*ConfigurationArgument, 0, len(args))
	for i, arg := range args {
		overrides = append(overrides, NewConfigurationArgument(i+1, arg, StraightValue))
	}
	return overrides
}

// identity 引用类型值的身份
type identity struct {
	typ reflect.Type
	ptr uintptr
}

func identityOf(v any) identity {
	rv := reflect.ValueOf(v)
	return identity{typ: rv.Type(), ptr: rv.Pointer()}
}
