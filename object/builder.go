package object

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gocrud/objects/logging"
	"github.com/gocrud/objects/reflection"
)

// PropertySetter 通用属性 setter
// 没有注入 setter 的属性会交给它处理
type PropertySetter interface {
	SetProperty(name string, value any) error
}

// Initializer 默认的生命周期初始化接口
type Initializer interface {
	InitializeComponent() error
}

// ScopeHandler 处理 Manager 本身不支持的作用域（例如 session）
// create 在当前构建树中构建一个新实例
type ScopeHandler interface {
	Resolve(componentName string, create func() (any, error)) (any, error)
}

// buildTree 一次顶层 Get 调用的构建状态
type buildTree struct {
	building map[string]bool
	path     []string
	handlers map[Scope]ScopeHandler
}

func newBuildTree(handlers map[Scope]ScopeHandler) *buildTree {
	return &buildTree{
		building: make(map[string]bool),
		handlers: handlers,
	}
}

// enter 标记组件正在构建，返回的函数必须通过 defer 调用
func (t *buildTree) enter(name string) (func(), error) {
	if t.building[name] {
		path := append(slices.Clone(t.path), name)
		return nil, &CircularDependencyError{ComponentName: name, Path: path}
	}
	t.building[name] = true
	t.path = append(t.path, name)
	return func() {
		delete(t.building, name)
		t.path = t.path[:len(t.path)-1]
	}, nil
}

// Builder 按配置构建组件
type Builder struct {
	manager    *Manager
	reflection reflection.Service
	logger     logging.Logger
}

func newBuilder(m *Manager) *Builder {
	return &Builder{
		manager:    m,
		reflection: m.reflection,
		logger:     m.logger,
	}
}

// Build 在新的构建树中构建组件
func (b *Builder) Build(cfg *Configuration, overrides []*ConfigurationArgument) (any, error) {
	return b.build(newBuildTree(nil), cfg, overrides)
}

func (b *Builder) build(tree *buildTree, cfg *Configuration, overrides []*ConfigurationArgument) (instance any, err error) {
	name := cfg.ComponentName()
	leave, err := tree.enter(name)
	if err != nil {
		return nil, err
	}
	defer leave()
	// setter、属性赋值和生命周期方法中的 panic 只让本次构建失败
	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = &CannotBuildError{ComponentName: name, ClassName: cfg.ClassName(), Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	className := cfg.ClassName()
	if className == "" {
		return nil, &CannotBuildError{ComponentName: name, Reason: "未配置实现类"}
	}
	class, err := b.reflection.Class(className)
	if err != nil {
		return nil, &CannotBuildError{ComponentName: name, ClassName: className, Err: err}
	}
	if class.IsAbstract() {
		return nil, &CannotBuildError{ComponentName: name, ClassName: className, Reason: "类是抽象的"}
	}

	args := cfg.Arguments()
	for _, o := range overrides {
		args[o.Index()] = o
	}
	props := cfg.Properties()

	if cfg.AutowiringMode() == AutowiringOn {
		if err := b.autowire(cfg, class, args, props); err != nil {
			return nil, err
		}
	}

	values, err := b.resolveArguments(tree, args)
	if err != nil {
		return nil, err
	}

	instance, err = class.Construct(values)
	if err != nil {
		return nil, &CannotBuildError{ComponentName: name, ClassName: className, Err: err}
	}
	if !objectLike(instance) {
		return nil, &CannotBuildError{ComponentName: name, ClassName: className, Reason: fmt.Sprintf("实例化结果 %T 不是对象", instance)}
	}

	for _, propName := range slices.Sorted(maps.Keys(props)) {
		prop := props[propName]
		value, err := b.resolveValue(tree, prop.Type(), prop.Value())
		if err != nil {
			return nil, err
		}
		if err := b.inject(class, instance, propName, value); err != nil {
			return nil, &CannotBuildError{ComponentName: name, ClassName: className, Err: err}
		}
	}

	if err := b.initialize(cfg, class, instance); err != nil {
		return nil, &CannotBuildError{ComponentName: name, ClassName: className, Reason: "生命周期初始化失败", Err: err}
	}
	return instance, nil
}

// autowire 补全未配置的构造参数和注入属性
func (b *Builder) autowire(cfg *Configuration, class *reflection.Class, args map[int]*ConfigurationArgument, props map[string]*ConfigurationProperty) error {
	for _, p := range class.ConstructorParameters() {
		if _, ok := args[p.Position]; ok {
			continue
		}
		arg, err := autowireParameter(p)
		if err != nil {
			// 只记录，实例化时缺少参数会失败
			b.logger.Debug("Autowiring skipped constructor parameter",
				logging.String("component", cfg.ComponentName()),
				logging.Err(err))
			continue
		}
		args[p.Position] = arg
	}

	for _, s := range class.InjectionSetters() {
		if _, ok := props[s.PropertyName]; ok {
			continue
		}
		prop, err := autowireSetter(s)
		if err != nil {
			return &CannotBuildError{ComponentName: cfg.ComponentName(), ClassName: class.Name(), Err: err}
		}
		if prop != nil {
			props[s.PropertyName] = prop
		}
	}
	return nil
}

// resolveArguments 按位置展开构造参数，空缺位置为 nil
func (b *Builder) resolveArguments(tree *buildTree, args map[int]*ConfigurationArgument) ([]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	positions := slices.Sorted(maps.Keys(args))
	values := make([]any, positions[len(positions)-1])
	for _, pos := range positions {
		arg := args[pos]
		v, err := b.resolveValue(tree, arg.Type(), arg.Value())
		if err != nil {
			return nil, err
		}
		values[pos-1] = v
	}
	return values, nil
}

// resolveValue 引用类型递归调用 Manager 获取组件，错误原样返回
func (b *Builder) resolveValue(tree *buildTree, typ ValueType, value any) (any, error) {
	if typ != Reference {
		return value, nil
	}
	name, ok := referenceName(typ, value)
	if !ok {
		return nil, &InvalidArgumentError{Argument: fmt.Sprintf("%v", value), Reason: "引用必须是组件名"}
	}
	return b.manager.get(tree, name, nil)
}

// inject 依次尝试注入 setter、通用 setter 和导出字段，都不存在时丢弃
func (b *Builder) inject(class *reflection.Class, instance any, name string, value any) error {
	if setter, ok := class.InjectionSetter(name); ok {
		return setter.Inject(instance, value)
	}
	if ps, ok := instance.(PropertySetter); ok {
		return ps.SetProperty(name, value)
	}
	if _, ok := class.Property(name); ok {
		return class.SetProperty(instance, name, value)
	}
	b.logger.Debug("Property dropped, no setter available",
		logging.String("class", class.Name()),
		logging.String("property", name))
	return nil
}

func (b *Builder) initialize(cfg *Configuration, class *reflection.Class, instance any) error {
	method := cfg.LifecycleInitializationMethod()
	if method == "" {
		return nil
	}
	if method == DefaultLifecycleInitializationMethod {
		if init, ok := instance.(Initializer); ok {
			return init.InitializeComponent()
		}
	}
	if fn, ok := class.Method(instance, method); ok {
		return fn()
	}
	return nil
}
