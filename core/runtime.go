package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocrud/objects/config"
	"github.com/gocrud/objects/logging"
	"github.com/gocrud/objects/object"
	"github.com/gocrud/objects/reflection"
)

// ObjectManagerComponent 对象管理器注册自身使用的组件名
const ObjectManagerComponent = "ObjectManager"

// Runtime 是框架的上帝对象，作为状态容器
type Runtime struct {
	// Features 存放构建时特性 (web.Builder, session.Handler 等)
	Features FeatureCollection

	// Registry 启动时填充的类注册表
	Registry *reflection.Registry

	// Objects 对象管理器，Build 之后可用
	Objects *object.Manager

	// Serializer 对象图序列化器，Build 之后可用
	Serializer *object.Serializer

	// Settings 应用配置，Build 之后可用
	Settings config.Settings

	// Logger 日志记录器，Build 之后替换为配置的日志
	Logger logging.Logger

	// Lifecycle 生命周期管理
	Lifecycle *LifecycleEvents

	// ErrorHandler 用于记录运行时产生的严重错误
	ErrorHandler func(err error)

	settingsBuilder   *config.SettingsBuilder
	loggingBuilder    *logging.LoggingBuilder
	loggingConfigured bool
	managerOptions    []object.Option
	serializerOptions []object.SerializerOption
	onBuild           []func(rt *Runtime) error
	objectSections    []string
	built             bool

	// shutdownCh 用于通知应用退出
	shutdownCh chan struct{}
}

// NewRuntime 创建一个新的运行时实例
func NewRuntime() *Runtime {
	rt := &Runtime{
		Registry:        reflection.NewRegistry(),
		Settings:        config.Empty(),
		Logger:          logging.Nop(),
		Lifecycle:       NewLifecycle(),
		settingsBuilder: config.NewSettingsBuilder(),
		loggingBuilder:  logging.NewLoggingBuilder(),
		shutdownCh:      make(chan struct{}),
	}
	rt.ErrorHandler = func(err error) {
		rt.Logger.Error("Runtime error", logging.Err(err))
	}
	return rt
}

// Shutdown 请求应用退出
func (rt *Runtime) Shutdown() {
	select {
	case <-rt.shutdownCh:
	default:
		close(rt.shutdownCh)
	}
}

// Done 返回一个通道，当应用需要退出时该通道会关闭
func (rt *Runtime) Done() <-chan struct{} {
	return rt.shutdownCh
}

// Apply 应用多个 Option
func (rt *Runtime) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return err
		}
	}
	return nil
}

// OnBuild 注册在对象管理器创建后执行的回调，按注册顺序执行
func (rt *Runtime) OnBuild(fn func(rt *Runtime) error) {
	rt.onBuild = append(rt.onBuild, fn)
}

// Build 依次构建配置、日志、对象管理器和序列化器，然后执行 OnBuild 回调
// 最后加载 WithObjectSettings 指定的组件配置
func (rt *Runtime) Build() error {
	if rt.built {
		return errors.New("core: runtime already built")
	}
	rt.built = true

	settings, err := rt.settingsBuilder.Build()
	if err != nil {
		return err
	}
	rt.Settings = settings

	if !rt.loggingConfigured {
		rt.loggingBuilder.AddConsole()
	}
	if err := rt.loggingBuilder.Validate(); err != nil {
		return err
	}
	loggers := rt.loggingBuilder.Build()
	rt.Logger = loggers.CreateLogger("objects")
	rt.Lifecycle.afterStop(func(context.Context) error {
		return loggers.Close()
	})

	opts := append([]object.Option{object.WithLogger(rt.Logger.WithCategory("object"))}, rt.managerOptions...)
	rt.Objects = object.NewManager(rt.Registry, opts...)
	rt.Serializer = object.NewSerializer(rt.Objects, rt.serializerOptions...)

	if err := rt.RegisterInstance(ObjectManagerComponent, rt.Objects); err != nil {
		return err
	}

	for _, fn := range rt.onBuild {
		if err := fn(rt); err != nil {
			return err
		}
	}

	for _, section := range rt.objectSections {
		raw := rt.Settings.Section(section).All()
		if err := rt.Objects.LoadSettings(raw, "settings:"+section); err != nil {
			return fmt.Errorf("core: failed to load component settings from %s: %w", section, err)
		}
	}
	return nil
}

// Get 从对象管理器获取组件
func (rt *Runtime) Get(componentName string, args ...any) (any, error) {
	if rt.Objects == nil {
		return nil, errors.New("core: runtime not built")
	}
	return rt.Objects.Get(componentName, args...)
}

// RegisterInstance 把已存在的实例注册为单例组件，只能在 Build 期间或之后调用
func (rt *Runtime) RegisterInstance(componentName string, instance any) error {
	if rt.Objects == nil {
		return errors.New("core: runtime not built")
	}
	className, err := rt.instanceClass(componentName, instance)
	if err != nil {
		return err
	}
	return rt.Objects.Register(componentName, className, instance)
}

// instanceClass 确定实例的类名
// 组件名还不是类名时以组件名注册实例类型，按类型自动装配时引用的就是这个组件
func (rt *Runtime) instanceClass(componentName string, instance any) (string, error) {
	if rt.Registry.HasClass(componentName) {
		if rt.Registry.IsInstanceOf(instance, componentName) {
			return componentName, nil
		}
	} else if _, err := rt.Registry.Register(componentName, instance); err == nil {
		return componentName, nil
	}
	class, err := rt.Registry.ClassOf(instance)
	if err != nil {
		return "", err
	}
	return class.Name(), nil
}
