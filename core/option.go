package core

import (
	"github.com/gocrud/objects/config"
	"github.com/gocrud/objects/logging"
	"github.com/gocrud/objects/object"
	"github.com/gocrud/objects/persistence"
	"github.com/gocrud/objects/reflection"
)

// Option 定义了修改 Runtime 状态的函数签名
// 这是框架唯一的扩展点
type Option func(rt *Runtime) error

// WithSettings 配置应用配置源
//
// 示例：
//
//	core.WithSettings(func(b *config.SettingsBuilder) {
//	    b.AddYamlFile("Objects.yaml").AddEnvironmentVariables("APP_")
//	})
func WithSettings(configure func(b *config.SettingsBuilder)) Option {
	return func(rt *Runtime) error {
		configure(rt.settingsBuilder)
		return nil
	}
}

// WithLogging 配置日志，未调用时使用控制台日志
func WithLogging(configure func(b *logging.LoggingBuilder)) Option {
	return func(rt *Runtime) error {
		rt.loggingConfigured = true
		configure(rt.loggingBuilder)
		return nil
	}
}

// WithMetrics 设置对象管理的指标收集器
func WithMetrics(metrics object.Metrics) Option {
	return func(rt *Runtime) error {
		rt.managerOptions = append(rt.managerOptions, object.WithMetrics(metrics))
		return nil
	}
}

// WithPersistence 设置序列化使用的持久化能力
func WithPersistence(p persistence.Manager) Option {
	return func(rt *Runtime) error {
		rt.serializerOptions = append(rt.serializerOptions, object.WithPersistence(p))
		return nil
	}
}

// Provide 注册类并注册同名组件
// target 为构造函数或结构体指针，参见 reflection.Registry.Register
func Provide(componentName string, target any, opts ...reflection.Option) Option {
	return func(rt *Runtime) error {
		if _, err := rt.Registry.Register(componentName, target, opts...); err != nil {
			return err
		}
		rt.OnBuild(func(rt *Runtime) error {
			return rt.Objects.Register(componentName, "", nil)
		})
		return nil
	}
}

// ProvideInstance 注册已存在的实例为单例组件
func ProvideInstance(componentName string, instance any) Option {
	return func(rt *Runtime) error {
		if _, err := rt.instanceClass(componentName, instance); err != nil {
			return err
		}
		rt.OnBuild(func(rt *Runtime) error {
			return rt.RegisterInstance(componentName, instance)
		})
		return nil
	}
}

// ProvideInterface 注册接口类型 T 为抽象组件，实现类在已注册的组件中查找
func ProvideInterface[T any](componentName string) Option {
	return func(rt *Runtime) error {
		if _, err := reflection.Interface[T](rt.Registry, componentName); err != nil {
			return err
		}
		rt.OnBuild(func(rt *Runtime) error {
			return rt.Objects.RegisterType(componentName)
		})
		return nil
	}
}

// WithObjectSettings 从配置节加载组件配置（Objects.yaml 格式）
func WithObjectSettings(section string) Option {
	return func(rt *Runtime) error {
		rt.objectSections = append(rt.objectSections, section)
		return nil
	}
}
