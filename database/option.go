package database

import (
	"context"
	"fmt"

	"github.com/gocrud/objects/core"
	"github.com/gocrud/objects/logging"
	"github.com/gocrud/objects/persistence"
	"gorm.io/gorm"
)

// ComponentName 默认数据库注册为 Database，其他实例注册为 Database.<name>
func ComponentName(name string) string {
	if name == DefaultName {
		return "Database"
	}
	return "Database." + name
}

// BuilderOption 用于配置 Database Builder
type BuilderOption func(*Builder)

// WithDatabase 添加数据库配置
func WithDatabase(name string, dialector gorm.Dialector, opts ...func(*DatabaseOptions)) BuilderOption {
	return func(b *Builder) {
		var configure func(*DatabaseOptions)
		if len(opts) > 0 {
			configure = func(o *DatabaseOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.Add(name, dialector, configure)
	}
}

// WithAutoMigrate 设置需要自动迁移的模型
func WithAutoMigrate(models ...any) func(*DatabaseOptions) {
	return func(o *DatabaseOptions) {
		o.AutoMigrate = append(o.AutoMigrate, models...)
	}
}

// WithPersistence 使用指定数据库作为序列化器的持久化管理器
func WithPersistence(name string) BuilderOption {
	return func(b *Builder) {
		b.UsePersistence(name)
	}
}

// New 启用数据库能力
// 连接在应用选项时打开，实例在 Build 时注册为组件
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}

		factory, err := builder.Build()
		if err != nil {
			return err
		}
		if factory == nil {
			return nil
		}
		rt.Features.Set(factory)

		if builder.persistence != "" {
			db, err := factory.Get(builder.persistence)
			if err != nil {
				return err
			}
			if err := core.WithPersistence(persistence.NewGormManager(db, rt.Registry))(rt); err != nil {
				return err
			}
		}

		rt.OnBuild(func(rt *core.Runtime) error {
			logger := rt.Logger.WithCategory("database")
			for _, name := range factory.Names() {
				db, _ := factory.Get(name)
				if err := rt.RegisterInstance(ComponentName(name), db); err != nil {
					return fmt.Errorf("database: failed to register instance: %w", err)
				}
				logger.Info("Database registered",
					logging.String("name", name),
					logging.String("component", ComponentName(name)),
					logging.String("dialector", db.Dialector.Name()))
			}
			return nil
		})

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			rt.Logger.Info("Closing database connections")
			return factory.Close()
		})
		return nil
	}
}
