package mongodb

import (
	"context"
	"fmt"

	"github.com/gocrud/objects/core"
	"github.com/gocrud/objects/logging"
)

// ComponentName 默认数据库注册为 Mongo，其他客户端的数据库注册为 Mongo.<name>
func ComponentName(name string) string {
	if name == DefaultName {
		return "Mongo"
	}
	return "Mongo." + name
}

// BuilderOption 用于配置 MongoDB Builder
type BuilderOption func(*Builder)

// WithClient 添加 MongoDB 客户端配置
func WithClient(name string, uri string, opts ...func(*MongoOptions)) BuilderOption {
	return func(b *Builder) {
		var configure func(*MongoOptions)
		if len(opts) > 0 {
			configure = func(o *MongoOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.Add(name, uri, configure)
	}
}

// New 启用 MongoDB 能力
// 每个客户端的默认数据库注册为组件，工厂作为特性保存
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

		rt.OnBuild(func(rt *core.Runtime) error {
			logger := rt.Logger.WithCategory("mongodb")
			for _, name := range factory.Names() {
				db, _ := factory.Database(name)
				if err := rt.RegisterInstance(ComponentName(name), db); err != nil {
					return fmt.Errorf("mongodb: failed to register instance: %w", err)
				}
				logger.Info("Mongo database registered",
					logging.String("name", name),
					logging.String("database", db.Name()))
			}
			return nil
		})

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			rt.Logger.Info("Closing mongo clients")
			return factory.Close(ctx)
		})
		return nil
	}
}
