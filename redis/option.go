package redis

import (
	"context"
	"fmt"

	"github.com/gocrud/objects/core"
	"github.com/gocrud/objects/logging"
)

// ComponentName 默认客户端注册为 Redis，其他客户端注册为 Redis.<name>
func ComponentName(name string) string {
	if name == DefaultName {
		return "Redis"
	}
	return "Redis." + name
}

// BuilderOption 用于配置 Redis Builder
type BuilderOption func(*Builder)

// WithClient 添加 Redis 客户端配置
func WithClient(name string, opts ...func(*RedisClientOptions)) BuilderOption {
	return func(b *Builder) {
		var configure func(*RedisClientOptions)
		if len(opts) > 0 {
			configure = func(o *RedisClientOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.AddClient(name, configure)
	}
}

// New 启用 Redis 能力
// 工厂作为特性保存，session.UseRedis 通过它取得客户端
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}

		factory, err := builder.Build(context.Background())
		if err != nil {
			return err
		}
		if factory == nil {
			return nil
		}
		rt.Features.Set(factory)

		rt.OnBuild(func(rt *core.Runtime) error {
			logger := rt.Logger.WithCategory("redis")
			for _, name := range factory.Names() {
				client, _ := factory.Get(name)
				if err := rt.RegisterInstance(ComponentName(name), client); err != nil {
					return fmt.Errorf("redis: failed to register instance: %w", err)
				}
				logger.Info("Redis client registered",
					logging.String("name", name),
					logging.String("addr", client.Options().Addr),
					logging.Any("db", client.Options().DB))
			}
			return nil
		})

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			rt.Logger.Info("Closing redis clients")
			return factory.Close()
		})
		return nil
	}
}
