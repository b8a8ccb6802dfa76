package cron

import (
	"context"

	"github.com/gocrud/objects/core"
)

// BuilderOption 用于配置 Cron Builder
type BuilderOption func(*Builder)

// WithSeconds 启用秒级精度
func WithSeconds() BuilderOption {
	return func(b *Builder) {
		b.WithSeconds()
	}
}

// WithLocation 设置时区
func WithLocation(location string) BuilderOption {
	return func(b *Builder) {
		b.WithLocation(location)
	}
}

// EnableCronLogger 启用 cron 库的内部调度日志
func EnableCronLogger() BuilderOption {
	return func(b *Builder) {
		b.EnableCronLogger()
	}
}

// AddJob 添加函数任务
func AddJob(spec, name string, fn func()) BuilderOption {
	return func(b *Builder) {
		b.AddJob(spec, name, fn)
	}
}

// AddComponentJob 添加组件任务
func AddComponentJob(spec, name, componentName string) BuilderOption {
	return func(b *Builder) {
		b.AddComponentJob(spec, name, componentName)
	}
}

// AddJobFactory 添加由工厂创建的任务
func AddJobFactory(spec, name string, factory JobFactory) BuilderOption {
	return func(b *Builder) {
		b.AddJobFactory(spec, name, factory)
	}
}

// New 启用 Cron 能力
// 任务在启动时解析，此时所有 OnBuild 回调已经执行
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}

		scheduler, err := builder.build()
		if err != nil {
			return err
		}
		rt.Features.Set(scheduler)

		rt.OnBuild(func(rt *core.Runtime) error {
			scheduler.init(rt.Logger.WithCategory("cron"))
			return nil
		})

		rt.Lifecycle.OnStart(func(ctx context.Context) error {
			if err := scheduler.register(rt); err != nil {
				return err
			}
			return scheduler.Start(ctx)
		})
		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		})
		return nil
	}
}
