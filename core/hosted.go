package core

import (
	"context"
	"fmt"
)

// HostedService 定义了一个具有启动和停止生命周期的托管服务
type HostedService interface {
	// Start 在独立的 Goroutine 中调用，允许阻塞
	// 返回 error 时应用记录错误并触发关闭
	Start(ctx context.Context) error

	// Stop 在应用关闭时调用，必须支持通过 ctx 进行超时控制
	Stop(ctx context.Context) error
}

// WithHostedService 注册一个组件为托管服务
// 组件在启动时从对象管理器获取，必须实现 HostedService
func WithHostedService(componentName string) Option {
	return func(rt *Runtime) error {
		rt.AddHostedService(componentName, func() (HostedService, error) {
			instance, err := rt.Get(componentName)
			if err != nil {
				return nil, err
			}
			svc, ok := instance.(HostedService)
			if !ok {
				return nil, fmt.Errorf("core: component %s (%T) does not implement core.HostedService", componentName, instance)
			}
			return svc, nil
		})
		return nil
	}
}

// AddHostedService 注册托管服务，resolve 在启动时调用
func (rt *Runtime) AddHostedService(name string, resolve func() (HostedService, error)) {
	var (
		svc    HostedService
		cancel context.CancelFunc
	)

	rt.Lifecycle.OnStart(func(ctx context.Context) error {
		var err error
		svc, err = resolve()
		if err != nil {
			return fmt.Errorf("core: failed to resolve hosted service %s: %w", name, err)
		}

		// 服务上下文伴随应用运行
		var serviceCtx context.Context
		serviceCtx, cancel = context.WithCancel(context.Background())

		go func() {
			if err := svc.Start(serviceCtx); err != nil {
				rt.ErrorHandler(fmt.Errorf("hosted service %s exited with error: %w", name, err))
				rt.Shutdown()
			}
		}()
		return nil
	})

	rt.Lifecycle.OnStop(func(ctx context.Context) error {
		if cancel != nil {
			cancel()
		}
		if svc == nil {
			return nil
		}
		return svc.Stop(ctx)
	})
}

// WorkerFunc 简单的后台任务函数，通过 ctx.Done() 判断退出
type WorkerFunc func(ctx context.Context) error

// WithWorker 将一个阻塞的函数注册为后台服务
func WithWorker(fn WorkerFunc) Option {
	return func(rt *Runtime) error {
		var cancel context.CancelFunc

		rt.Lifecycle.OnStart(func(ctx context.Context) error {
			var workerCtx context.Context
			workerCtx, cancel = context.WithCancel(context.Background())

			go func() {
				if err := fn(workerCtx); err != nil {
					rt.ErrorHandler(fmt.Errorf("worker exited with error: %w", err))
					rt.Shutdown()
				}
			}()
			return nil
		})

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			return nil
		})
		return nil
	}
}
