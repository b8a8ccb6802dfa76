package objects

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gocrud/objects/core"
	"github.com/gocrud/objects/logging"
)

// ShutdownTimeout 优雅关闭的超时时间
const ShutdownTimeout = 5 * time.Second

// Run 启动应用程序，阻塞直到收到退出信号
func Run(opts ...core.Option) error {
	rt, err := New(opts...)
	if err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	return Serve(rt, quit)
}

// Serve 启动生命周期，等待 quit 或运行时内部请求退出后关闭
func Serve(rt *core.Runtime, quit <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rt.Lifecycle.Start(ctx); err != nil {
		rt.Logger.Error("Failed to start application", logging.Err(err))
		// 已启动的部分也需要停止
		stopCtx, stopCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer stopCancel()
		rt.Lifecycle.Stop(stopCtx)
		return err
	}
	rt.Logger.Info("Application started", logging.Any("components", len(rt.Objects.ComponentNames())))

	select {
	case sig := <-quit:
		rt.Logger.Info("Shutdown signal received", logging.String("signal", sig.String()))
	case <-rt.Done():
		// 运行时内部请求退出 (例如关键服务崩溃)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	if err := rt.Lifecycle.Stop(shutdownCtx); err != nil {
		rt.Logger.Error("Application stopped with errors", logging.Err(err))
		return err
	}
	rt.Logger.Info("Application stopped")
	return nil
}
