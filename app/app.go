// Package app 提供了应用程序的构建和管理功能，包括服务的启动、停止和资源清理。
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/wyfcoding/beats/server"

	"golang.org/x/sync/errgroup"
)

// App 管理一组服务器与清理函数的生命周期。
type App struct {
	name   string
	logger *slog.Logger
	opts   options
}

// New 创建一个新的应用程序实例。
func New(name string, logger *slog.Logger, opts ...Option) *App {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &App{
		name:   name,
		logger: logger,
		opts:   o,
	}
}

// Run 启动所有服务器并阻塞到 ctx 取消或任一服务器失败，随后执行清理。
// 信号处理由调用方通过 signal.NotifyContext 注入 ctx。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Application starting...", "name", a.name, "pid", os.Getpid())

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range a.opts.servers {
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}
	err := g.Wait()
	if err != nil {
		a.logger.Error("server exited with error", "name", a.name, "error", err)
	}

	a.logger.Info("shutting down application", "name", a.name)
	for i := len(a.opts.cleanups) - 1; i >= 0; i-- {
		a.opts.cleanups[i]()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("application shut down gracefully")
	return nil
}

// Healthy 依次执行健康检查，返回所有失败的合并错误。
func (a *App) Healthy() error {
	var errs []error
	for _, check := range a.opts.healthCheckers {
		if err := check(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Servers 返回已注册的服务器列表。
func (a *App) Servers() []server.Server {
	return a.opts.servers
}
