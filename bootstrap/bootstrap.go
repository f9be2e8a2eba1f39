// Package bootstrap 负责命令启动时的通用初始化：加载配置、初始化日志与追踪。
package bootstrap

import (
	"context"

	"github.com/wyfcoding/beats/config"
	"github.com/wyfcoding/beats/logging"
	"github.com/wyfcoding/beats/tracing"
)

// Bootstrapper 处理通用基础设施的初始化
type Bootstrapper struct {
	ServiceName string
	Version     string
	Config      *config.Config
	Logger      *logging.Logger
}

// New 创建一个新的引导器实例
func New(serviceName, version string) *Bootstrapper {
	return &Bootstrapper{
		ServiceName: serviceName,
		Version:     version,
	}
}

// Initialize 在默认配置之上加载 configPath（可为空），再按配置初始化全局日志。
func (b *Bootstrapper) Initialize(configPath, module string) error {
	cfg := config.Default()
	cfg.Server.Name = b.ServiceName
	if b.Version != "" {
		cfg.Version = b.Version
	}
	if err := config.Load(configPath, cfg); err != nil {
		// 配置加载失败时日志尚未按配置初始化，先用默认设置输出。
		logging.InitLogger(b.ServiceName, "bootstrap")
		logging.Default().Error("failed to load config", "path", configPath, "error", err)
		return err
	}
	b.Config = cfg
	b.Logger = logging.InitFromConfig(cfg.LoggingConfig(module))
	if configPath != "" {
		config.PrintWithMask(cfg)
	}
	return nil
}

// SetupTracing 初始化 OpenTelemetry 追踪器，返回的函数负责刷新并关闭导出器。
func (b *Bootstrapper) SetupTracing(ctx context.Context) func() {
	tc := b.Config.Tracing
	if tc.ServiceName == "" {
		tc.ServiceName = b.ServiceName
	}
	shutdown, err := tracing.InitTracer(ctx, tc)
	if err != nil {
		b.Logger.Error("failed to init tracer", "error", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			b.Logger.Error("failed to shutdown tracer", "error", err)
		}
	}
}
