package app

import "github.com/wyfcoding/beats/server"

// Option 用于配置 App。
type Option func(*options)

type options struct {
	servers        []server.Server // 由 App 启动与关闭的服务器。
	cleanups       []func()        // 关闭时按注册的逆序执行。
	healthCheckers []func() error  // 就绪探测，任一返回错误即视为未就绪。
}

// WithHealthChecker 注册一个自定义健康检查函数，用于服务的就绪状态检查。
func WithHealthChecker(checker func() error) Option {
	return func(o *options) {
		o.healthCheckers = append(o.healthCheckers, checker)
	}
}

// WithServer 添加一个或多个由 App 管理生命周期的服务器。
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithCleanup 添加一个在关闭阶段执行的清理函数（例如刷新追踪数据、关闭指标端口）。
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		o.cleanups = append(o.cleanups, cleanup)
	}
}
