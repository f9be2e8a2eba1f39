package server

import "context"

// Server 是 app.App 托管的监听端，例如树 API 与独立的指标端口。
type Server interface {
	// Start 阻塞直到监听失败或 ctx 结束，正常关闭返回 nil。
	Start(ctx context.Context) error
	// Stop 等待进行中的请求完成后关闭，ctx 限定最长等待时间。
	Stop(ctx context.Context) error
}

var _ Server = (*GinServer)(nil)
