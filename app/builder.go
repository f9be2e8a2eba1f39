package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wyfcoding/beats/config"
	"github.com/wyfcoding/beats/metrics"
	"github.com/wyfcoding/beats/middleware"
	"github.com/wyfcoding/beats/rangeq"
	"github.com/wyfcoding/beats/response"
	"github.com/wyfcoding/beats/server"

	"github.com/gin-gonic/gin"
)

const (
	defaultMetricsPath = "/metrics"
	healthPath         = "/sys/health"
)

// Builder 按配置组装 HTTP 服务：指标、中间件链、树存储与路由。
type Builder struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	engine  *gin.Engine
	store   *rangeq.Store
	appOpts []Option
}

// NewBuilder 创建一个新的应用构建器.
func NewBuilder(cfg *config.Config, logger *slog.Logger) *Builder {
	return &Builder{cfg: cfg, logger: logger}
}

// WithCleanup 追加关闭阶段执行的清理函数.
func (b *Builder) WithCleanup(cleanup func()) *Builder {
	b.appOpts = append(b.appOpts, WithCleanup(cleanup))
	return b
}

// WithMetrics 使用外部创建的指标注册表，默认在 Build 中新建.
func (b *Builder) WithMetrics(m *metrics.Metrics) *Builder {
	b.metrics = m
	return b
}

// Build 构建并组装完整的 App 实例.
func (b *Builder) Build() *App {
	cfg := b.cfg
	if b.metrics == nil {
		b.metrics = metrics.NewMetrics(cfg.Server.Name)
	}
	b.metrics.RegisterBuildInfo(cfg.Server.Name, cfg.Version)

	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = defaultMetricsPath
	}

	b.engine = server.NewDefaultGinEngine(cfg.Server.Environment, b.middleware(metricsPath)...)

	b.store = rangeq.NewStore(cfg.Tree, rangeq.WithMetrics(b.metrics), rangeq.WithLogger(b.logger))
	config.RegisterReloadHook(func(c *config.Config) {
		b.store.SetLimits(c.Tree)
	})
	rangeq.NewHandler(b.store).Register(b.engine)

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port == "" {
			b.engine.GET(metricsPath, gin.WrapH(b.metrics.Handler()))
		} else {
			b.WithCleanup(b.metrics.ExposeHTTP(cfg.Metrics.Port, metricsPath))
		}
	}

	httpCfg := cfg.Server.HTTP
	srv := server.NewGinServer(b.engine, cfg.Addr(), b.logger,
		server.WithTimeouts(httpCfg.ReadTimeout, httpCfg.ReadHeaderTimeout, httpCfg.WriteTimeout, httpCfg.IdleTimeout),
		server.WithShutdownTimeout(httpCfg.ShutdownTimeout),
	)
	b.appOpts = append(b.appOpts, WithServer(srv))

	a := New(cfg.Server.Name, b.logger, b.appOpts...)
	b.registerAdminRoutes(a)
	return a
}

func (b *Builder) middleware(metricsPath string) []gin.HandlerFunc {
	cfg := b.cfg
	mw := []gin.HandlerFunc{
		middleware.Recovery(b.logger),
		middleware.RequestID(),
	}
	if cfg.Tracing.Enabled {
		mw = append(mw, middleware.TracingMiddleware(cfg.Server.Name))
	}
	mw = append(mw,
		middleware.Logger(b.logger),
		middleware.HTTPMetricsMiddlewareWithOptions(b.metrics, middleware.MetricsOptions{
			SlowThreshold: cfg.Server.HTTP.SlowThreshold,
			SkipPaths:     []string{healthPath, metricsPath},
		}),
	)
	if cfg.RateLimit.Enabled {
		mw = append(mw, middleware.NewLocalRateLimitMiddleware(cfg.RateLimit.Rate, cfg.RateLimit.Burst))
	}
	mw = append(mw, middleware.MaxBodyBytes(cfg.Server.HTTP.MaxBodyBytes))
	return mw
}

func (b *Builder) registerAdminRoutes(a *App) {
	b.engine.GET(healthPath, func(c *gin.Context) {
		if err := a.Healthy(); err != nil {
			response.ErrorWithStatus(c, http.StatusServiceUnavailable, "DOWN", err.Error())
			return
		}
		response.Success(c, gin.H{
			"status":    "UP",
			"service":   b.cfg.Server.Name,
			"version":   b.cfg.Version,
			"trees":     len(b.store.Names()),
			"timestamp": time.Now().Unix(),
		})
	})
}

// Engine 返回 Build 之后的 Gin 引擎，便于测试直接驱动路由.
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// Store 返回 Build 之后的树存储.
func (b *Builder) Store() *rangeq.Store {
	return b.store
}
