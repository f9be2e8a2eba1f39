// Package tracing 封装 OpenTelemetry，为树服务的 HTTP 请求与区间操作提供链路追踪.
package tracing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/beats/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/wyfcoding/beats/tracing"
	defaultServiceName  = "beats"

	// 树操作 span 的名称前缀与属性键.
	treeSpanPrefix = "tree."
	attrTree       = "beats.tree"
)

// InitTracer 安装全局传播器，启用时再安装 OTLP gRPC 导出的 TracerProvider.
// 未启用时全局 TracerProvider 保持 noop，返回的 shutdown 为空操作.
func InitTracer(ctx context.Context, cfg config.TracingConfig) (shutdown func(context.Context) error, err error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter for %s: %w", serviceName, err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			attribute.Float64("beats.sampler_ratio", cfg.SamplerRatio),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplerRatio))),
	)
	otel.SetTracerProvider(tp)

	slog.Info("tracer provider initialized",
		"service", serviceName,
		"endpoint", cfg.OTLPEndpoint,
		"sampler_ratio", cfg.SamplerRatio,
	)
	return tp.Shutdown, nil
}

// StartSpan 创建并开始一个新的 Span，调用者负责 End.
//
//nolint:spancheck // 通用包装，生命周期由调用方管理.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartTreeSpan 为树 tree 上的一次 op 操作开启 span，名称形如 "tree.add".
//
//nolint:spancheck // 由调用方 End.
func StartTreeSpan(ctx context.Context, op, tree string) (context.Context, trace.Span) {
	return StartSpan(ctx, treeSpanPrefix+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String(attrTree, tree)),
	)
}

// AddTag 为当前活动的 Span 附加属性，非 recording 的 span 直接忽略.
func AddTag(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	var kv attribute.KeyValue
	switch v := value.(type) {
	case string:
		kv = attribute.String(key, v)
	case int:
		kv = attribute.Int(key, v)
	case int64:
		kv = attribute.Int64(key, v)
	case bool:
		kv = attribute.Bool(key, v)
	case float64:
		kv = attribute.Float64(key, v)
	default:
		kv = attribute.String(key, fmt.Sprint(v))
	}
	span.SetAttributes(kv)
}

// SetError 记录错误并把 span 状态置为 codes.Error.
func SetError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetTraceID 返回 ctx 中的追踪 ID，没有时返回空串.
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
