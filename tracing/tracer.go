// Package tracing 提供 OpenTelemetry 链路追踪初始化.
//
// 调度器每次执行任务都会创建 "scheduler.fire" span，
// 此包负责构建把这些 span 导出到 OTLP Collector 的 TracerProvider.
package tracing

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Option 追踪器选项.
type Option func(*options)

type options struct {
	exporter sdktrace.SpanExporter
	global   bool
}

// WithExporter 使用指定的导出器替代 OTLP 导出器，导出器同步导出.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) {
		o.exporter = exp
	}
}

// WithoutGlobal 不设置全局 TracerProvider 与传播器.
func WithoutGlobal() Option {
	return func(o *options) {
		o.global = false
	}
}

// NewTracer 创建链路追踪器.
//
// 未启用时返回不导出任何 span 的 TracerProvider.
func NewTracer(cfg *Config, serviceName, serviceVersion string, opts ...Option) (*sdktrace.TracerProvider, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	o := &options{global: true}
	for _, opt := range opts {
		opt(o)
	}

	if !cfg.Enabled {
		return sdktrace.NewTracerProvider(), nil
	}

	if serviceName == "" {
		return nil, ErrEmptyServiceName
	}

	var spanOpt sdktrace.TracerProviderOption
	if o.exporter != nil {
		spanOpt = sdktrace.WithSyncer(o.exporter)
	} else {
		exp, err := newOTLPExporter(cfg.OTLP)
		if err != nil {
			return nil, err
		}
		spanOpt = sdktrace.WithBatcher(exp)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateResource, err)
	}

	tp := sdktrace.NewTracerProvider(
		spanOpt,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(samplingRate(cfg.SamplingRate)))),
	)

	if o.global {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	return tp, nil
}

// MustNewTracer 创建链路追踪器，失败时 panic.
func MustNewTracer(cfg *Config, serviceName, serviceVersion string, opts ...Option) *sdktrace.TracerProvider {
	tp, err := NewTracer(cfg, serviceName, serviceVersion, opts...)
	if err != nil {
		panic(err)
	}
	return tp
}

func newOTLPExporter(cfg *OTLPConfig) (sdktrace.SpanExporter, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, ErrEmptyEndpoint
	}

	endpoint, secure := stripScheme(cfg.Endpoint)
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if !secure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}

	exp, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateExporter, err)
	}
	return exp, nil
}

// stripScheme 去掉协议前缀，只有 https:// 视为安全连接.
func stripScheme(endpoint string) (string, bool) {
	if after, ok := strings.CutPrefix(endpoint, "https://"); ok {
		return after, true
	}
	return strings.TrimPrefix(endpoint, "http://"), false
}

func samplingRate(rate float64) float64 {
	if rate <= 0 || rate > 1 {
		return 1.0
	}
	return rate
}
