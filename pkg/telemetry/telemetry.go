// Package telemetry 初始化 OpenTelemetry 链路追踪
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"regulations/backend/config"
)

// ShutdownFunc 刷新并关闭 TracerProvider
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// Setup 按配置注册全局 TracerProvider
// 未启用或未配置端点时返回空操作，服务中的 span 退化为 no-op
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (ShutdownFunc, error) {
	endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
	if !cfg.Enabled || endpoint == "" {
		logger.Info("链路追踪未启用")
		return noop, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return noop, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
	))
	if err != nil {
		return noop, fmt.Errorf("build otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(SampleRatio(cfg.SampleRatio)))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("链路追踪已启用",
		zap.String("service", cfg.ServiceName),
		zap.String("endpoint", endpoint),
		zap.Float64("sample_ratio", SampleRatio(cfg.SampleRatio)),
	)
	return tp.Shutdown, nil
}

// SampleRatio 将采样率收敛到 [0, 1]
func SampleRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
