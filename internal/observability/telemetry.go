// Package observability configures OpenTelemetry tracing for feedcache and
// provides span helpers shared by the engine and the HTTP daemon.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds telemetry configuration
type Config struct {
	Enabled     bool
	Exporter    string  // otlp-http (default) or none
	Endpoint    string  // host:port of the OTLP HTTP receiver
	ServiceName string  // defaults to feedcache
	SampleRate  float64 // 0.0 to 1.0
}

var (
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer = noop.NewTracerProvider().Tracer("")
)

// Init installs the global tracer. With tracing disabled every span is a
// noop. Exporter "none" samples and records spans without shipping them,
// which keeps trace ids in logs.
func Init(ctx context.Context, cfg Config) error {
	if !cfg.Enabled {
		reset()
		return nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "feedcache"
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sampler(cfg.SampleRate))}
	switch cfg.Exporter {
	case "otlp-http", "otlp", "":
		exp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("create OTLP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	case "none":
	default:
		return fmt.Errorf("unknown exporter: %s", cfg.Exporter)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	opts = append(opts, sdktrace.WithResource(res))

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	provider, tracer = tp, tp.Tracer(cfg.ServiceName)
	return nil
}

func sampler(rate float64) sdktrace.Sampler {
	if rate >= 0 && rate < 1 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
	return sdktrace.AlwaysSample()
}

func reset() {
	provider = nil
	tracer = noop.NewTracerProvider().Tracer("")
}

// Shutdown flushes pending spans and reverts to the noop tracer.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := provider.Shutdown(ctx)
	reset()
	return err
}

// Tracer returns the global tracer
func Tracer() trace.Tracer {
	return tracer
}

// Enabled reports whether Init installed a real tracer provider.
func Enabled() bool {
	return provider != nil
}
