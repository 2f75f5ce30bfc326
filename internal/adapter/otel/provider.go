// Package otel instruments agegate with OpenTelemetry: provider setup, an
// instrumented SQLite handle, and tracing decorators for the store and
// queue ports.
package otel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config selects where agegate's spans and OTel metrics go.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string // deployment.environment resource attribute
	Exporter       string // "stdout", "otlp" or "none"
	Insecure       bool   // plain HTTP to the OTLP collector
	// SampleRatio is the fraction of root traces kept; child spans follow
	// their parent. Values outside (0, 1) keep every trace.
	SampleRatio float64
}

// ConfigFromEnv reads OTEL_SERVICE_NAME, OTEL_SERVICE_VERSION,
// OTEL_ENVIRONMENT, OTEL_EXPORTER and OTEL_TRACE_SAMPLE_RATIO. OTLP runs
// insecure only in the development environment.
func ConfigFromEnv() Config {
	env := envOrDefault("OTEL_ENVIRONMENT", "development")

	ratio, err := strconv.ParseFloat(envOrDefault("OTEL_TRACE_SAMPLE_RATIO", "1"), 64)
	if err != nil || ratio < 0 || ratio > 1 {
		ratio = 1
	}

	return Config{
		ServiceName:    envOrDefault("OTEL_SERVICE_NAME", "agegate"),
		ServiceVersion: envOrDefault("OTEL_SERVICE_VERSION", "0.1.0"),
		Environment:    env,
		Exporter:       envOrDefault("OTEL_EXPORTER", "stdout"),
		Insecure:       env == "development",
		SampleRatio:    ratio,
	}
}

// Providers exposes the flush-and-close hook of the global providers.
type Providers struct {
	Shutdown func(ctx context.Context) error
}

// Setup installs global tracer and meter providers plus W3C trace-context
// propagation, so enrollment spans started at the HTTP edge continue through
// the store and queue decorators. Call Shutdown before exit to flush.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}

	spans, readings, err := newExporters(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tpOpts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(sampler(cfg.SampleRatio))),
	}
	if spans != nil {
		tpOpts = append(tpOpts, trace.WithBatcher(spans))
	}
	tp := trace.NewTracerProvider(tpOpts...)

	mpOpts := []metric.Option{metric.WithResource(res)}
	if readings != nil {
		mpOpts = append(mpOpts, metric.WithReader(metric.NewPeriodicReader(readings)))
	}
	mp := metric.NewMeterProvider(mpOpts...)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Providers{Shutdown: func(ctx context.Context) error {
		var errs []error
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
		return errors.Join(errs...)
	}}, nil
}

// newExporters returns the span and metric exporters for cfg.Exporter.
// Both are nil for "none": spans are still sampled for context propagation
// but never leave the process.
func newExporters(ctx context.Context, cfg Config) (trace.SpanExporter, metric.Exporter, error) {
	var (
		spans    trace.SpanExporter
		readings metric.Exporter
		err      error
	)

	switch cfg.Exporter {
	case "none":
		return nil, nil, nil
	case "stdout":
		if spans, err = stdouttrace.New(stdouttrace.WithPrettyPrint()); err != nil {
			return nil, nil, fmt.Errorf("creating stdout span exporter: %w", err)
		}
		if readings, err = stdoutmetric.New(); err != nil {
			return nil, nil, fmt.Errorf("creating stdout metric exporter: %w", err)
		}
	case "otlp":
		var traceOpts []otlptracehttp.Option
		var metricOpts []otlpmetrichttp.Option
		if cfg.Insecure {
			traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
			metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
		}
		if spans, err = otlptracehttp.New(ctx, traceOpts...); err != nil {
			return nil, nil, fmt.Errorf("creating otlp span exporter: %w", err)
		}
		if readings, err = otlpmetrichttp.New(ctx, metricOpts...); err != nil {
			return nil, nil, fmt.Errorf("creating otlp metric exporter: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported exporter: %q (use \"stdout\", \"otlp\" or \"none\")", cfg.Exporter)
	}

	return spans, readings, nil
}

func sampler(ratio float64) trace.Sampler {
	if ratio > 0 && ratio < 1 {
		return trace.TraceIDRatioBased(ratio)
	}
	return trace.AlwaysSample()
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
