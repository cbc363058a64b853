package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ServiceVersion is reported on every exported span, metric and profile
const ServiceVersion = "1.0.0"

// Settings configures Start
type Settings struct {
	Enabled           bool // export traces and metrics over OTLP gRPC
	CollectorEndpoint string
	Insecure          bool
	ServiceName       string
	Environment       string
	SamplingRatio     float64
	ExportInterval    time.Duration // default 60s
	Profiling         ProfilerConfig
}

// Providers owns the tracer provider, meter provider and profiler of the
// process. Parts that are disabled stay nil and the global no-op providers
// remain installed.
type Providers struct {
	tracer       *sdktrace.TracerProvider
	meter        *sdkmetric.MeterProvider
	profiler     *Profiler
	spanProfiles bool
	logger       *zap.Logger
}

// Start creates the configured providers and installs them globally. When
// both tracing and profiling run, CPU profiles are labelled with span IDs.
func Start(ctx context.Context, s Settings, logger *zap.Logger) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Providers{logger: logger}

	if s.Enabled {
		if err := p.startExport(ctx, s); err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
	} else {
		logger.Debug("Telemetry export disabled, using no-op providers")
	}

	profiling := s.Profiling
	if profiling.ApplicationName == "" {
		profiling.ApplicationName = s.ServiceName
	}
	profiler, err := NewProfiler(profiling, logger.Named("profiler"))
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	p.profiler = profiler

	if profiler.IsEnabled() && p.tracer != nil {
		otel.SetTracerProvider(otelpyroscope.NewTracerProvider(p.tracer))
		p.spanProfiles = true
		logger.Info("Span profiles enabled")
	}
	return p, nil
}

func (p *Providers) startExport(ctx context.Context, s Settings) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(s.ServiceName),
			semconv.ServiceVersion(ServiceVersion),
			attribute.String("deployment.environment.name", s.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(s.CollectorEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(s.CollectorEndpoint)}
	if s.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	p.tracer = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(s.SamplingRatio)),
	)

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}
	interval := s.ExportInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	p.meter = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
	)

	otel.SetTracerProvider(p.tracer)
	otel.SetMeterProvider(p.meter)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.logger.Info("Telemetry export started",
		zap.String("collector_endpoint", s.CollectorEndpoint),
		zap.String("service_name", s.ServiceName),
		zap.Float64("sampling_ratio", s.SamplingRatio),
		zap.Duration("export_interval", interval),
	)
	return nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1.0:
		return sdktrace.AlwaysSample()
	case ratio <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// TracingEnabled reports whether spans are exported
func (p *Providers) TracingEnabled() bool {
	return p.tracer != nil
}

// MetricsEnabled reports whether metrics are exported
func (p *Providers) MetricsEnabled() bool {
	return p.meter != nil
}

// SpanProfilesEnabled reports whether profiles are labelled with span IDs
func (p *Providers) SpanProfilesEnabled() bool {
	return p.spanProfiles
}

// Shutdown flushes pending metrics and spans, then stops the profiler. It
// returns every error encountered.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.meter != nil {
		if err := p.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	if p.tracer != nil {
		if err := p.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if p.profiler != nil {
		if err := p.profiler.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		p.logger.Warn("Telemetry shutdown incomplete", zap.Error(err))
	}
	return err
}
