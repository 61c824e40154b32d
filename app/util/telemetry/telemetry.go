package telemetry

import (
	"context"
	"time"

	"adsplice/app/config"

	"github.com/getsentry/sentry-go"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Telemetry struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter

	shutdownFuncs []func(context.Context) error
}

func InitSentry(cfg *config.Config) error {
	if cfg.Sentry.DSN == "" {
		return nil
	}

	if err := sentry.Init(sentry.ClientOptions{ //nolint:exhaustruct
		Dsn:              cfg.Sentry.DSN,
		EnableTracing:    false,
		AttachStacktrace: true,
	}); err != nil {
		return oops.Errorf("sentry.Init: %w", err)
	}

	return nil
}

// Init builds the OTel providers. With telemetry disabled everything is a
// no-op and Shutdown does nothing.
func Init(cfg *config.Config) (*Telemetry, error) {
	if !cfg.Telemetry.Enabled {
		tracerProvider := noop.NewTracerProvider()
		meterProvider := sdkmetric.NewMeterProvider()

		return &Telemetry{
			TracerProvider: tracerProvider,
			MeterProvider:  meterProvider,
			Tracer:         tracerProvider.Tracer(cfg.ServiceName),
			Meter:          meterProvider.Meter(cfg.ServiceName),
			shutdownFuncs:  nil,
		}, nil
	}

	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, oops.Errorf("resource.New: %w", err)
	}

	traceExporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, oops.Errorf("otlptracehttp.New: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	metricExporter, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, oops.Errorf("otlpmetrichttp.New: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(30*time.Second),
		)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	return &Telemetry{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		Tracer:         tracerProvider.Tracer(cfg.ServiceName),
		Meter:          meterProvider.Meter(cfg.ServiceName),
		shutdownFuncs: []func(context.Context) error{
			tracerProvider.Shutdown,
			meterProvider.Shutdown,
		},
	}, nil
}

func (t *Telemetry) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for _, fn := range t.shutdownFuncs {
		_ = fn(ctx)
	}
}
