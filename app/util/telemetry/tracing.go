package telemetry

import (
	"context"

	"adsplice/app/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing is the span helper the services use around their operations.
type Tracing struct {
	cfg    *config.Config
	tracer trace.Tracer
}

func NewTracing(cfg *config.Config, tracer trace.Tracer) *Tracing {
	return &Tracing{
		cfg:    cfg,
		tracer: tracer,
	}
}

func (t *Tracing) StartServiceSpan(ctx context.Context, service string, operation string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, service+"."+operation,
		trace.WithAttributes(
			attribute.String("service.component", service),
		),
	)
}

// Error records err on the span and passes it through unchanged.
func (t *Tracing) Error(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}

func (t *Tracing) Success(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
