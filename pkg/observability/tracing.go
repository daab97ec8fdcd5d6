// Package observability wires OpenTelemetry tracing for pipeline phases.
//
// Spans go to the global tracer provider. Until InitTracing installs the
// SDK provider that is the no-op provider, so instrumented code costs
// almost nothing when tracing is off.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName identifies spans created by this module
const instrumentationName = "github.com/ajitpratap0/tabulate"

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	SamplingRate   float64
	// Writer receives the exported spans as JSON; nil means stderr
	Writer io.Writer
}

// InitTracing installs an SDK tracer provider exporting to the configured
// writer. The returned function flushes and shuts the provider down.
func InitTracing(config TracingConfig) (func(context.Context) error, error) {
	w := config.Writer
	if w == nil {
		w = os.Stderr
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create stdout exporter")
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", config.ServiceName),
		attribute.String("service.version", config.ServiceVersion),
	)

	// Configure sampling
	var sampler sdktrace.Sampler
	if config.SamplingRate <= 0 {
		sampler = sdktrace.NeverSample()
	} else if config.SamplingRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns the module tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Span wraps a trace span with typed attribute helpers
type Span struct {
	span trace.Span
}

// StartSpan starts a span named after a pipeline phase
func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	ctx, span := Tracer().Start(ctx, operation)
	return ctx, &Span{span: span}
}

// SetAttribute adds an attribute to the span
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.span.SetAttributes(attr)
}

// End sets the status from err and ends the span
func (s *Span) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		s.span.SetAttributes(errorTypeAttr(errors.TypeOf(err)))
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

func errorTypeAttr(t errors.ErrorType) attribute.KeyValue {
	return attribute.String("error.type", string(t))
}

// Trace runs fn inside a span and ends it with fn's error
func Trace(ctx context.Context, operation string, fn func(ctx context.Context, span *Span) error) error {
	ctx, span := StartSpan(ctx, operation)
	err := fn(ctx, span)
	span.End(err)
	return err
}
