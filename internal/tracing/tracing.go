// Package tracing wires --jaeger-collector-url (§6.1) to an OTLP/gRPC
// span exporter. Init returns a no-op tracer when the flag is empty so
// every caller gets a real trace.Tracer regardless of whether tracing
// is enabled.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Shutdown flushes and closes the tracer provider built by Init.
type Shutdown func(context.Context) error

// Init builds the tracer used to annotate inbound RPC handling. With
// an empty collectorURL it returns a TracerProvider with no exporter
// registered, so StartSpan calls are cheap no-ops.
func Init(ctx context.Context, collectorURL string) (trace.Tracer, Shutdown, error) {
	if collectorURL == "" {
		tp := sdktrace.NewTracerProvider()
		return tp.Tracer("evm-bridge"), tp.Shutdown, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(collectorURL),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	return tp.Tracer("evm-bridge"), tp.Shutdown, nil
}

// StartSpan starts a span named name under ctx and returns the
// updated context plus a func to end it, recording err if non-nil.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string) (context.Context, func(error)) {
	spanCtx, span := tracer.Start(ctx, name)
	return spanCtx, func(err error) {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}
