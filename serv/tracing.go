package serv

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the handler-level tracer used for spans finer-grained than
// otelhttp's per-request span, e.g. separating compile time from execution
// time within queryHandler.
var tracer = otel.Tracer("github.com/gooofy/quadstore/serv")

// initTracing installs a process-wide, always-sampling TracerProvider in
// place of the no-op default, so otelhttp's request spans (wired around the
// query and mirror handlers) and startSpan's child spans are recorded. No
// exporter or span processor is registered, so spans are not sent anywhere.
func initTracing() func(context.Context) error {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// startSpan is a thin wrapper so handlers don't need to import both otel
// and otel/trace just to name a child span.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}
