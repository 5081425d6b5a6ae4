package observe

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/glidekey/pkg/types"
)

const tracerName = "github.com/MrWong99/glidekey"

// Tracer is the tracer every glidekey span is started on. It resolves the
// global provider on each call, so spans follow whatever [Setup] installed.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan opens a child of the span in ctx. End the returned span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// StartSuggestSpan opens a "suggest" span for one ranking request. The typed
// text is recorded by length only.
func StartSuggestSpan(ctx context.Context, kind string, sc types.SuggestionContext) (context.Context, trace.Span) {
	return StartSpan(ctx, "suggest", trace.WithAttributes(
		attribute.String("suggest.kind", kind),
		attribute.Bool("suggest.after_space", sc.IsAfterSpace),
		attribute.Int("suggest.input_len", utf8.RuneCountInString(sc.CurrentInput)),
	))
}

// CorrelationID is the hex trace ID of ctx's span. The HTTP middleware echoes
// it as X-Correlation-ID. Empty without a span.
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger is slog.Default with trace_id and span_id attached when ctx is
// inside a span, so request and glide-session logs join their traces.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
