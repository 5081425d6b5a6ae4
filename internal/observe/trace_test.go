package observe

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/MrWong99/glidekey/pkg/types"
)

// useTestTracer installs an in-memory tracer provider as the global provider
// for the duration of the test.
func useTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

// captureLogs redirects the default logger into a buffer.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })
	return &buf
}

var hexTraceID = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestCorrelationID(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}

	exp := useTestTracer(t)
	ctx, span := StartSpan(context.Background(), "glide.complete")
	cid := CorrelationID(ctx)
	span.End()

	if !hexTraceID.MatchString(cid) {
		t.Errorf("CorrelationID = %q, want 32 hex characters", cid)
	}
	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "glide.complete" {
		t.Errorf("recorded spans = %v, want one glide.complete span", spans)
	}
}

func TestLogger(t *testing.T) {
	useTestTracer(t)
	buf := captureLogs(t)

	Logger(context.Background()).Info("no span")
	if bytes.Contains(buf.Bytes(), []byte("trace_id")) {
		t.Errorf("log without span contains trace_id: %s", buf)
	}

	buf.Reset()
	ctx, span := StartSpan(context.Background(), "with-span")
	defer span.End()
	Logger(ctx).Info("with span")
	for _, key := range []string{"trace_id=", "span_id="} {
		if !bytes.Contains(buf.Bytes(), []byte(key)) {
			t.Errorf("log output missing %s: %s", key, buf)
		}
	}
}

func TestStartSuggestSpan(t *testing.T) {
	exp := useTestTracer(t)

	_, span := StartSuggestSpan(context.Background(), "completion",
		types.SuggestionContext{CurrentInput: "héllo"})
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "suggest" {
		t.Fatalf("recorded spans = %v, want one suggest span", spans)
	}
	want := map[attribute.Key]attribute.Value{
		"suggest.kind":        attribute.StringValue("completion"),
		"suggest.after_space": attribute.BoolValue(false),
		"suggest.input_len":   attribute.IntValue(5),
	}
	for _, kv := range spans[0].Attributes {
		if w, ok := want[kv.Key]; ok {
			if kv.Value != w {
				t.Errorf("%s = %v, want %v", kv.Key, kv.Value.Emit(), w.Emit())
			}
			delete(want, kv.Key)
		}
	}
	for k := range want {
		t.Errorf("missing attribute %s", k)
	}
}
