package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// testSetup creates metrics and tracing infrastructure for middleware tests.
func testSetup(t *testing.T) (*Metrics, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()
	m, reader := newTestMetrics(t)
	return m, reader, useTestTracer(t)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_SetsCorrelationID(t *testing.T) {
	m, _, _ := testSetup(t)

	var seen string
	h := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationID(r.Context())
	}))
	rec := serve(h, httptest.NewRequest("POST", "/v1/suggest", nil))

	if !hexTraceID.MatchString(seen) {
		t.Fatalf("handler saw correlation ID %q", seen)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != seen {
		t.Errorf("X-Correlation-ID = %q, want %q", got, seen)
	}
}

func TestMiddleware_UsesRoutePatternAndRecordsDuration(t *testing.T) {
	m, reader, exp := testSetup(t)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/learn", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	serve(Middleware(m)(mux), httptest.NewRequest("POST", "/v1/learn", nil))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	met := findMetric(rm, "glidekey.http.request.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 {
		t.Fatalf("unexpected histogram data: %+v", met.Data)
	}
	var path string
	for _, kv := range hist.DataPoints[0].Attributes.ToSlice() {
		if kv.Key == "path" {
			path = kv.Value.AsString()
		}
	}
	if path != "POST /v1/learn" {
		t.Errorf("path attribute = %q, want route pattern", path)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	found := false
	for _, a := range spans[0].Attributes {
		if a.Key == "http.response.status_code" && a.Value.AsInt64() == http.StatusNoContent {
			found = true
		}
	}
	if !found {
		t.Error("span missing http.response.status_code=204")
	}
}

func TestMiddleware_PropagatesW3CTraceContext(t *testing.T) {
	m, _, _ := testSetup(t)
	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	var seen string
	h := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationID(r.Context())
	}))
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	rec := serve(h, req)

	if seen != traceID {
		t.Errorf("correlation ID = %q, want %q", seen, traceID)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != traceID {
		t.Errorf("X-Correlation-ID = %q, want %q", got, traceID)
	}
}

func TestStatusRecorder_HijackUnsupported(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	if _, _, err := rec.Hijack(); err == nil {
		t.Error("Hijack on a non-hijackable writer should fail")
	}
	if _, ok := any(rec).(http.Hijacker); !ok {
		t.Error("statusRecorder must implement http.Hijacker")
	}
}
