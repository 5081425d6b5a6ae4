// Package observe provides the observability primitives shared by every
// glidekey component: OpenTelemetry metrics, tracing helpers, a
// trace-aware logger and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed for
// scraping through a Prometheus registry (see [Setup]). Tests should build
// their own [Metrics] with [NewMetrics] and a manual reader instead of using
// [DefaultMetrics].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/MrWong99/glidekey"

// Gesture outcomes recorded by [Metrics.RecordGesture].
const (
	OutcomeCommitted = "committed"
	OutcomeEmpty     = "empty"
	OutcomeTooShort  = "too_short"
	OutcomeCancelled = "cancelled"
	OutcomeStale     = "stale"
)

// Metrics holds every metric instrument of the application. The
// instruments synchronise themselves.
type Metrics struct {
	// SmoothDuration tracks path smoothing latency.
	SmoothDuration metric.Float64Histogram

	// RecognizeDuration tracks how long the classifier takes to produce
	// glide candidates. Use with attribute:
	//   attribute.Bool("complete", ...)
	RecognizeDuration metric.Float64Histogram

	// SuggestDuration tracks ranked suggestion requests. Use with attribute:
	//   attribute.String("kind", "completion"|"next_word")
	SuggestDuration metric.Float64Histogram

	// StoreDuration tracks learning store operations. Use with attributes:
	//   attribute.String("backend", ...), attribute.String("op", ...)
	StoreDuration metric.Float64Histogram

	// Gestures counts finished gestures by outcome.
	Gestures metric.Int64Counter

	// SuggestRequests counts ranked suggestion requests. Use with attribute:
	//   attribute.String("cache", "hit"|"miss")
	SuggestRequests metric.Int64Counter

	// LearnEvents counts learning events by status.
	LearnEvents metric.Int64Counter

	// ProviderErrors counts provider failures. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// StoreOperations counts learning store calls. Use with attributes:
	//   attribute.String("backend", ...), attribute.String("op", ...),
	//   attribute.String("status", ...)
	StoreOperations metric.Int64Counter

	// ActiveSessions tracks open glide sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds, sized for work that
// has to finish within a display frame.
var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.025, 0.05, 0.1, 0.25,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&met.SmoothDuration, "glidekey.smooth.duration", "Latency of glide path smoothing."},
		{&met.RecognizeDuration, "glidekey.recognize.duration", "Latency of glide word recognition."},
		{&met.SuggestDuration, "glidekey.suggest.duration", "Latency of ranked suggestion requests."},
		{&met.StoreDuration, "glidekey.store.duration", "Latency of learning store operations."},
	}
	for _, h := range histograms {
		inst, err := m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
		if err != nil {
			return nil, err
		}
		*h.dst = inst
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.Gestures, "glidekey.gestures", "Finished glide gestures by outcome."},
		{&met.SuggestRequests, "glidekey.suggest.requests", "Ranked suggestion requests by cache result."},
		{&met.LearnEvents, "glidekey.learn.events", "Learning events by status."},
		{&met.ProviderErrors, "glidekey.provider.errors", "Suggestion provider failures by provider and kind."},
		{&met.StoreOperations, "glidekey.store.operations", "Learning store operations by backend, op and status."},
	}
	for _, c := range counters {
		inst, err := m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.dst = inst
	}

	var err error
	if met.ActiveSessions, err = m.Int64UpDownCounter("glidekey.active_sessions",
		metric.WithDescription("Number of open glide sessions."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("glidekey.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] built on the global
// meter provider. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordGesture counts one finished gesture.
func (m *Metrics) RecordGesture(ctx context.Context, outcome string) {
	m.Gestures.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSuggest records one ranked suggestion request.
func (m *Metrics) RecordSuggest(ctx context.Context, kind string, cacheHit bool, seconds float64) {
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	m.SuggestRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", cache)))
	m.SuggestDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordLearn counts one learning event.
func (m *Metrics) RecordLearn(ctx context.Context, status string) {
	m.LearnEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordProviderError counts one provider failure.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordStoreOp records one learning store call.
func (m *Metrics) RecordStoreOp(ctx context.Context, backend, op string, err error, seconds float64) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("op", op),
			attribute.String("status", status),
		),
	)
	m.StoreDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("op", op),
		),
	)
}
