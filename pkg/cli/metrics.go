package cli

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mchmarny/riskscore/pkg/scoring"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/mchmarny/riskscore"

var pdBuckets = []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}

// serverMetrics owns the meter provider backing /metrics. Each server gets
// its own registry. A nil *serverMetrics records nothing.
type serverMetrics struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler

	requests metric.Int64Counter
	duration metric.Float64Histogram
	scores   metric.Int64Counter
	pd       metric.Float64Histogram
}

func newServerMetrics() (*serverMetrics, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("error creating prometheus exporter: %w", err)
	}

	m := &serverMetrics{
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
		handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	meter := m.provider.Meter(meterName)

	if m.requests, err = meter.Int64Counter("riskscore_http_requests",
		metric.WithDescription("HTTP requests by route and status code")); err != nil {
		return nil, fmt.Errorf("error creating request counter: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("riskscore_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds by route")); err != nil {
		return nil, fmt.Errorf("error creating latency histogram: %w", err)
	}
	if m.scores, err = meter.Int64Counter("riskscore_scores",
		metric.WithDescription("Scored borrowers by risk level")); err != nil {
		return nil, fmt.Errorf("error creating score counter: %w", err)
	}
	if m.pd, err = meter.Float64Histogram("riskscore_pd",
		metric.WithDescription("Distribution of predicted probabilities of default"),
		metric.WithExplicitBucketBoundaries(pdBuckets...)); err != nil {
		return nil, fmt.Errorf("error creating pd histogram: %w", err)
	}

	return m, nil
}

func (m *serverMetrics) recordScore(ctx context.Context, r *scoring.Result) {
	if m == nil {
		return
	}
	m.scores.Add(ctx, 1, metric.WithAttributes(attribute.String("risk_level", r.RiskTier.String())))
	m.pd.Record(ctx, r.PD)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts and times the requests served by next under route.
func (m *serverMetrics) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		ctx := r.Context()
		m.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("route", route),
			attribute.String("code", strconv.Itoa(rec.status)),
		))
		m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("route", route),
		))
	}
}

func (m *serverMetrics) shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
