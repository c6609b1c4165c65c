package observability

import (
	"context"
	"errors"
	"flinkrest/pkg/circuitbreaker"
	"flinkrest/pkg/flink"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the monitor's instruments:
// - HTTP: latency, traffic and errors of the monitor's own endpoints
// - Client: latency, traffic and errors of calls to the cluster
// - Cluster: capacity and load read from the cluster overview on scrape
type Metrics struct {
	meter metric.Meter

	// HTTP metrics (Latency, Traffic, Errors)
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsTotal   metric.Int64Counter
	HTTPErrorsTotal     metric.Int64Counter

	// Client metrics (Latency, Traffic, Errors)
	ClientRequestDuration metric.Float64Histogram
	ClientRequestsTotal   metric.Int64Counter
	ClientErrorsTotal     metric.Int64Counter
	TriggerPollsTotal     metric.Int64Counter

	// Cluster metrics (Saturation)
	ClusterTaskManagers   metric.Int64ObservableGauge
	ClusterSlotsTotal     metric.Int64ObservableGauge
	ClusterSlotsAvailable metric.Int64ObservableGauge
	ClusterJobsRunning    metric.Int64ObservableGauge
}

var _ flink.MetricsRecorder = (*Metrics)(nil)

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	m, err := newMetrics(provider.Meter("flinkrest"))
	if err != nil {
		return nil, nil, err
	}
	return m, promhttp.Handler(), nil
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}
	var err error

	// HTTP metrics
	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPErrorsTotal, err = meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, err
	}

	// Client metrics
	m.ClientRequestDuration, err = meter.Float64Histogram(
		"flink_client_request_duration_seconds",
		metric.WithDescription("Cluster REST call latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	m.ClientRequestsTotal, err = meter.Int64Counter(
		"flink_client_requests_total",
		metric.WithDescription("Total number of cluster REST calls"),
	)
	if err != nil {
		return nil, err
	}

	m.ClientErrorsTotal, err = meter.Int64Counter(
		"flink_client_errors_total",
		metric.WithDescription("Total number of failed cluster REST calls (transport failures and 4xx/5xx)"),
	)
	if err != nil {
		return nil, err
	}

	m.TriggerPollsTotal, err = meter.Int64Counter(
		"flink_client_trigger_polls_total",
		metric.WithDescription("Total number of asynchronous operation status polls"),
	)
	if err != nil {
		return nil, err
	}

	// Cluster metrics
	m.ClusterTaskManagers, err = meter.Int64ObservableGauge(
		"flink_cluster_taskmanagers",
		metric.WithDescription("Number of registered task managers"),
	)
	if err != nil {
		return nil, err
	}

	m.ClusterSlotsTotal, err = meter.Int64ObservableGauge(
		"flink_cluster_slots_total",
		metric.WithDescription("Total task slots"),
	)
	if err != nil {
		return nil, err
	}

	m.ClusterSlotsAvailable, err = meter.Int64ObservableGauge(
		"flink_cluster_slots_available",
		metric.WithDescription("Free task slots (saturation)"),
	)
	if err != nil {
		return nil, err
	}

	m.ClusterJobsRunning, err = meter.Int64ObservableGauge(
		"flink_cluster_jobs_running",
		metric.WithDescription("Number of running jobs"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		statusAttr(statusCode),
	)

	m.HTTPRequestDuration.Record(ctx, durationSeconds, attrs)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)

	if statusCode >= 400 {
		m.HTTPErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordRequest records a completed cluster REST call.
func (m *Metrics) RecordRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		statusAttr(statusCode),
	)

	m.ClientRequestDuration.Record(ctx, durationSeconds, attrs)
	m.ClientRequestsTotal.Add(ctx, 1, attrs)

	if statusCode >= 400 {
		m.ClientErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordRequestError records a cluster REST call that got no response.
func (m *Metrics) RecordRequestError(ctx context.Context, method, path string) {
	m.ClientErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		stateAttr("transport"),
	))
}

// RecordTriggerPoll records one status read of an asynchronous operation.
func (m *Metrics) RecordTriggerPoll(ctx context.Context, kind, state string) {
	m.TriggerPollsTotal.Add(ctx, 1, metric.WithAttributes(kindAttr(kind), stateAttr(state)))
}

// ClusterSource supplies the overview read by the cluster gauges.
type ClusterSource interface {
	ClusterSummary(ctx context.Context) (*flink.ClusterOverview, error)
}

// ObserveCluster reads the cluster overview on every collection and reports
// it through the cluster gauges. A failed read reports nothing for that
// collection; after repeated failures reads are skipped until the breaker's
// cooldown passes. Zero fields of breaker use the circuitbreaker defaults.
// The returned function unregisters the callback.
func (m *Metrics) ObserveCluster(name string, source ClusterSource, logger *slog.Logger, breaker circuitbreaker.Config) (func() error, error) {
	return m.observeCluster(name, source, logger, circuitbreaker.New(breaker))
}

func (m *Metrics) observeCluster(name string, source ClusterSource, logger *slog.Logger, breaker *circuitbreaker.Breaker) (func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	attrs := metric.WithAttributes(clusterAttr(name))

	reg, err := m.meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		var overview *flink.ClusterOverview
		err := breaker.Do(func() error {
			var err error
			overview, err = source.ClusterSummary(ctx)
			return err
		})
		switch {
		case errors.Is(err, circuitbreaker.ErrOpen):
			logger.Debug("Skipping cluster overview read", "cluster", name, "failures", breaker.Failures())
			return nil
		case err != nil:
			logger.Warn("Failed to read cluster overview", "cluster", name, "error", err)
			return nil
		}
		o.ObserveInt64(m.ClusterTaskManagers, int64(overview.TaskManagers), attrs)
		o.ObserveInt64(m.ClusterSlotsTotal, int64(overview.SlotsTotal), attrs)
		o.ObserveInt64(m.ClusterSlotsAvailable, int64(overview.SlotsAvailable), attrs)
		o.ObserveInt64(m.ClusterJobsRunning, int64(overview.JobsRunning), attrs)
		return nil
	}, m.ClusterTaskManagers, m.ClusterSlotsTotal, m.ClusterSlotsAvailable, m.ClusterJobsRunning)
	if err != nil {
		return nil, err
	}
	return reg.Unregister, nil
}
