package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stock_dashboard"

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Indicator pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	SignalsTotal      *prometheus.CounterVec
	ForecastsTotal    *prometheus.CounterVec

	// Market data metrics
	MarketDataRequestsTotal *prometheus.CounterVec
	MarketDataErrorsTotal   *prometheus.CounterVec
	MarketDataDuration      *prometheus.HistogramVec
	DegradedSnapshotsTotal  *prometheus.CounterVec

	// Store metrics
	MirrorWritesTotal *prometheus.CounterVec
	DBQueryDuration   *prometheus.HistogramVec

	// Trading and account metrics
	TradesTotal       *prometheus.CounterVec
	AuthAttemptsTotal *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge

	// Background job metrics
	ScreenerDuration  prometheus.Histogram
	PulseRefreshTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// pipelineBuckets are finer buckets for the in-process indicator computation
var pipelineBuckets = []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		PipelineRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Total number of indicator pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		PipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "duration_seconds",
				Help:      "Duration of indicator pipeline runs in seconds",
				Buckets:   pipelineBuckets,
			},
			[]string{"outcome"},
		),
		SignalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "signals_total",
				Help:      "Total number of trading signals by label",
			},
			[]string{"label"},
		),
		ForecastsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "forecasts_total",
				Help:      "Total number of forecasts served by kind",
			},
			[]string{"kind"},
		),

		MarketDataRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "market_data",
				Name:      "requests_total",
				Help:      "Total number of market data provider requests",
			},
			[]string{"provider", "operation"},
		),
		MarketDataErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "market_data",
				Name:      "errors_total",
				Help:      "Total number of market data provider errors",
			},
			[]string{"provider", "operation", "error_type"},
		),
		MarketDataDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "market_data",
				Name:      "duration_seconds",
				Help:      "Duration of market data provider calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"provider", "operation"},
		),
		DegradedSnapshotsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "market_data",
				Name:      "degraded_snapshots_total",
				Help:      "Total number of default snapshots served after an upstream failure",
			},
			[]string{"operation"},
		),

		MirrorWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "mirror_writes_total",
				Help:      "Total number of best-effort mirror writes",
			},
			[]string{"backend", "entity", "status"},
		),
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "query_duration_seconds",
				Help:      "Duration of mirror database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"backend", "table"},
		),

		TradesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "portfolio",
				Name:      "trades_total",
				Help:      "Total number of trade requests by side and status",
			},
			[]string{"side", "status"},
		),
		AuthAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "attempts_total",
				Help:      "Total number of signup and login attempts",
			},
			[]string{"action", "status"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "active_sessions",
				Help:      "Number of sessions created minus sessions ended in this process",
			},
		),

		ScreenerDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "screener",
				Name:      "duration_seconds",
				Help:      "Duration of weekly outlook screener runs in seconds",
				Buckets:   defaultBuckets,
			},
		),
		PulseRefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "market_pulse",
				Name:      "refresh_total",
				Help:      "Total number of market pulse refreshes by status",
			},
			[]string{"status"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// RecordPipelineRun records one indicator pipeline run
func (m *Metrics) RecordPipelineRun(outcome string, duration time.Duration) {
	m.PipelineRunsTotal.WithLabelValues(outcome).Inc()
	m.PipelineDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) RecordSignal(label string) {
	m.SignalsTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) RecordForecast(kind string) {
	m.ForecastsTotal.WithLabelValues(kind).Inc()
}

// RecordMarketDataRequest records a provider call and its duration
func (m *Metrics) RecordMarketDataRequest(provider, operation string, duration time.Duration) {
	m.MarketDataRequestsTotal.WithLabelValues(provider, operation).Inc()
	m.MarketDataDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordMarketDataError(provider, operation, errorType string) {
	m.MarketDataErrorsTotal.WithLabelValues(provider, operation, errorType).Inc()
}

func (m *Metrics) RecordDegradedSnapshot(operation string) {
	m.DegradedSnapshotsTotal.WithLabelValues(operation).Inc()
}

// RecordMirrorWrite records a best-effort mirror write
func (m *Metrics) RecordMirrorWrite(backend, entity, status string) {
	m.MirrorWritesTotal.WithLabelValues(backend, entity, status).Inc()
}

func (m *Metrics) RecordDBQuery(backend, table string, duration time.Duration) {
	m.DBQueryDuration.WithLabelValues(backend, table).Observe(duration.Seconds())
}

func (m *Metrics) RecordTrade(side, status string) {
	m.TradesTotal.WithLabelValues(side, status).Inc()
}

func (m *Metrics) RecordAuthAttempt(action, status string) {
	m.AuthAttemptsTotal.WithLabelValues(action, status).Inc()
}

func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionEnded() {
	m.ActiveSessions.Dec()
}

func (m *Metrics) RecordPulseRefresh(status string) {
	m.PulseRefreshTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObservePipeline records the pipeline run with its outcome
func (t *Timer) ObservePipeline(outcome string) {
	t.metrics.RecordPipelineRun(outcome, time.Since(t.start))
}

// ObserveMarketData records the provider call duration
func (t *Timer) ObserveMarketData(provider, operation string) {
	t.metrics.RecordMarketDataRequest(provider, operation, time.Since(t.start))
}

// ObserveDB records the mirror query duration
func (t *Timer) ObserveDB(backend, table string) {
	t.metrics.RecordDBQuery(backend, table, time.Since(t.start))
}

// ObserveScreener records a screener run
func (t *Timer) ObserveScreener() {
	t.metrics.ScreenerDuration.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
