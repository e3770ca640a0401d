// internal/metrics/metrics.go

package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for aggregation runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	sourceLatency     *prometheus.HistogramVec
	sourceErrors      *prometheus.CounterVec
	aggregateDuration prometheus.Histogram
	topics            prometheus.Gauge
	snapshots         *prometheus.CounterVec
}

// Option customizes metric construction
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	buckets    []float64
}

// WithRegisterer overrides the default Prometheus registerer
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

// WithLatencyBuckets overrides the latency histogram buckets (ms)
func WithLatencyBuckets(buckets []float64) Option {
	return func(o *options) {
		o.buckets = buckets
	}
}

// New constructs and registers the collectors
func New(opts ...Option) *Metrics {
	o := options{
		registerer: prometheus.DefaultRegisterer,
		buckets:    []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Metrics{
		sourceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trendwise_source_latency_ms",
			Help:    "Latency in milliseconds of each collector call.",
			Buckets: o.buckets,
		}, []string{"source"}),
		sourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendwise_source_errors_total",
			Help: "Collector calls that returned an error.",
		}, []string{"source"}),
		aggregateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trendwise_aggregate_duration_ms",
			Help:    "Wall time of a full aggregation run in milliseconds.",
			Buckets: o.buckets,
		}),
		topics: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trendwise_topics",
			Help: "Number of merged topics produced by the last aggregation.",
		}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendwise_watcher_runs_total",
			Help: "Scheduled watcher runs by outcome.",
		}, []string{"outcome"}),
	}

	m.sourceLatency = register(o.registerer, m.sourceLatency)
	m.sourceErrors = register(o.registerer, m.sourceErrors)
	m.aggregateDuration = register(o.registerer, m.aggregateDuration)
	m.topics = register(o.registerer, m.topics)
	m.snapshots = register(o.registerer, m.snapshots)
	return m
}

// ObserveSource records the latency and error status of one collector call
func (m *Metrics) ObserveSource(source string, latency time.Duration, err error) {
	if m == nil {
		return
	}
	m.sourceLatency.WithLabelValues(source).Observe(millis(latency))
	if err != nil {
		m.sourceErrors.WithLabelValues(source).Inc()
	}
}

// ObserveAggregate records a finished aggregation run
func (m *Metrics) ObserveAggregate(latency time.Duration, topics int) {
	if m == nil {
		return
	}
	m.aggregateDuration.Observe(millis(latency))
	m.topics.Set(float64(topics))
}

// IncWatcherRun counts a scheduled run with the given outcome label
func (m *Metrics) IncWatcherRun(outcome string) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(outcome).Inc()
}

func millis(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

// register returns the already registered collector when an identical one exists
func register[T prometheus.Collector](r prometheus.Registerer, c T) T {
	if r == nil {
		return c
	}
	if err := r.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
			return c
		}
		panic(err)
	}
	return c
}
