package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	loads       *prometheus.CounterVec
	loadLatency *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	points      *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder registered on reg. A nil reg
// uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		cacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diffplot_slice_cache_hits_total",
				Help: "Slice lookups served from the cache",
			},
			[]string{"source"},
		),
		cacheMisses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diffplot_slice_cache_misses_total",
				Help: "Slice lookups that required a load, by reason",
			},
			[]string{"source", "reason"},
		),
		loads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diffplot_slice_loads_total",
				Help: "Slice loads from the archive by result",
			},
			[]string{"source", "result"},
		),
		loadLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "diffplot_slice_load_duration_seconds",
				Help:    "Duration of slice loads from the archive",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diffplot_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "diffplot_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		points: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "diffplot_timeline_points",
				Help:    "Timeline length of served responses",
				Buckets: prometheus.ExponentialBuckets(10, 4, 8),
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCacheHit(source string) {
	r.cacheHits.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordCacheMiss(source, reason string) {
	r.cacheMisses.WithLabelValues(source, reason).Inc()
}

// RecordLoad records one archive read and how long it took.
func (r *Recorder) RecordLoad(source, result string, seconds float64) {
	r.loads.WithLabelValues(source, result).Inc()
	r.loadLatency.WithLabelValues(source).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordPoints(op string, n int) {
	r.points.WithLabelValues(op).Observe(float64(n))
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordCacheHit(string)              {}
func (Nop) RecordCacheMiss(string, string)     {}
func (Nop) RecordLoad(string, string, float64) {}
func (Nop) RecordError(string)                 {}
func (Nop) RecordLatency(string, float64)      {}
func (Nop) RecordPoints(string, int)           {}
