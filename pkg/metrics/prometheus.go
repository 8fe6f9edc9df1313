package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	samplesTotal *prometheus.CounterVec
	stepsTotal   *prometheus.CounterVec
	fusionModes  *prometheus.CounterVec
	batteryModes *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		samplesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepfuse_samples_total",
				Help: "Total number of accelerometer samples ingested",
			},
			[]string{"source"},
		),
		stepsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepfuse_steps_total",
				Help: "Total step events recorded per detection source",
			},
			[]string{"source"},
		),
		fusionModes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepfuse_fusion_mode_selections_total",
				Help: "Fusion mode selections per recomputation",
			},
			[]string{"mode"},
		),
		batteryModes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepfuse_battery_mode_changes_total",
				Help: "Battery mode transitions",
			},
			[]string{"mode"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepfuse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stepfuse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSample records one ingested accelerometer sample.
func (r *Recorder) RecordSample(source string) {
	r.samplesTotal.WithLabelValues(source).Inc()
}

// RecordStep records one step event for a detection source.
func (r *Recorder) RecordStep(source string) {
	r.stepsTotal.WithLabelValues(source).Inc()
}

// RecordFusionMode records the mode picked by a fusion recomputation.
func (r *Recorder) RecordFusionMode(mode string) {
	r.fusionModes.WithLabelValues(mode).Inc()
}

// RecordBatteryMode records a battery mode transition.
func (r *Recorder) RecordBatteryMode(mode string) {
	r.batteryModes.WithLabelValues(mode).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
