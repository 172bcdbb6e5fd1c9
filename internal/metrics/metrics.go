// ABOUTME: Prometheus metrics for conversions and transcription jobs
// ABOUTME: Implements pipeline.Observer so the processor reports directly
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the whisperprep Prometheus collectors
type Metrics struct {
	Decodes            *prometheus.CounterVec
	DecodeDuration     prometheus.Histogram
	Conversions        *prometheus.CounterVec
	ConversionDuration prometheus.Histogram
	ConvertedSeconds   prometheus.Counter
	QueuedJobs         prometheus.Gauge
	Jobs               *prometheus.CounterVec
}

// New creates all collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Decodes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whisperprep_decodes_total",
			Help: "Decoded tracks by codec and outcome",
		}, []string{"codec", "outcome"}),
		DecodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "whisperprep_decode_duration_seconds",
			Help:    "Time spent decoding one track",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
		Conversions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whisperprep_conversions_total",
			Help: "Conversions to 16 kHz WAV by outcome",
		}, []string{"outcome"}),
		ConversionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "whisperprep_conversion_duration_seconds",
			Help:    "Time spent converting one file",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ConvertedSeconds: factory.NewCounter(prometheus.CounterOpts{
			Name: "whisperprep_converted_audio_seconds_total",
			Help: "Seconds of 16 kHz audio written",
		}),
		QueuedJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "whisperprep_queued_jobs",
			Help: "Transcription jobs waiting for the worker",
		}),
		Jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whisperprep_jobs_total",
			Help: "Finished transcription jobs by state",
		}, []string{"state"}),
	}
}

// ObserveDecode records one decode attempt
func (m *Metrics) ObserveDecode(codec string, elapsed time.Duration, err error) {
	if codec == "" {
		codec = "unknown"
	}
	m.Decodes.WithLabelValues(codec, outcome(err)).Inc()
	m.DecodeDuration.Observe(elapsed.Seconds())
}

// ObserveConversion records one conversion attempt
func (m *Metrics) ObserveConversion(elapsed time.Duration, samples int, err error) {
	m.Conversions.WithLabelValues(outcome(err)).Inc()
	m.ConversionDuration.Observe(elapsed.Seconds())
	if err == nil {
		m.ConvertedSeconds.Add(float64(samples) / 16000)
	}
}

// ObserveJob records a finished job state
func (m *Metrics) ObserveJob(state string) {
	m.Jobs.WithLabelValues(state).Inc()
}

// SetQueued updates the queued jobs gauge
func (m *Metrics) SetQueued(n int) {
	m.QueuedJobs.Set(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
