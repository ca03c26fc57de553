// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all pipeline collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	FramesAcquired      prometheus.Counter
	AcquisitionFailures prometheus.Counter
	CyclesGated         prometheus.Counter
	RecognitionAttempts prometheus.Counter
	SimilarSkips        prometheus.Counter
	RecognitionFailures prometheus.Counter
	StructuralRejects   prometheus.Counter
	CatalogMisses       prometheus.Counter
	Matches             prometheus.Counter
	EntryChanges        prometheus.Counter
	RecognitionInFlight prometheus.Gauge
	RecognitionLatency  prometheus.Histogram
	BreakerState        prometheus.Gauge
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		FramesAcquired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platescan_frames_acquired_total",
			Help: "Frames acquired from the frame source",
		}),
		AcquisitionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platescan_frame_acquisition_failures_total",
			Help: "Cycles skipped because no frame could be acquired",
		}),
		CyclesGated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platescan_cycles_gated_total",
			Help: "Cycles that displayed a frame without running recognition",
		}),
		RecognitionAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platescan_recognition_attempts_total",
			Help: "Recognition attempts admitted by the throttle",
		}),
		SimilarSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platescan_recognition_similar_skips_total",
			Help: "Admitted attempts skipped because the region matched the last recognized one",
		}),
		RecognitionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platescan_recognition_failures_total",
			Help: "Recognition engine errors",
		}),
		StructuralRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platescan_structural_rejects_total",
			Help: "Recognized texts that did not look like a code",
		}),
		CatalogMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platescan_catalog_misses_total",
			Help: "Well-formed codes with no catalog entry",
		}),
		Matches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platescan_catalog_matches_total",
			Help: "Codes resolved to a catalog entry",
		}),
		EntryChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platescan_entry_changes_total",
			Help: "Times the displayed entry was replaced",
		}),
		RecognitionInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "platescan_recognition_in_flight",
			Help: "1 while a recognition call is outstanding",
		}),
		RecognitionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "platescan_recognition_latency_seconds",
			Help:    "Recognition engine call latency",
			Buckets: []float64{0.025, 0.05, 0.1, 0.2, 0.35, 0.5, 0.75, 1, 2, 5},
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "platescan_recognizer_breaker_state",
			Help: "Recognizer circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
	}

	m.registry.MustRegister(
		m.FramesAcquired, m.AcquisitionFailures, m.CyclesGated,
		m.RecognitionAttempts, m.SimilarSkips, m.RecognitionFailures,
		m.StructuralRejects, m.CatalogMisses, m.Matches, m.EntryChanges,
		m.RecognitionInFlight, m.RecognitionLatency, m.BreakerState,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveRecognition records one engine call duration.
func (m *Metrics) ObserveRecognition(d time.Duration) {
	m.RecognitionLatency.Observe(d.Seconds())
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
