// Package metrics holds the Prometheus collectors for lease uploads and
// intake jobs. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "leasecheck"

// Upload outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics is the set of collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	uploadsTotal   *prometheus.CounterVec
	uploadBytes    prometheus.Histogram
	intakeTotal    *prometheus.CounterVec
	intakeDuration prometheus.Histogram
	intakeActive   prometheus.Gauge
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "uploads_total",
			Help:      "Lease upload requests by outcome",
		}, []string{"outcome"}),
		uploadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "upload_size_bytes",
			Help:      "Size of accepted lease documents",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 4, 6),
		}),
		intakeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "intake_jobs_total",
			Help:      "Finished intake jobs by status and document type",
		}, []string{"status", "document_type"}),
		intakeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "intake_duration_seconds",
			Help:      "Time from job start to completion",
			Buckets:   prometheus.DefBuckets,
		}),
		intakeActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "intake_jobs_active",
			Help:      "Intake jobs currently running",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// UploadAccepted counts a stored upload of size bytes.
func (m *Metrics) UploadAccepted(size int64) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(OutcomeAccepted).Inc()
	m.uploadBytes.Observe(float64(size))
}

// UploadRejected counts an upload refused by validation or CSRF.
func (m *Metrics) UploadRejected() {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(OutcomeRejected).Inc()
}

// UploadFailed counts an upload that hit a server error.
func (m *Metrics) UploadFailed() {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(OutcomeError).Inc()
}

// IntakeStarted marks a job as running.
func (m *Metrics) IntakeStarted() {
	if m == nil {
		return
	}
	m.intakeActive.Inc()
}

// IntakeFinished records a finished job.
func (m *Metrics) IntakeFinished(status, documentType string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.intakeActive.Dec()
	m.intakeTotal.WithLabelValues(status, documentType).Inc()
	m.intakeDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
