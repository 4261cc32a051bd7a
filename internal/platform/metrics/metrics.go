// Package metrics holds the Prometheus metrics for the residency gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application. Components
// receive the struct and call the typed helpers; nil receivers are tolerated
// so tests can skip metrics wiring.
type Metrics struct {
	UsersCreated        prometheus.Counter
	ApplicationsCreated prometheus.Counter
	DocumentsUploaded   prometheus.Counter
	DocumentsRejected   prometheus.Counter
	MintAttempts        *prometheus.CounterVec
	SweepResolutions    *prometheus.CounterVec
	LedgerCallDuration  prometheus.Histogram
	HTTPDuration        *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers metrics on a caller-supplied registerer. Tests pass a
// fresh registry to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "residency_users_created_total",
			Help: "Total number of users registered.",
		}),
		ApplicationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "residency_applications_created_total",
			Help: "Total number of applications submitted.",
		}),
		DocumentsUploaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "residency_documents_uploaded_total",
			Help: "Total number of documents accepted by ingestion.",
		}),
		DocumentsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "residency_documents_rejected_total",
			Help: "Total number of documents rejected by validation.",
		}),
		MintAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "residency_mint_attempts_total",
			Help: "Mint attempts by terminal outcome.",
		}, []string{"outcome"}),
		SweepResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "residency_sweep_resolutions_total",
			Help: "In-flight mint records resolved by the reconciliation sweep.",
		}, []string{"outcome"}),
		LedgerCallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "residency_ledger_call_duration_seconds",
			Help:    "Latency of external ledger mint calls.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "residency_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) IncUsersCreated() {
	if m == nil {
		return
	}
	m.UsersCreated.Inc()
}

func (m *Metrics) IncApplicationsCreated() {
	if m == nil {
		return
	}
	m.ApplicationsCreated.Inc()
}

func (m *Metrics) IncDocumentsUploaded() {
	if m == nil {
		return
	}
	m.DocumentsUploaded.Inc()
}

func (m *Metrics) IncDocumentsRejected() {
	if m == nil {
		return
	}
	m.DocumentsRejected.Inc()
}

func (m *Metrics) IncMintAttempt(outcome string) {
	if m == nil {
		return
	}
	m.MintAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncSweepResolution(outcome string) {
	if m == nil {
		return
	}
	m.SweepResolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLedgerCall(seconds float64) {
	if m == nil {
		return
	}
	m.LedgerCallDuration.Observe(seconds)
}

func (m *Metrics) ObserveHTTP(route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(route, status).Observe(seconds)
}
