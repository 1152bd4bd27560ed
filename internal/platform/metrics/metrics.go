package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service. Constructed once in
// main; services treat a nil *Metrics as "metrics disabled" so unit tests
// never touch the default registry.
type Metrics struct {
	CredentialsIssued prometheus.Counter
	Revocations       prometheus.Counter
	AnchorOutcomes    *prometheus.CounterVec
	AnchorQueueDepth  prometheus.Gauge
	Verifications     *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credence_credentials_issued_total",
			Help: "Total number of credentials issued",
		}),
		Revocations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credence_credentials_revoked_total",
			Help: "Total number of credentials revoked",
		}),
		AnchorOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credence_anchor_outcomes_total",
			Help: "Terminal ledger anchoring outcomes by status",
		}, []string{"status"}),
		AnchorQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "credence_anchor_queue_depth",
			Help: "Credentials waiting in the anchor worker inbox",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credence_verifications_total",
			Help: "Verification attempts by outcome",
		}, []string{"outcome"}),
	}
}

// IncrementIssued increments the issued counter by 1.
func (m *Metrics) IncrementIssued() {
	if m != nil {
		m.CredentialsIssued.Inc()
	}
}

// IncrementRevoked increments the revoked counter by 1.
func (m *Metrics) IncrementRevoked() {
	if m != nil {
		m.Revocations.Inc()
	}
}

// ObserveAnchorOutcome records a terminal anchoring outcome.
func (m *Metrics) ObserveAnchorOutcome(status string) {
	if m != nil {
		m.AnchorOutcomes.WithLabelValues(status).Inc()
	}
}

// SetAnchorQueueDepth records the current anchor inbox depth.
func (m *Metrics) SetAnchorQueueDepth(depth int) {
	if m != nil {
		m.AnchorQueueDepth.Set(float64(depth))
	}
}

// ObserveVerification records a verification attempt outcome.
func (m *Metrics) ObserveVerification(outcome string) {
	if m != nil {
		m.Verifications.WithLabelValues(outcome).Inc()
	}
}
