package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los colectores del servicio. Cada instancia usa su propio registry
// para que tests y routers paralelos no choquen con registros duplicados.
type Metrics struct {
	registry *prometheus.Registry

	Operations          *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	AuditAppendFailures prometheus.Counter
	AuditConfirmed      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "caregiver_access_operations_total",
			Help: "Access-control operations by name and outcome kind",
		}, []string{"op", "outcome"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caregiver_access_operation_seconds",
			Help:    "Latency of access-control operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		AuditAppendFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "caregiver_access_audit_append_failures_total",
			Help: "Audit entries that could not be appended after a state change",
		}),
		AuditConfirmed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "caregiver_access_audit_confirmations_total",
			Help: "Audit entries leaving the pending status, by final status",
		}, []string{"status"}),
	}
}

// Observe registra resultado y latencia de una operación. outcome vacío = "ok".
func (m *Metrics) Observe(op, outcome string, started time.Time) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func (m *Metrics) IncAuditAppendFailure() {
	if m == nil {
		return
	}
	m.AuditAppendFailures.Inc()
}

func (m *Metrics) IncAuditStatus(status string) {
	if m == nil {
		return
	}
	m.AuditConfirmed.WithLabelValues(status).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
