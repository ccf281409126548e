package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve_CountsByOutcome(t *testing.T) {
	m := New()
	m.Observe("respond", "", time.Now())
	m.Observe("respond", "conflict", time.Now())
	m.Observe("respond", "conflict", time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("respond", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("respond", "conflict")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Observe("x", "", time.Now())
	m.IncAuditAppendFailure()
	m.IncAuditStatus("confirmed")
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := New()
	m.IncAuditAppendFailure()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "caregiver_access_audit_append_failures_total 1")
}
