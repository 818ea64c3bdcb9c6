package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue sums every series of the named counter.
func counterValue(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestMetrics_Uploads(t *testing.T) {
	m := New()

	m.UploadAccepted(2048)
	m.UploadAccepted(4096)
	m.UploadRejected()
	m.UploadFailed()

	assert.Equal(t, 4.0, counterValue(t, m, "leasecheck_uploads_total"))
}

func TestMetrics_Intake(t *testing.T) {
	m := New()

	m.IntakeStarted()
	m.IntakeFinished("accepted", "pdf", 20*time.Millisecond)

	assert.Equal(t, 1.0, counterValue(t, m, "leasecheck_intake_jobs_total"))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.UploadAccepted(100)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `leasecheck_uploads_total{outcome="accepted"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.UploadAccepted(1)
		m.UploadRejected()
		m.UploadFailed()
		m.IntakeStarted()
		m.IntakeFinished("accepted", "pdf", time.Second)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
