package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespace(t *testing.T) {
	assert.Equal(t, "hospital_emr", Namespace("hospital-emr"))
	assert.Equal(t, "a_b_c", Namespace("a.b c"))
}

func TestNewCollector_IndependentRegistries(t *testing.T) {
	// Two collectors on separate registries must not collide.
	r1, r2 := prometheus.NewRegistry(), prometheus.NewRegistry()
	c1 := NewCollector(r1, "hospital-emr")
	_ = NewCollector(r2, "hospital-emr")

	c1.PatientsCreatedTotal.Inc()
	c1.PaymentsTotal.WithLabelValues("mpesa").Add(1500)
	assert.Equal(t, float64(1), testutil.ToFloat64(c1.PatientsCreatedTotal))
	assert.Equal(t, float64(1500), testutil.ToFloat64(c1.PaymentsTotal.WithLabelValues("mpesa")))
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, "hospital-emr")
	c.AdmissionsTotal.Inc()

	rec := httptest.NewRecorder()
	MetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "hospital_emr_ward_admissions_total 1"))
}
