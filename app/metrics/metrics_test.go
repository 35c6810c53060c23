package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequest(t *testing.T) {
	m := New()

	done := m.Start()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	done(http.MethodPost, "/api/TextSubmission", http.StatusCreated)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))

	count := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodPost, "/api/TextSubmission", "201"))
	assert.Equal(t, 1.0, count)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Start()(http.MethodGet, "/api/TextSubmission", http.StatusOK)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "textsubmission_http_requests_total")
	assert.Contains(t, w.Body.String(), `route="/api/TextSubmission"`)
}
