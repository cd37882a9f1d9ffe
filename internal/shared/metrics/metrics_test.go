package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	m1 := New("test")
	m2 := New("test")
	assert.NotSame(t, m1.Registry(), m2.Registry())
}

func TestRecordHTTPRequest(t *testing.T) {
	m := New("test")

	m.RecordHTTPRequest("POST", "/api/music", 200, 50*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/music", 403, 10*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/music", 201, 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/music", "2xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/music", "4xx")))
}

func TestRecordGenerationAndBilling(t *testing.T) {
	m := New("test")

	m.RecordGeneration("replicate", "success")
	m.RecordGeneration("replicate", "success")
	m.RecordGeneration("edenai", "quota_exceeded")
	m.RecordBillingEvent("checkout.session.completed", "processed")
	m.RecordUsageIncrement()
	m.SetBreakerState("edenai", 2)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.GenerationRequestsTotal.WithLabelValues("replicate", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GenerationRequestsTotal.WithLabelValues("edenai", "quota_exceeded")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BillingEventsTotal.WithLabelValues("checkout.session.completed", "processed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.UsageIncrements))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ProviderBreakerState.WithLabelValues("edenai")))
}

func TestHandler(t *testing.T) {
	m := New("test")
	m.RecordUsageIncrement()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_billing_usage_increments_total 1")
}

func TestStatusCodeToString(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{200, "2xx"},
		{302, "3xx"},
		{402, "4xx"},
		{429, "4xx"},
		{500, "5xx"},
		{100, "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, statusCodeToString(tt.code))
	}
}
