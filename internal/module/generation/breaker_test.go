package generation

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/genius/server/internal/shared/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWithBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	m := metrics.New("test")
	inner := &fakeProvider{name: edenName, err: newProviderError(edenName, KindOther, "boom", nil)}
	p := WithBreaker(inner, BreakerConfig{FailureThreshold: 3, OpenTimeout: time.Minute}, m, zap.NewNop())

	assert.Equal(t, edenName, p.Name())
	assert.Equal(t, float64(gobreaker.StateClosed), testutil.ToFloat64(m.ProviderBreakerState.WithLabelValues(edenName)))

	for i := 0; i < 3; i++ {
		_, err := p.Generate(context.Background(), "x")
		pe, ok := AsProviderError(err)
		require.True(t, ok)
		assert.Equal(t, "boom", pe.Message)
	}
	assert.Equal(t, 3, inner.callCount())
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(m.ProviderBreakerState.WithLabelValues(edenName)))

	_, err := p.Generate(context.Background(), "x")
	pe, ok := AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, KindOther, pe.Kind)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, inner.callCount())
}

func TestWithBreaker_PassesResults(t *testing.T) {
	inner := &fakeProvider{name: replicateName, result: []byte(`{"audio":"a"}`)}
	p := WithBreaker(inner, BreakerConfig{}, nil, zap.NewNop())

	out, err := p.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"audio":"a"}`, string(out))
}

func TestWithBreaker_QuotaAnswersDoNotTrip(t *testing.T) {
	tests := []struct {
		name   string
		kind   ErrorKind
		status int
	}{
		{"insufficient credits", KindInsufficientCredits, http.StatusPaymentRequired},
		{"rate limited", KindRateLimited, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New("test")
			inner := &fakeProvider{name: edenName, err: newProviderError(edenName, tt.kind, "provider said no", nil)}
			p := WithBreaker(inner, BreakerConfig{FailureThreshold: 5, OpenTimeout: time.Minute}, m, zap.NewNop())

			for i := 0; i < 8; i++ {
				_, err := p.Generate(context.Background(), "x")
				pe, ok := AsProviderError(err)
				require.True(t, ok)
				assert.Equal(t, tt.kind, pe.Kind)
				assert.Equal(t, tt.status, pe.StatusCode())
				assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
			}
			assert.Equal(t, 8, inner.callCount())
			assert.Equal(t, float64(gobreaker.StateClosed), testutil.ToFloat64(m.ProviderBreakerState.WithLabelValues(edenName)))
		})
	}
}

func TestWithBreaker_OpenReportsTrippingKind(t *testing.T) {
	inner := &fakeProvider{name: edenName, err: newProviderError(edenName, KindMisconfigured, "bad key", nil)}
	p := WithBreaker(inner, BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute}, nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, _ = p.Generate(context.Background(), "x")
	}

	_, err := p.Generate(context.Background(), "x")
	pe, ok := AsProviderError(err)
	require.True(t, ok)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, KindMisconfigured, pe.Kind)
	assert.Equal(t, 2, inner.callCount())
}
