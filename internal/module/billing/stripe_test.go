package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStripeServer(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewStripeGateway(&StripeConfig{
		APIKey:  "sk_test_123",
		PriceID: "price_pro",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestStripeGateway_GetSubscription(t *testing.T) {
	gw := newStripeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/subscriptions/sub_123", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "sub_123",
			"object": "subscription",
			"customer": "cus_456",
			"current_period_end": 1798761600,
			"items": {"object": "list", "data": [{"id": "si_1", "object": "subscription_item", "price": {"id": "price_pro", "object": "price"}}]}
		}`))
	})

	sub, err := gw.GetSubscription(context.Background(), "sub_123")
	require.NoError(t, err)
	assert.Equal(t, "sub_123", sub.ID)
	assert.Equal(t, "cus_456", sub.CustomerID)
	assert.Equal(t, "price_pro", sub.PriceID)
	assert.Equal(t, time.Unix(1798761600, 0).UTC(), sub.CurrentPeriodEnd)
}

func TestStripeGateway_GetSubscriptionError(t *testing.T) {
	gw := newStripeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "No such subscription"}}`))
	})

	_, err := gw.GetSubscription(context.Background(), "sub_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sub_missing")
}

func TestStripeGateway_CreateCheckoutSession(t *testing.T) {
	gw := newStripeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "user_1", r.PostForm.Get("metadata[userId]"))
		assert.Equal(t, "price_pro", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "a@example.com", r.PostForm.Get("customer_email"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "cs_1", "object": "checkout.session", "url": "https://checkout.stripe.test/cs_1"}`))
	})

	url, err := gw.CreateCheckoutSession(context.Background(), &CheckoutRequest{
		UserID:     "user_1",
		Email:      "a@example.com",
		SuccessURL: "https://app.example/settings",
		CancelURL:  "https://app.example/settings",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", url)
}

func TestStripeGateway_CreatePortalSession(t *testing.T) {
	gw := newStripeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/billing_portal/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_456", r.PostForm.Get("customer"))
		assert.Equal(t, "https://app.example/settings", r.PostForm.Get("return_url"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "bps_1", "object": "billing_portal.session", "url": "https://billing.stripe.test/p/1"}`))
	})

	url, err := gw.CreatePortalSession(context.Background(), "cus_456", "https://app.example/settings")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.test/p/1", url)
}
