package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/genius/server/internal/shared/httpclient"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// ExternalSubscription is the subset of a Stripe subscription this service stores.
type ExternalSubscription struct {
	ID               string
	CustomerID       string
	PriceID          string
	CurrentPeriodEnd time.Time
}

// CheckoutRequest describes a subscription checkout for one user.
type CheckoutRequest struct {
	UserID     string
	Email      string
	SuccessURL string
	CancelURL  string
}

// SubscriptionSource fetches subscription details from the billing provider.
type SubscriptionSource interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*ExternalSubscription, error)
}

// Gateway is the billing provider surface used by this module.
type Gateway interface {
	SubscriptionSource
	CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// StripeConfig holds Stripe gateway configuration.
type StripeConfig struct {
	APIKey  string
	PriceID string
	// BaseURL overrides the Stripe API endpoint. Empty uses api.stripe.com.
	BaseURL string
	Timeout time.Duration
}

// StripeGateway implements Gateway on the Stripe API.
type StripeGateway struct {
	api     *client.API
	priceID string
}

// NewStripeGateway creates a gateway with its own client and backend.
func NewStripeGateway(cfg *StripeConfig, logger *zap.Logger) *StripeGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:      httpclient.New(httpclient.Config{Timeout: timeout}),
		LeveledLogger:   logger.Named("stripe").Sugar(),
		EnableTelemetry: stripe.Bool(false),
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	api := &client.API{}
	api.Init(cfg.APIKey, backends)

	return &StripeGateway{api: api, priceID: cfg.PriceID}
}

// GetSubscription retrieves a subscription by id.
func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*ExternalSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve subscription %s: %w", subscriptionID, err)
	}
	return mapStripeSubscription(sub), nil
}

// CreateCheckoutSession starts a subscription checkout and returns its URL.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:               stripe.String(req.SuccessURL),
		CancelURL:                stripe.String(req.CancelURL),
		BillingAddressCollection: stripe.String("auto"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(g.priceID), Quantity: stripe.Int64(1)},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.AddMetadata(metadataUserID, req.UserID)
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.URL, nil
}

// CreatePortalSession opens the billing portal for an existing customer.
func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return s.URL, nil
}

func mapStripeSubscription(sub *stripe.Subscription) *ExternalSubscription {
	out := &ExternalSubscription{
		ID:               sub.ID,
		CurrentPeriodEnd: time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
	}
	return out
}
