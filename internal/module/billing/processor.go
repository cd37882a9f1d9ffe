package billing

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/genius/server/internal/shared/errors"
	"go.uber.org/zap"
)

// Processor applies verified billing events to subscription records.
type Processor struct {
	repo   Repository
	source SubscriptionSource
	logger *zap.Logger
}

// NewProcessor creates a new event processor.
func NewProcessor(repo Repository, source SubscriptionSource, logger *zap.Logger) *Processor {
	return &Processor{repo: repo, source: source, logger: logger}
}

// Process dispatches the event to its handler. Returned errors carry the
// HTTP status the webhook should answer with.
func (p *Processor) Process(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case CheckoutCompleted:
		return p.handleCheckoutCompleted(ctx, e)
	case PaymentSucceeded:
		return p.handlePaymentSucceeded(ctx, e)
	case Ignored:
		p.logger.Debug("unhandled webhook event type",
			zap.String("event_id", e.ID),
			zap.String("type", e.Kind),
		)
		return nil
	default:
		return apperrors.Internal("", fmt.Errorf("unknown event variant %T", ev))
	}
}

func (p *Processor) handleCheckoutCompleted(ctx context.Context, e CheckoutCompleted) error {
	if e.UserID == "" {
		return fmt.Errorf("%w: %w", apperrors.InvalidInput("User id is required"), ErrMissingUserID)
	}
	if e.SubscriptionRef == "" {
		return fmt.Errorf("%w: %w", apperrors.InvalidInput("Subscription is required"), ErrMissingSubscriptionRef)
	}

	ext, err := p.source.GetSubscription(ctx, e.SubscriptionRef)
	if err != nil {
		return apperrors.Internal("Webhook Error: subscription lookup failed", err)
	}

	existing, err := p.repo.GetSubscription(ctx, e.UserID)
	switch {
	case err == nil:
		p.logger.Warn("replacing existing subscription",
			zap.String("user_id", e.UserID),
			zap.String("old_subscription_id", existing.StripeSubscriptionID),
			zap.String("new_subscription_id", ext.ID),
		)
	case !errors.Is(err, ErrSubscriptionNotFound):
		return apperrors.Persistence("Webhook Error: failed to load subscription", err)
	}

	sub := &Subscription{
		UserID:                 e.UserID,
		StripeCustomerID:       ext.CustomerID,
		StripeSubscriptionID:   ext.ID,
		StripePriceID:          ext.PriceID,
		StripeCurrentPeriodEnd: ext.CurrentPeriodEnd,
	}
	if err := p.repo.UpsertSubscription(ctx, sub); err != nil {
		return apperrors.Persistence("Webhook Error: failed to save subscription", err)
	}

	p.logger.Info("subscription activated",
		zap.String("event_id", e.ID),
		zap.String("user_id", e.UserID),
		zap.String("subscription_id", ext.ID),
		zap.Time("current_period_end", ext.CurrentPeriodEnd),
	)
	return nil
}

func (p *Processor) handlePaymentSucceeded(ctx context.Context, e PaymentSucceeded) error {
	if e.SubscriptionRef == "" {
		return fmt.Errorf("%w: %w", apperrors.InvalidInput("Subscription is required"), ErrMissingSubscriptionRef)
	}

	ext, err := p.source.GetSubscription(ctx, e.SubscriptionRef)
	if err != nil {
		return apperrors.Internal("Webhook Error: subscription lookup failed", err)
	}

	if err := p.repo.UpdateSubscriptionBilling(ctx, ext.ID, ext.PriceID, ext.CurrentPeriodEnd); err != nil {
		return apperrors.Persistence("Webhook Error: failed to update subscription", err)
	}

	p.logger.Info("subscription renewed",
		zap.String("event_id", e.ID),
		zap.String("subscription_id", ext.ID),
		zap.Time("current_period_end", ext.CurrentPeriodEnd),
	)
	return nil
}
