package billing

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// ServiceConfig holds billing service settings.
type ServiceConfig struct {
	AppURL string
}

// Service composes the quota gate, usage counter and subscription status
// behind the operations used by handlers and the generation module.
type Service struct {
	repo    Repository
	usage   *UsageCounter
	status  *SubscriptionStatus
	gate    *QuotaGate
	gateway Gateway
	appURL  string
	logger  *zap.Logger
}

// NewService creates a new billing service.
func NewService(
	repo Repository,
	usage *UsageCounter,
	status *SubscriptionStatus,
	gate *QuotaGate,
	gateway Gateway,
	cfg ServiceConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:    repo,
		usage:   usage,
		status:  status,
		gate:    gate,
		gateway: gateway,
		appURL:  strings.TrimRight(cfg.AppURL, "/"),
		logger:  logger,
	}
}

// Check evaluates the quota gate for the user.
func (s *Service) Check(ctx context.Context, userID string) (*Decision, error) {
	return s.gate.Check(ctx, userID)
}

// Allowed reports whether the user may start a generation.
func (s *Service) Allowed(ctx context.Context, userID string) (bool, error) {
	return s.gate.Allowed(ctx, userID)
}

// IsPro reports whether the user currently holds Pro.
func (s *Service) IsPro(ctx context.Context, userID string) (bool, error) {
	return s.status.IsPro(ctx, userID)
}

// Increment records one chargeable generation for the user.
func (s *Service) Increment(ctx context.Context, userID string) (int, error) {
	return s.usage.Increment(ctx, userID)
}

// Limit returns the free-tier status shown to the user.
func (s *Service) Limit(ctx context.Context, userID string) (*LimitStatus, error) {
	count, err := s.usage.CurrentCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	isPro, err := s.status.IsPro(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &LimitStatus{
		Count:        count,
		MaxFreeCount: s.gate.MaxFreeCount(),
		IsPro:        isPro,
	}, nil
}

// BillingURL returns where the user should go to manage billing: the
// portal for subscribers with a customer, a new checkout otherwise.
func (s *Service) BillingURL(ctx context.Context, userID, email string) (string, error) {
	returnURL := s.appURL + "/settings"

	sub, err := s.repo.GetSubscription(ctx, userID)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return "", err
	}
	if sub != nil && sub.StripeCustomerID != "" {
		return s.gateway.CreatePortalSession(ctx, sub.StripeCustomerID, returnURL)
	}

	return s.gateway.CreateCheckoutSession(ctx, &CheckoutRequest{
		UserID:     userID,
		Email:      email,
		SuccessURL: returnURL,
		CancelURL:  returnURL,
	})
}
