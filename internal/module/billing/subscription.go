package billing

import (
	"context"
	"errors"
	"time"
)

// DefaultGracePeriod is how long past its period end a subscription stays Pro.
const DefaultGracePeriod = 24 * time.Hour

// SubscriptionStatus decides whether a user currently holds Pro.
type SubscriptionStatus struct {
	repo  Repository
	grace time.Duration
	now   func() time.Time
}

// NewSubscriptionStatus creates a subscription status checker.
// A zero grace falls back to DefaultGracePeriod.
func NewSubscriptionStatus(repo Repository, grace time.Duration) *SubscriptionStatus {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &SubscriptionStatus{repo: repo, grace: grace, now: time.Now}
}

// WithClock replaces the clock used for period comparisons.
func (s *SubscriptionStatus) WithClock(now func() time.Time) *SubscriptionStatus {
	s.now = now
	return s
}

// IsPro reports whether the user has a subscription whose period,
// extended by the grace period, has not ended.
func (s *SubscriptionStatus) IsPro(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	sub, err := s.repo.GetSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return false, nil
		}
		return false, err
	}
	return sub.IsActiveAt(s.now(), s.grace), nil
}
