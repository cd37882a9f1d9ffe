package billing

import (
	"context"
	"errors"
)

// DefaultMaxFreeCount is the free-trial allowance.
const DefaultMaxFreeCount = 5

// QuotaGate decides whether a user may start a generation.
type QuotaGate struct {
	repo         Repository
	status       *SubscriptionStatus
	maxFreeCount int
}

// NewQuotaGate creates a quota gate.
func NewQuotaGate(repo Repository, status *SubscriptionStatus, maxFreeCount int) *QuotaGate {
	return &QuotaGate{repo: repo, status: status, maxFreeCount: maxFreeCount}
}

// MaxFreeCount returns the configured free-trial allowance.
func (g *QuotaGate) MaxFreeCount() int {
	return g.maxFreeCount
}

// Check evaluates the gate. Pro users always pass and their usage record
// is not read. Free users pass while they have no usage record or their
// count is below the allowance.
func (g *QuotaGate) Check(ctx context.Context, userID string) (*Decision, error) {
	isPro, err := g.status.IsPro(ctx, userID)
	if err != nil {
		return nil, err
	}
	if isPro {
		return &Decision{Allowed: true, IsPro: true}, nil
	}

	rec, err := g.repo.GetUsage(ctx, userID)
	if err != nil && !errors.Is(err, ErrUsageNotFound) {
		return nil, err
	}

	d := &Decision{}
	if rec == nil {
		d.Allowed = true
		return d, nil
	}

	d.Count = rec.Count
	d.Allowed = rec.Count < g.maxFreeCount
	return d, nil
}

// Allowed reports whether the user may start a generation.
func (g *QuotaGate) Allowed(ctx context.Context, userID string) (bool, error) {
	d, err := g.Check(ctx, userID)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}
