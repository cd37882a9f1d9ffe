package billing

import (
	"context"
	"errors"

	"github.com/genius/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// UsageCounter tracks how many generations a free-tier user has consumed.
type UsageCounter struct {
	repo    Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewUsageCounter creates a new usage counter.
func NewUsageCounter(repo Repository, m *metrics.Metrics, logger *zap.Logger) *UsageCounter {
	return &UsageCounter{repo: repo, metrics: m, logger: logger}
}

// Increment adds one generation to the user's count and returns the new value.
// Concurrent calls for the same user are never lost.
func (u *UsageCounter) Increment(ctx context.Context, userID string) (int, error) {
	count, err := u.repo.IncrementUsage(ctx, userID)
	if err != nil {
		return 0, err
	}
	if u.metrics != nil {
		u.metrics.RecordUsageIncrement()
	}
	u.logger.Debug("usage incremented", zap.String("user_id", userID), zap.Int("count", count))
	return count, nil
}

// CurrentCount returns the user's count, 0 when they have no record.
func (u *UsageCounter) CurrentCount(ctx context.Context, userID string) (int, error) {
	rec, err := u.repo.GetUsage(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUsageNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return rec.Count, nil
}
