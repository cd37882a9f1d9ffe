package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for billing data access.
type Repository interface {
	// Usage operations
	GetUsage(ctx context.Context, userID string) (*UsageRecord, error)
	IncrementUsage(ctx context.Context, userID string) (int, error)

	// Subscription operations
	GetSubscription(ctx context.Context, userID string) (*Subscription, error)
	GetSubscriptionByStripeID(ctx context.Context, stripeSubID string) (*Subscription, error)
	UpsertSubscription(ctx context.Context, sub *Subscription) error
	UpdateSubscriptionBilling(ctx context.Context, stripeSubID, priceID string, periodEnd time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new billing repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// --- Usage Operations ---

func (r *repository) GetUsage(ctx context.Context, userID string) (*UsageRecord, error) {
	var rec UsageRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUsageNotFound
		}
		return nil, fmt.Errorf("get usage: %w", err)
	}
	return &rec, nil
}

// IncrementUsage adds one to the user's counter in a single statement,
// creating the row at 1 when it does not exist.
func (r *repository) IncrementUsage(ctx context.Context, userID string) (int, error) {
	now := time.Now()
	rec := &UsageRecord{UserID: userID, Count: 1, CreatedAt: now, UpdatedAt: now}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("user_api_limits.count + 1"),
			"updated_at": now,
		}),
	}).Create(rec).Error
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}

	current, err := r.GetUsage(ctx, userID)
	if err != nil {
		return 0, err
	}
	return current.Count, nil
}

// --- Subscription Operations ---

func (r *repository) GetSubscription(ctx context.Context, userID string) (*Subscription, error) {
	var sub Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

func (r *repository) GetSubscriptionByStripeID(ctx context.Context, stripeSubID string) (*Subscription, error) {
	var sub Subscription
	err := r.db.WithContext(ctx).Where("stripe_subscription_id = ?", stripeSubID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get subscription by stripe id: %w", err)
	}
	return &sub, nil
}

// UpsertSubscription inserts the subscription or replaces the Stripe fields
// of the row already held by the same user.
func (r *repository) UpsertSubscription(ctx context.Context, sub *Subscription) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"stripe_customer_id",
			"stripe_subscription_id",
			"stripe_price_id",
			"stripe_current_period_end",
			"updated_at",
		}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (r *repository) UpdateSubscriptionBilling(ctx context.Context, stripeSubID, priceID string, periodEnd time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubID).
		Updates(map[string]interface{}{
			"stripe_price_id":           priceID,
			"stripe_current_period_end": periodEnd,
			"updated_at":                time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("update subscription billing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}
