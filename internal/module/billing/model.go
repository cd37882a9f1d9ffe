package billing

import "time"

// UsageRecord counts successful generations for a free-tier user.
type UsageRecord struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex;not null"`
	Count     int       `json:"count" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for UsageRecord.
func (UsageRecord) TableName() string {
	return "user_api_limits"
}

// Subscription links a user to their Stripe subscription.
type Subscription struct {
	ID                     uint      `json:"-" gorm:"primaryKey"`
	UserID                 string    `json:"user_id" gorm:"uniqueIndex;not null"`
	StripeCustomerID       string    `json:"-" gorm:"index"`
	StripeSubscriptionID   string    `json:"-" gorm:"uniqueIndex"`
	StripePriceID          string    `json:"-"`
	StripeCurrentPeriodEnd time.Time `json:"current_period_end"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// TableName returns the table name for Subscription.
func (Subscription) TableName() string {
	return "user_subscriptions"
}

// IsActiveAt reports whether the subscription grants Pro at the given instant.
func (s *Subscription) IsActiveAt(now time.Time, grace time.Duration) bool {
	if s == nil || s.StripePriceID == "" {
		return false
	}
	return s.StripeCurrentPeriodEnd.Add(grace).After(now)
}

// Models returns every model owned by this module, for migrations.
func Models() []interface{} {
	return []interface{}{&UsageRecord{}, &Subscription{}}
}

// LimitStatus is the free-tier view of a user.
type LimitStatus struct {
	Count        int  `json:"count"`
	MaxFreeCount int  `json:"max_free_count"`
	IsPro        bool `json:"is_pro"`
}

// Decision is the result of a quota check.
type Decision struct {
	Allowed bool
	IsPro   bool
	Count   int
}
