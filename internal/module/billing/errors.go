package billing

import "errors"

var (
	ErrUsageNotFound          = errors.New("usage record not found")
	ErrSubscriptionNotFound   = errors.New("subscription not found")
	ErrMissingUserID          = errors.New("checkout session has no userId metadata")
	ErrMissingSubscriptionRef = errors.New("event has no subscription reference")
	ErrMalformedEvent         = errors.New("malformed event payload")
	ErrNoCustomer             = errors.New("user has no billing customer")
)
