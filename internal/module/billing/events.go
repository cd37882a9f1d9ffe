package billing

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
)

// Stripe event types acted upon.
const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
)

// metadataUserID is the checkout metadata key carrying the user id.
const metadataUserID = "userId"

// Event is a verified billing event. The set of variants is closed.
type Event interface {
	EventID() string
	Type() string
	isEvent()
}

// CheckoutCompleted is emitted when a user finishes a subscription checkout.
type CheckoutCompleted struct {
	ID              string
	UserID          string
	SubscriptionRef string
}

// PaymentSucceeded is emitted when a subscription invoice is paid.
type PaymentSucceeded struct {
	ID              string
	SubscriptionRef string
}

// Ignored is any event type this service does not act on.
type Ignored struct {
	ID   string
	Kind string
}

func (e CheckoutCompleted) EventID() string { return e.ID }
func (e CheckoutCompleted) Type() string    { return EventCheckoutCompleted }
func (CheckoutCompleted) isEvent()          {}

func (e PaymentSucceeded) EventID() string { return e.ID }
func (e PaymentSucceeded) Type() string    { return EventInvoicePaymentSucceeded }
func (PaymentSucceeded) isEvent()          {}

func (e Ignored) EventID() string { return e.ID }
func (e Ignored) Type() string    { return e.Kind }
func (Ignored) isEvent()          {}

// DecodeEvent maps a verified Stripe event onto its variant.
func DecodeEvent(ev *stripe.Event) (Event, error) {
	switch string(ev.Type) {
	case EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := unmarshalObject(ev, &session); err != nil {
			return nil, err
		}
		out := CheckoutCompleted{ID: ev.ID, UserID: session.Metadata[metadataUserID]}
		if session.Subscription != nil {
			out.SubscriptionRef = session.Subscription.ID
		}
		return out, nil

	case EventInvoicePaymentSucceeded:
		var inv stripe.Invoice
		if err := unmarshalObject(ev, &inv); err != nil {
			return nil, err
		}
		out := PaymentSucceeded{ID: ev.ID}
		if inv.Subscription != nil {
			out.SubscriptionRef = inv.Subscription.ID
		}
		return out, nil

	default:
		return Ignored{ID: ev.ID, Kind: string(ev.Type)}, nil
	}
}

func unmarshalObject(ev *stripe.Event, v interface{}) error {
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return fmt.Errorf("%w: %s has no data object", ErrMalformedEvent, ev.Type)
	}
	if err := json.Unmarshal(ev.Data.Raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}
