package generation

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a provider failure.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindInsufficientCredits
	KindRateLimited
	KindMisconfigured
)

func (k ErrorKind) String() string {
	switch k {
	case KindInsufficientCredits:
		return "insufficient_credits"
	case KindRateLimited:
		return "rate_limited"
	case KindMisconfigured:
		return "misconfigured"
	default:
		return "other"
	}
}

var displayNames = map[string]string{
	"replicate": "Replicate",
	"edenai":    "Eden AI",
}

// ProviderError is a failure reported by, or while talking to, a provider.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status reported to the caller.
func (e *ProviderError) StatusCode() int {
	switch e.Kind {
	case KindInsufficientCredits:
		return http.StatusPaymentRequired
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the message reported to the caller.
func (e *ProviderError) ClientMessage() string {
	name := displayNames[e.Provider]
	if name == "" {
		name = e.Provider
	}

	switch e.Kind {
	case KindInsufficientCredits:
		return "Insufficient credits. Please upgrade your plan."
	case KindRateLimited:
		return "Rate limit exceeded. Please try again in a few minutes."
	case KindMisconfigured:
		return fmt.Sprintf("Invalid %s API key configuration.", name)
	default:
		return fmt.Sprintf("%s Error: %s", name, e.Message)
	}
}

func newProviderError(provider string, kind ErrorKind, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Message: message, Err: err}
}

// AsProviderError extracts a *ProviderError from err's chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// kindFromStatus maps a provider HTTP status onto an error kind.
func kindFromStatus(status int) ErrorKind {
	switch status {
	case http.StatusPaymentRequired:
		return KindInsufficientCredits
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindMisconfigured
	default:
		return KindOther
	}
}
