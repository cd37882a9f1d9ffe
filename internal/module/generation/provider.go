package generation

import (
	"context"
	"encoding/json"
)

// Kind identifies a generation endpoint.
type Kind string

const (
	KindMusic Kind = "music"
	KindVideo Kind = "video"
)

// Provider performs one generation against an external service.
type Provider interface {
	// Name returns a stable identifier used in logs and metrics.
	Name() string
	// Generate runs the prompt with the provider's fixed parameters and
	// returns the result payload. Failures are *ProviderError.
	Generate(ctx context.Context, prompt string) (json.RawMessage, error)
}
