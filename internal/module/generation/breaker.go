package generation

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/genius/server/internal/shared/metrics"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// breakerProvider guards a provider with a circuit breaker. An open
// breaker fails calls without contacting the provider and reports the
// kind of the last failure that counted against it.
type breakerProvider struct {
	next     Provider
	breaker  *gobreaker.CircuitBreaker[json.RawMessage]
	lastKind atomic.Int32
}

// WithBreaker wraps p in a circuit breaker that reports its state to m.
func WithBreaker(p Provider, cfg BreakerConfig, m *metrics.Metrics, logger *zap.Logger) Provider {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !isBreakerFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if m != nil {
				m.SetBreakerState(name, int(to))
			}
		},
	}

	if m != nil {
		m.SetBreakerState(p.Name(), int(gobreaker.StateClosed))
	}

	return &breakerProvider{
		next:    p,
		breaker: gobreaker.NewCircuitBreaker[json.RawMessage](settings),
	}
}

func (b *breakerProvider) Name() string {
	return b.next.Name()
}

func (b *breakerProvider) Generate(ctx context.Context, prompt string) (json.RawMessage, error) {
	out, err := b.breaker.Execute(func() (json.RawMessage, error) {
		out, err := b.next.Generate(ctx, prompt)
		if isBreakerFailure(err) {
			kind := KindOther
			if pe, ok := AsProviderError(err); ok {
				kind = pe.Kind
			}
			b.lastKind.Store(int32(kind))
		}
		return out, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		kind := ErrorKind(b.lastKind.Load())
		return nil, newProviderError(b.next.Name(), kind, "service temporarily unavailable", err)
	}
	return out, err
}

// isBreakerFailure reports whether err counts against the breaker. Credit
// and rate-limit answers come from a reachable provider and are passed
// through unchanged.
func isBreakerFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if pe, ok := AsProviderError(err); ok {
		switch pe.Kind {
		case KindInsufficientCredits, KindRateLimited:
			return false
		}
	}
	return true
}
