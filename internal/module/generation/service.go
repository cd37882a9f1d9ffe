package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/genius/server/internal/module/billing"
	apperrors "github.com/genius/server/internal/shared/errors"
	"github.com/genius/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// QuotaChecker is the billing surface the proxy depends on.
type QuotaChecker interface {
	Check(ctx context.Context, userID string) (*billing.Decision, error)
	Increment(ctx context.Context, userID string) (int, error)
}

// Service proxies prompts to generation providers behind the quota gate.
type Service struct {
	quota     QuotaChecker
	providers map[Kind]Provider
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService creates a new generation service. A zero timeout leaves the
// provider call bounded only by the caller's context.
func NewService(quota QuotaChecker, providers map[Kind]Provider, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		quota:     quota,
		providers: providers,
		timeout:   timeout,
		metrics:   m,
		logger:    logger,
	}
}

// Generate runs one chargeable generation for the user. Checks run in
// order: identity, prompt, quota. The usage count only moves after the
// provider succeeds and only for users without Pro.
func (s *Service) Generate(ctx context.Context, kind Kind, userID, prompt string) (json.RawMessage, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated("")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.InvalidInput("Prompt is Required")
	}

	provider, ok := s.providers[kind]
	if !ok {
		return nil, apperrors.NotFound(fmt.Sprintf("generation kind %q", kind))
	}

	decision, err := s.quota.Check(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence("Internal Error", err)
	}
	if !decision.Allowed {
		s.record(provider.Name(), "quota_exceeded")
		return nil, apperrors.QuotaExceeded("")
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := provider.Generate(callCtx, prompt)
	if s.metrics != nil {
		s.metrics.ObserveProviderCall(provider.Name(), time.Since(start))
	}
	if err != nil {
		pe, ok := AsProviderError(err)
		if !ok {
			pe = newProviderError(provider.Name(), KindOther, err.Error(), err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			pe.Message = "request timed out"
		}
		s.record(provider.Name(), pe.Kind.String())
		s.logger.Error("generation failed",
			zap.String("user_id", userID),
			zap.String("kind", string(kind)),
			zap.String("provider", provider.Name()),
			zap.String("error_kind", pe.Kind.String()),
			zap.Error(err),
		)
		return nil, pe
	}

	if !decision.IsPro {
		if _, err := s.quota.Increment(ctx, userID); err != nil {
			s.logger.Error("failed to record usage",
				zap.String("user_id", userID),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			return nil, apperrors.Persistence("Internal Error", err)
		}
	}

	s.record(provider.Name(), "success")
	s.logger.Info("generation completed",
		zap.String("user_id", userID),
		zap.String("kind", string(kind)),
		zap.Bool("is_pro", decision.IsPro),
	)
	return result, nil
}

func (s *Service) record(provider, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordGeneration(provider, outcome)
	}
}
