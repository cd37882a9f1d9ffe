package billing

import (
	"io"
	"net/http"

	apperrors "github.com/genius/server/internal/shared/errors"
	"github.com/genius/server/internal/shared/metrics"
	"github.com/genius/server/internal/shared/response"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const maxWebhookBodyBytes = 65536

// WebhookHandler receives Stripe webhook deliveries.
type WebhookHandler struct {
	secret    string
	processor *Processor
	events    EventLog
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewWebhookHandler creates a new webhook handler. A nil event log
// disables duplicate detection.
func NewWebhookHandler(secret string, processor *Processor, events EventLog, m *metrics.Metrics, logger *zap.Logger) *WebhookHandler {
	if events == nil {
		events = NopEventLog{}
	}
	return &WebhookHandler{
		secret:    secret,
		processor: processor,
		events:    events,
		metrics:   m,
		logger:    logger,
	}
}

// RegisterRoutes registers the webhook route. It must not sit behind auth.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/webhook", h.HandleStripeWebhook)
}

// HandleStripeWebhook verifies, decodes and applies one Stripe event.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		response.BadRequest(c, "Webhook Error: failed to read body")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.logger.Warn("invalid webhook signature", zap.Error(err))
		h.record("unknown", "rejected")
		response.FromError(c, apperrors.SignatureInvalid(err))
		return
	}

	ctx := c.Request.Context()
	eventType := string(event.Type)

	seen, err := h.events.Seen(ctx, event.ID)
	if err != nil {
		h.logger.Error("failed to check event log", zap.String("event_id", event.ID), zap.Error(err))
	}
	if seen {
		h.logger.Info("webhook event already processed",
			zap.String("event_id", event.ID),
			zap.String("type", eventType),
		)
		h.record(eventType, "duplicate")
		c.Status(http.StatusOK)
		return
	}

	decoded, err := DecodeEvent(&event)
	if err != nil {
		h.logger.Warn("failed to decode webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", eventType),
			zap.Error(err),
		)
		h.record(eventType, "rejected")
		response.BadRequest(c, "Webhook Error: invalid event")
		return
	}

	if err := h.processor.Process(ctx, decoded); err != nil {
		h.logger.Error("failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", eventType),
			zap.Error(err),
		)
		h.record(eventType, "failed")
		response.FromError(c, err)
		return
	}

	if err := h.events.MarkProcessed(ctx, event.ID); err != nil {
		h.logger.Error("failed to mark event processed", zap.String("event_id", event.ID), zap.Error(err))
	}

	outcome := "processed"
	if _, ok := decoded.(Ignored); ok {
		outcome = "ignored"
	}
	h.record(eventType, outcome)
	c.Status(http.StatusOK)
}

func (h *WebhookHandler) record(eventType, outcome string) {
	if h.metrics != nil {
		h.metrics.RecordBillingEvent(eventType, outcome)
	}
}
