package billing

import (
	"net/http"

	"github.com/genius/server/internal/shared/middleware"
	"github.com/genius/server/internal/shared/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for billing.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new billing handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the billing routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	billing := r.Group("/billing")
	{
		billing.GET("/limit", h.GetLimit)
		billing.POST("/checkout", h.Checkout)
	}
}

// GetLimit returns the caller's free-trial usage and Pro status.
func (h *Handler) GetLimit(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	status, err := h.service.Limit(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load limit status", zap.String("user_id", userID), zap.Error(err))
		response.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, status)
}

// Checkout returns a Stripe URL for subscribing or managing billing.
func (h *Handler) Checkout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "")
		return
	}

	url, err := h.service.BillingURL(c.Request.Context(), userID, middleware.GetEmail(c))
	if err != nil {
		h.logger.Error("failed to create billing session", zap.String("user_id", userID), zap.Error(err))
		response.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
