package generation

import (
	"net/http"

	"github.com/genius/server/internal/shared/middleware"
	"github.com/genius/server/internal/shared/response"
	"github.com/gin-gonic/gin"
)

// GenerateRequest is the body of a generation request.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// Handler handles HTTP requests for generation.
type Handler struct {
	service *Service
}

// NewHandler creates a new generation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the generation routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/music", h.generate(KindMusic))
	r.POST("/video", h.generate(KindVideo))
}

func (h *Handler) generate(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			response.Unauthorized(c, "")
			return
		}

		// A body that does not decode carries no prompt.
		var req GenerateRequest
		_ = c.ShouldBindJSON(&req)

		result, err := h.service.Generate(c.Request.Context(), kind, userID, req.Prompt)
		if err != nil {
			if pe, ok := AsProviderError(err); ok {
				response.Error(c, pe.StatusCode(), pe.ClientMessage())
				return
			}
			response.FromError(c, err)
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", result)
	}
}
