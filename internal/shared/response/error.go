package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/genius/server/internal/shared/errors"
)

// ErrorResponse represents a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error sends an error response with the given status code.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	Error(c, http.StatusUnauthorized, message)
}

// BadRequest sends a 400 Bad Request response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// InternalError sends a 500 Internal Server Error response.
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal Error"
	}
	Error(c, http.StatusInternalServerError, message)
}

// FromError writes the status and message carried by err.
// Errors outside the shared taxonomy become a generic 500.
func FromError(c *gin.Context, err error) {
	Error(c, apperrors.GetStatusCode(err), apperrors.GetMessage(err))
}
