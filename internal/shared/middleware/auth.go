package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/genius/server/internal/shared/response"
)

const (
	// AuthorizationHeader is the header key for authorization.
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens.
	BearerPrefix = "Bearer "
	// UserIDKey is the context key for user ID.
	UserIDKey = "user_id"
	// EmailKey is the context key for email.
	EmailKey = "email"
)

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	UserID string
	Email  string
}

// TokenValidator resolves a bearer token to an identity.
type TokenValidator interface {
	ValidateToken(token string) (*Identity, error)
}

// Auth returns a middleware that validates bearer tokens.
// If the token is valid, it sets user_id and email in the context.
// If optional is true, missing or invalid tokens leave the request anonymous
// and the handler decides how to reject it.
func Auth(validator TokenValidator, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			if !optional {
				response.Unauthorized(c, "")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		identity, err := validator.ValidateToken(token)
		if err != nil || identity == nil || identity.UserID == "" {
			if !optional {
				response.Unauthorized(c, "")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		c.Set(UserIDKey, identity.UserID)
		c.Set(EmailKey, identity.Email)

		c.Next()
	}
}

// RequireAuth returns a middleware that requires a valid bearer token.
func RequireAuth(validator TokenValidator) gin.HandlerFunc {
	return Auth(validator, false)
}

// OptionalAuth returns a middleware that optionally validates bearer tokens.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return Auth(validator, true)
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
}

// GetUserID returns the user ID from context, or "" for anonymous requests.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetEmail returns the email from context.
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}
