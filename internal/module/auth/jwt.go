package auth

import (
	"fmt"
	"time"

	"github.com/genius/server/internal/shared/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents bearer token claims. The subject is the user identity.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret string
	Issuer string
	Leeway time.Duration
}

// JWTManager validates bearer tokens issued by the identity provider.
type JWTManager struct {
	config *JWTConfig
	parser *jwt.Parser
}

// NewJWTManager creates a new JWT manager.
func NewJWTManager(config *JWTConfig) *JWTManager {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	return &JWTManager{
		config: config,
		parser: jwt.NewParser(opts...),
	}
}

// IssueToken signs a token for the given identity.
func (m *JWTManager) IssueToken(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and returns its claims.
func (m *JWTManager) ParseToken(tokenString string) (*Claims, error) {
	token, err := m.parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(m.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidTokenClaims
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// ValidateToken implements middleware.TokenValidator.
func (m *JWTManager) ValidateToken(tokenString string) (*middleware.Identity, error) {
	claims, err := m.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
	}, nil
}

var _ middleware.TokenValidator = (*JWTManager)(nil)
