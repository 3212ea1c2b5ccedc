// Package auth validates the bearer tokens issued by the identity service.
// Token issuance is not part of this server; GenerateAccessToken exists for
// tests and local tooling.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "magasin/internal/core/context"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		Issuer:         "magasin",
		AccessTokenTTL: 15 * time.Minute,
	}
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64    `json:"uid"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles,omitempty"`
	StoreIDs []int64  `json:"stores,omitempty"`
}

// ErrMissingUser is returned for a token without a uid claim.
var ErrMissingUser = errors.New("token has no user id")

// JWTService handles JWT operations.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config}
}

// GenerateAccessToken signs a token for user.
func (s *JWTService) GenerateAccessToken(user appctx.UserContext) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   fmt.Sprint(user.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   user.UserID,
		Email:    user.Email,
		Roles:    user.Roles,
		StoreIDs: user.StoreIDs,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateToken validates a token and returns the user it identifies.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserID == 0 {
		return nil, ErrMissingUser
	}

	return &appctx.UserContext{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Roles:    claims.Roles,
		StoreIDs: claims.StoreIDs,
	}, nil
}
