package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"magasin/internal/core/apperror"
	appctx "magasin/internal/core/context"
)

// JWTValidator validates bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

// Auth requires a valid bearer token and puts its user on the request context.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "missing or malformed authorization header")
			return
		}

		user, err := validator.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous calls through.
func OptionalAuth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if user, err := validator.ValidateToken(token); err == nil && user != nil {
				setUser(c, user)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setUser(c *gin.Context, user *appctx.UserContext) {
	c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
	c.Set("user_id", user.UserID)
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
