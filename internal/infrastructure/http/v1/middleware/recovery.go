// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"magasin/internal/core/apperror"
	"magasin/pkg/logger"
)

// Recovery turns panics into INTERNAL_ERROR responses. The stack is logged
// and never sent to the client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", r,
					"stack", string(debug.Stack()),
				)
				_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}
