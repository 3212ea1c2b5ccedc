package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"magasin/internal/core/apperror"
	"magasin/pkg/logger"
)

// ErrorHandler renders the last error registered on the gin context as
// {code, message, details}. Internal causes are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		// Handler already answered.
		if c.Writer.Written() {
			return
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}
			if appErr.Code == apperror.CodeInternal {
				c.JSON(appErr.HTTPStatus, internalBody(c))
				return
			}
			c.JSON(appErr.HTTPStatus, gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			})
			return
		}

		logger.Error(c.Request.Context(), "unhandled error", "error", err)
		c.JSON(http.StatusInternalServerError, internalBody(c))
	}
}

func internalBody(c *gin.Context) gin.H {
	return gin.H{
		"code":    apperror.CodeInternal,
		"message": "Internal server error",
		"details": map[string]any{
			"request_id": c.GetString("request_id"),
		},
	}
}
