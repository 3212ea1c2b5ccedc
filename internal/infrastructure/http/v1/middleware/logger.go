package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"magasin/pkg/logger"
)

// Logger logs one line per HTTP request with timing and status.
func Logger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.String())
		}

		l := log.WithContext(c.Request.Context())
		if status >= 500 {
			l.Errorw("http request", kv...)
			return
		}
		l.Infow("http request", kv...)
	}
}
