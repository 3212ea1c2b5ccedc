package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "magasin/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace attaches request and trace ids to the request context, reusing the
// incoming headers when the caller supplies them.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		trace := appctx.NewTraceContext(c.GetHeader(HeaderRequestID))
		if traceID := c.GetHeader(HeaderTraceID); traceID != "" {
			trace.TraceID = traceID
		}

		c.Request = c.Request.WithContext(appctx.WithTrace(c.Request.Context(), trace))

		c.Set("trace_id", trace.TraceID)
		c.Set("request_id", trace.RequestID)

		c.Header(HeaderRequestID, trace.RequestID)
		c.Header(HeaderTraceID, trace.TraceID)

		c.Next()
	}
}
