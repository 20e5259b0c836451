package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request correlation ID.
const RequestIDHeader = "X-Request-ID"

// RequestIDContextKey is the gin context key for the correlation ID.
const RequestIDContextKey = "requestID"

// RequestID assigns each request a correlation ID, honoring one supplied by
// the caller, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDContextKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFromContext returns the correlation ID set by RequestID, or "".
func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(RequestIDContextKey)
}
