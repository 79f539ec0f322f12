package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDKey is the gin context key the request id is stored under.
	RequestIDKey = "request_id"
	// RequestIDHeader carries the id on both request and response.
	RequestIDHeader = "X-Request-ID"
)

// RequestID tags every request with an id, honoring one the caller already
// assigned. The id is echoed in the response header and travels with every
// log line emitted for the request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
