package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marcheroute/marcheroute/pkg/logger"
)

const (
	// CorrelationIDHeader carries the request's correlation ID end to end.
	CorrelationIDHeader = "X-Request-ID"
	// CorrelationIDKey is the gin context key holding the accepted ID.
	CorrelationIDKey = "correlation_id"
)

// CorrelationID tags every request with a UUID so log lines and upstream
// calls can be tied together. A well-formed caller-supplied ID is kept;
// anything else is replaced.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(CorrelationIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		c.Set(CorrelationIDKey, id)
		c.Request = c.Request.WithContext(
			logger.ContextWithCorrelationID(c.Request.Context(), id))
		c.Writer.Header().Set(CorrelationIDHeader, id)

		c.Next()
	}
}

// GetCorrelationID returns the correlation ID assigned to the request.
func GetCorrelationID(c *gin.Context) string {
	if v, ok := c.Get(CorrelationIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return logger.CorrelationIDFromContext(c.Request.Context())
}
