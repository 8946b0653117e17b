package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marcheroute/marcheroute/pkg/logger"
	"go.uber.org/zap"
)

// RequestTimeout bounds handler execution at limit. Handlers see the deadline
// through the request context; if it fires before the handler finishes and
// nothing was written yet, the client gets a 504.
func RequestTimeout(limit time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), limit)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			c.Next()
		}()

		select {
		case <-finished:
		case <-ctx.Done():
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return
			}

			logger.WithContext(c.Request.Context()).Warn("Request deadline exceeded",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Duration("limit", limit),
			)

			if c.Writer.Written() {
				return
			}
			c.Abort()
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error":   "Request timeout",
				"message": "The request took too long to process",
			})
		}
	}
}
