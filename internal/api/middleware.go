package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"breachtrend/internal"
	"breachtrend/internal/metrics"
)

// RequestLogger logs each request through the application logger and counts it
func RequestLogger(logger *internal.Logger) gin.HandlerFunc {
	zl := logger.Zerolog()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), status)

		event := zl.Info()
		if status >= 500 {
			event = zl.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
