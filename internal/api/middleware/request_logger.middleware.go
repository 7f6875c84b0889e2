package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/sentra-core/internal/logging"
)

// RequestLogger logs every HTTP request with latency and status.
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"clientIP", c.ClientIP(),
		}
		if tenantID := c.GetString("tenant_id"); tenantID != "" {
			fields = append(fields, "tenantID", tenantID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
			log.Error("HTTP request failed", fields...)
			return
		}
		log.Info("HTTP request", fields...)
	}
}
