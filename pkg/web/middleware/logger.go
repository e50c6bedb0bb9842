package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atmquant/atmquant/pkg/logger"
)

// Logger 适配 pkg/logger 的 Gin 日志中间件
func Logger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"ip", c.ClientIP(),
			"latency", time.Since(start).String(),
			"user_agent", c.Request.UserAgent(),
		}

		ctx := c.Request.Context()
		if len(c.Errors) > 0 {
			for _, e := range c.Errors.Errors() {
				l.ErrorContext(ctx, e, fields...)
			}
			return
		}

		if status >= 400 {
			l.WarnContext(ctx, "http request", fields...)
		} else {
			l.DebugContext(ctx, "http request", fields...)
		}
	}
}
