package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appLogger "github.com/zqshi/thinkcraft-auth/internal/infra/logger"
)

// Logger emits one access log line per request. Correlation identifiers ride
// every line; client IPs are masked before they reach the log.
func Logger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := appLogger.WithContext(c.Request.Context(), log)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.String("trace_id", GetTraceID(c)),
			zap.String("client_ip", appLogger.MaskIP(c.ClientIP())),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.Int("bytes_out", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			entry.Warn("http request", fields...)
		default:
			entry.Info("http request", fields...)
		}
	}
}
