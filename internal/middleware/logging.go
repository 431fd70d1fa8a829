package middleware

import (
	"device-finance-backoffice/internal/logger"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggingMiddleware logs each request once it completes, attributed to the
// caller when one is known.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		log := logger.WithRequestID(GetRequestID(c))
		log.Debug("Incoming request",
			zap.String("method", method),
			zap.String("path", path),
		)

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("status_code", statusCode),
			zap.Duration("latency", time.Since(start)),
		}

		if a, ok := ActorFromContext(c); ok {
			fields = append(fields, zap.String("actor", a.String()))
		} else if deviceID := c.Param("deviceId"); deviceID != "" {
			fields = append(fields, zap.String("device_id", deviceID))
		}

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			fields = append(fields, zap.String("error", errorMessage))
		}

		switch {
		case statusCode >= 500:
			log.Error("Request completed with server error", fields...)
		case statusCode >= 400:
			log.Warn("Request completed with client error", fields...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}
