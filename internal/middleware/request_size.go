package middleware

import (
	"device-finance-backoffice/internal/logger"
	"device-finance-backoffice/pkg/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxRequestSize bounds check-in, security report and staff payloads alike.
const MaxRequestSize = 1 << 20

// RequestSizeLimitMiddleware rejects declared bodies over maxSize up front and caps
// streamed ones with http.MaxBytesReader so binding fails once the limit is crossed.
func RequestSizeLimitMiddleware(maxSize int64) gin.HandlerFunc {
	if maxSize <= 0 {
		maxSize = MaxRequestSize
	}

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			logger.Warn("Request body too large",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
				zap.Int64("content_length", c.Request.ContentLength),
				zap.Int64("limit", maxSize),
			)
			utils.ErrorResponseWithCode(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			c.Abort()
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}
		c.Next()
	}
}
