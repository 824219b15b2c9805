package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
)

// RequestLogger logs every request once it completes. Long-lived stream and
// websocket requests are logged when the client leaves.
func RequestLogger(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start).Round(time.Millisecond)
		path := c.Request.URL.Path
		switch {
		case status >= 500:
			logger.Error("%s %s -> %d (%s)", c.Request.Method, path, status, elapsed)
		case status >= 400:
			logger.Warning("%s %s -> %d (%s)", c.Request.Method, path, status, elapsed)
		case strings.HasPrefix(path, "/logs/"):
			// Polling the log viewer would flood info.log.
		default:
			logger.Info("%s %s -> %d (%s)", c.Request.Method, path, status, elapsed)
		}
	}
}
