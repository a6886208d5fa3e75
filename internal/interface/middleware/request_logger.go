package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one structured line per request. Requests slower than
// slow are logged at WARN, 5xx at ERROR. When accessLog is false only those
// two kinds are written.
func RequestLogger(logger *logrus.Logger, slow time.Duration, accessLog bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if logger == nil {
			return
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()

		fields := logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": elapsed.Milliseconds(),
			"ip":          ipFromCtx(c),
			"request_id":  c.GetString("request_id"),
		}
		if uid := c.GetInt64(CtxUserIDKey); uid != 0 {
			fields["user_id"] = uid
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		entry := logger.WithFields(fields)

		switch {
		case status >= 500:
			entry.Error("request failed")
		case slow > 0 && elapsed > slow:
			entry.Warn("slow request")
		case accessLog:
			entry.Info("request")
		}
	}
}
