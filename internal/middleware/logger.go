package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"healthtrack/internal/pkg/metrics"
	"healthtrack/internal/pkg/response"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs every request with its outcome, records the latency
// histogram and turns panics into a generic 500.
func RequestLogger(log logrus.FieldLogger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				entry(log, c, start).
					WithField("panic", fmt.Sprintf("%v", recovered)).
					WithField("stack", string(debug.Stack())).
					Error("panic recovered")
				response.Abort(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
			}

			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())

			e := entry(log, c, start)
			switch {
			case len(c.Errors) > 0:
				e.WithField("errors", c.Errors.String()).Error("request failed")
			case c.Writer.Status() >= http.StatusInternalServerError:
				e.Error("request failed")
			case c.Writer.Status() >= http.StatusBadRequest:
				e.Warn("request rejected")
			default:
				e.Info("request completed")
			}
		}()

		c.Next()
	}
}

func entry(log logrus.FieldLogger, c *gin.Context, start time.Time) logrus.FieldLogger {
	fields := logrus.Fields{
		"status":     c.Writer.Status(),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"client_ip":  c.ClientIP(),
		"latency":    time.Since(start).String(),
		"request_id": requestid.Get(c),
	}
	if claims := CurrentClaims(c); claims != nil {
		fields["user_id"] = claims.UserID
		fields["username"] = claims.Username
	}
	return log.WithFields(fields)
}
