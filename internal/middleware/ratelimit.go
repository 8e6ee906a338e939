package middleware

import (
	"math"
	"net/http"
	"strconv"

	"healthtrack/internal/pkg/metrics"
	"healthtrack/internal/pkg/response"
	"healthtrack/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RateLimitPolicy binds a limiter to the message returned on rejection.
type RateLimitPolicy struct {
	Name    string
	Limiter ratelimit.Limiter
	Message string
}

// RateLimit counts every request per client IP before the handler runs, so a
// blocked client is rejected without touching the credential store.
func RateLimit(policy RateLimitPolicy, m *metrics.Metrics, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		d, err := policy.Limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			log.WithError(err).WithField("policy", policy.Name).Error("rate limiter unavailable")
			response.Internal(c, err)
			return
		}

		c.Header("RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			m.RateLimited(policy.Name)
			log.WithFields(logrus.Fields{
				"policy":    policy.Name,
				"client_ip": ip,
			}).Warn("rate limit exceeded")
			response.Abort(c, http.StatusTooManyRequests, response.CodeRateLimited, policy.Message)
			return
		}

		c.Next()
	}
}
