package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultBodyLimit caps JSON request bodies at 10kb.
const DefaultBodyLimit int64 = 10 << 10

// BodyLimit wraps the request body so reads past limit fail. Handlers see the
// failure as a bind error.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
