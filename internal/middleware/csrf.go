package middleware

import (
	"net/http"

	"healthtrack/internal/pkg/jwt"
	"healthtrack/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const CSRFHeader = "x-csrf-token"

type CSRFVerifier interface {
	VerifyCSRF(raw string) jwt.Verification
}

// CSRFProtection requires a valid x-csrf-token header. When the request is
// authenticated the CSRF token must belong to the session user.
func CSRFProtection(verifier CSRFVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(CSRFHeader)
		if token == "" {
			response.Abort(c, http.StatusForbidden, response.CodeCSRFMissing, "CSRF token is required")
			return
		}

		v := verifier.VerifyCSRF(token)
		if !v.OK() {
			response.Abort(c, http.StatusForbidden, response.CodeCSRFInvalid, "Invalid CSRF token")
			return
		}

		if userID := CurrentUserID(c); userID != "" && userID != v.Claims.UserID {
			response.Abort(c, http.StatusForbidden, response.CodeCSRFMismatch, "CSRF token validation failed: user mismatch")
			return
		}

		c.Next()
	}
}
