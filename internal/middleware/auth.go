package middleware

import (
	"net/http"
	"strings"

	"healthtrack/internal/pkg/jwt"
	"healthtrack/internal/pkg/response"
	"healthtrack/internal/revocation"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Keys under which Authenticate stores the session on the gin context.
const (
	ContextUserID      = "user_id"
	ContextUsername    = "username"
	ContextProfileID   = "profile_id"
	ContextClaims      = "claims"
	ContextAccessToken = "access_token"
	ContextRevoked     = "session_revoked"
)

// Session cookie names.
const (
	AccessTokenCookie  = "token"
	RefreshTokenCookie = "refreshToken"
)

type AccessVerifier interface {
	VerifyAccess(raw string) jwt.Verification
}

// BearerToken returns the access token from the Authorization header, or from
// the token cookie when the header is absent. The header wins.
func BearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// Authenticate admits a request only when it carries an access token that is
// not revoked, correctly signed and unexpired. The revocation check comes
// first; a store failure rejects the request.
func Authenticate(verifier AccessVerifier, store revocation.Store, log logrus.FieldLogger) gin.HandlerFunc {
	return session(verifier, store, log, false)
}

// AuthenticateLogout guards logout. It also admits a correctly signed,
// unexpired token that is already revoked, marking the session as ended so
// the handler can answer without revoking anything again.
func AuthenticateLogout(verifier AccessVerifier, store revocation.Store, log logrus.FieldLogger) gin.HandlerFunc {
	return session(verifier, store, log, true)
}

func session(verifier AccessVerifier, store revocation.Store, log logrus.FieldLogger, allowRevoked bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeNoToken, "Access denied. No token provided.")
			return
		}

		revoked, err := store.IsRevoked(c.Request.Context(), token)
		if err != nil {
			log.WithError(err).WithField("path", c.Request.URL.Path).Error("revocation lookup failed")
			response.Internal(c, err)
			return
		}
		if revoked && !allowRevoked {
			response.Abort(c, http.StatusUnauthorized, response.CodeTokenRevoked, "Token has been invalidated")
			return
		}

		v := verifier.VerifyAccess(token)
		switch {
		case v.Outcome == jwt.OutcomeOK:
		case revoked:
			response.Abort(c, http.StatusUnauthorized, response.CodeTokenRevoked, "Token has been invalidated")
			return
		case v.Outcome == jwt.OutcomeExpired:
			response.Abort(c, http.StatusUnauthorized, response.CodeTokenExpired, "Token expired")
			return
		default:
			log.WithError(v.Err).Debug("access token rejected")
			response.Abort(c, http.StatusUnauthorized, response.CodeInvalidToken, "Invalid token")
			return
		}

		c.Set(ContextUserID, v.Claims.UserID)
		c.Set(ContextUsername, v.Claims.Username)
		c.Set(ContextProfileID, v.Claims.ProfileID)
		c.Set(ContextClaims, v.Claims)
		c.Set(ContextAccessToken, token)
		c.Set(ContextRevoked, revoked)
		c.Next()
	}
}

func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func CurrentClaims(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}

func CurrentAccessToken(c *gin.Context) string {
	return c.GetString(ContextAccessToken)
}

// SessionRevoked reports whether the request's access token was already
// revoked. Only AuthenticateLogout lets such a request through.
func SessionRevoked(c *gin.Context) bool {
	return c.GetBool(ContextRevoked)
}
