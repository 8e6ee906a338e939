package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"healthtrack/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfRouter(tokens *jwt.Service, authenticated bool) *gin.Engine {
	log, _ := test.NewNullLogger()
	router := gin.New()
	if authenticated {
		router.Use(Authenticate(tokens, newFakeStore(), log))
	}
	router.Use(CSRFProtection(tokens))
	router.POST("/change", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestCSRFProtection(t *testing.T) {
	tokens := newTokens(t)

	access, err := tokens.IssueAccessToken(jwt.Identity{UserID: "u-1"})
	require.NoError(t, err)
	own, err := tokens.IssueCSRFToken("u-1")
	require.NoError(t, err)
	foreign, err := tokens.IssueCSRFToken("u-2")
	require.NoError(t, err)
	expired, err := newTokensAt(t, func() time.Time { return time.Now().Add(-2 * time.Hour) }).IssueCSRFToken("u-1")
	require.NoError(t, err)

	cases := []struct {
		name          string
		authenticated bool
		csrf          string
		status        int
		code          string
	}{
		{"missing", true, "", http.StatusForbidden, "CSRF_MISSING"},
		{"missing unauthenticated", false, "", http.StatusForbidden, "CSRF_MISSING"},
		{"garbage", true, "nope", http.StatusForbidden, "INVALID_CSRF"},
		{"access token as csrf", true, access, http.StatusForbidden, "INVALID_CSRF"},
		{"expired", true, expired, http.StatusForbidden, "INVALID_CSRF"},
		{"other user", true, foreign, http.StatusForbidden, "CSRF_MISMATCH"},
		{"own", true, own, http.StatusOK, ""},
		{"unauthenticated valid", false, foreign, http.StatusOK, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/change", nil)
			if tc.authenticated {
				req.Header.Set("Authorization", "Bearer "+access)
			}
			if tc.csrf != "" {
				req.Header.Set(CSRFHeader, tc.csrf)
			}
			csrfRouter(tokens, tc.authenticated).ServeHTTP(w, req)

			require.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				assert.Equal(t, tc.code, decode(t, w)["code"])
			}
		})
	}
}
