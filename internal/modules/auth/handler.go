package auth

import (
	"errors"
	"net/http"
	"time"

	"healthtrack/internal/middleware"
	"healthtrack/internal/pkg/response"
	"healthtrack/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

// CookieConfig controls the optional session cookies.
type CookieConfig struct {
	Enabled       bool
	Secure        bool
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// Guards are the middleware placed in front of the auth routes. Nil guards
// are skipped. Logout falls back to Authenticate when unset.
type Guards struct {
	Authenticate  gin.HandlerFunc
	Logout        gin.HandlerFunc
	CSRF          gin.HandlerFunc
	LoginLimit    gin.HandlerFunc
	RegisterLimit gin.HandlerFunc
}

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
	cookies CookieConfig
}

func NewHandler(service *Service, cookies CookieConfig) *Handler {
	return &Handler{service: service, cookies: cookies}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, g Guards) {
	rg.POST("/register", chain(h.Register, g.RegisterLimit)...)
	rg.POST("/login", chain(h.Login, g.LoginLimit)...)
	rg.POST("/refresh", h.Refresh)

	rg.GET("/me", chain(h.Me, g.Authenticate)...)
	logout := g.Logout
	if logout == nil {
		logout = g.Authenticate
	}
	rg.POST("/logout", chain(h.Logout, logout)...)
	rg.GET("/csrf-token", chain(h.CSRFToken, g.Authenticate)...)
	rg.PUT("/me/profile", chain(h.UpdateProfile, g.Authenticate, g.CSRF)...)
	rg.POST("/me/password", chain(h.ChangePassword, g.Authenticate, g.CSRF)...)
}

func chain(handler gin.HandlerFunc, guards ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(guards)+1)
	for _, g := range guards {
		if g != nil {
			out = append(out, g)
		}
	}
	return append(out, handler)
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bind(c, &req) {
		return
	}

	session, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setSessionCookies(c, session.Tokens.AccessToken, session.Tokens.RefreshToken)
	response.SuccessMessage(c, http.StatusCreated, "Registration successful", toAuthResponse(session))
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}

	session, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setSessionCookies(c, session.Tokens.AccessToken, session.Tokens.RefreshToken)
	response.SuccessMessage(c, http.StatusOK, "Login successful", toAuthResponse(session))
}

func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	// the body is optional
	_ = c.ShouldBindJSON(&req)

	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(middleware.RefreshTokenCookie)
	}

	result, err := h.service.Refresh(c.Request.Context(), token)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setSessionCookies(c, result.Tokens.AccessToken, result.Tokens.RefreshToken)
	response.Success(c, http.StatusOK, RefreshResponse{
		Token:        result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		CSRFToken:    result.CSRFToken,
	})
}

func (h *Handler) Me(c *gin.Context) {
	user, profile, err := h.service.CurrentUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, MeResponse{
		User:    toUserPublic(user),
		Profile: profile.View(),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if middleware.SessionRevoked(c) {
		// already logged out with this token
		h.clearSessionCookies(c)
		response.SuccessMessage(c, http.StatusOK, "Logged out successfully", nil)
		return
	}

	var req RefreshRequest
	_ = c.ShouldBindJSON(&req)

	refresh := req.RefreshToken
	if refresh == "" {
		refresh, _ = c.Cookie(middleware.RefreshTokenCookie)
	}

	err := h.service.Logout(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentAccessToken(c), refresh)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.clearSessionCookies(c)
	response.SuccessMessage(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler) CSRFToken(c *gin.Context) {
	token, err := h.service.IssueCSRFToken(middleware.CurrentUserID(c))
	if err != nil {
		response.Internal(c, err)
		return
	}
	response.Success(c, http.StatusOK, CSRFResponse{CSRFToken: token})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !bind(c, &req) {
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.SuccessMessage(c, http.StatusOK, "Profile updated successfully", profile.View())
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bind(c, &req) {
		return
	}

	err := h.service.ChangePassword(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentAccessToken(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.clearSessionCookies(c)
	response.SuccessMessage(c, http.StatusOK, "Password changed successfully", nil)
}

func bind(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "Request body too large")
		return false
	}

	if details := validator.Details(err); details != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Validation failed", details)
	} else {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
	}
	return false
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrDuplicateIdentity):
		response.Error(c, http.StatusConflict, response.CodeDuplicate, "Username or email already exists")
	case errors.Is(err, ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, "Invalid credentials")
	case errors.Is(err, ErrRefreshRequired):
		response.Error(c, http.StatusUnauthorized, response.CodeRefreshRequired, "Refresh token required")
	case errors.Is(err, ErrTokenRevoked):
		response.Error(c, http.StatusUnauthorized, response.CodeTokenRevoked, "Refresh token has been invalidated")
	case errors.Is(err, ErrInvalidRefresh):
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidRefresh, "Invalid refresh token")
	case errors.Is(err, ErrUserNotFound):
		response.Error(c, http.StatusNotFound, response.CodeUserNotFound, "User not found")
	case errors.Is(err, ErrInvalidDate):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Validation failed",
			map[string]string{"dateOfBirth": "pastdate"})
	default:
		response.Internal(c, err)
	}
}

func (h *Handler) setSessionCookies(c *gin.Context, access, refresh string) {
	if !h.cookies.Enabled {
		return
	}
	http.SetCookie(c.Writer, h.cookie(middleware.AccessTokenCookie, access, h.cookies.AccessMaxAge))
	http.SetCookie(c.Writer, h.cookie(middleware.RefreshTokenCookie, refresh, h.cookies.RefreshMaxAge))
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	if !h.cookies.Enabled {
		return
	}
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		ck := h.cookie(name, "", 0)
		ck.MaxAge = -1
		http.SetCookie(c.Writer, ck)
	}
}

func (h *Handler) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func toAuthResponse(s *Session) AuthResponse {
	return AuthResponse{
		Tokens: TokensResponse{
			AccessToken:  s.Tokens.AccessToken,
			RefreshToken: s.Tokens.RefreshToken,
		},
		CSRFToken: s.CSRFToken,
		User:      toUserPublic(s.User),
		Profile:   s.Profile.View(),
	}
}
