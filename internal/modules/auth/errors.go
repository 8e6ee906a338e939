package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateIdentity  = errors.New("username or email already exists")
	ErrRefreshRequired    = errors.New("refresh token required")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidDate        = errors.New("invalid date of birth")
)
