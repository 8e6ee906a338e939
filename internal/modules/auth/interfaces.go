package auth

import (
	"context"

	"healthtrack/internal/domain"
	"healthtrack/internal/pkg/jwt"
)

// UserRepositoryInterface is the credential store as seen by the service.
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User, p *domain.Profile) error
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, p *domain.Profile) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	HashPassword(password string) (string, error)
	VerifyPassword(u *domain.User, password string) bool
}

// TokenIssuer is the part of the token service the auth flows use.
type TokenIssuer interface {
	IssuePair(id jwt.Identity) (jwt.Pair, error)
	IssueCSRFToken(userID string) (string, error)
	VerifyRefresh(raw string) jwt.Verification
}
