package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"healthtrack/internal/domain"
	"healthtrack/internal/pkg/jwt"
	"healthtrack/internal/pkg/metrics"
	"healthtrack/internal/pkg/validator"
	"healthtrack/internal/repository"
	"healthtrack/internal/revocation"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service contains all business logic for authentication
type Service struct {
	users   UserRepositoryInterface
	tokens  TokenIssuer
	revoked revocation.Store
	metrics *metrics.Metrics
	log     logrus.FieldLogger

	revokeOnRotate bool
}

type Options struct {
	// RevokeRefreshOnRotate makes refresh tokens single use.
	RevokeRefreshOnRotate bool
	Metrics               *metrics.Metrics
	Logger                logrus.FieldLogger
}

// Session is everything a successful register or login hands back.
type Session struct {
	User      *domain.User
	Profile   *domain.Profile
	Tokens    jwt.Pair
	CSRFToken string
}

type RefreshResult struct {
	Tokens    jwt.Pair
	CSRFToken string
}

func NewService(users UserRepositoryInterface, tokens TokenIssuer, revoked revocation.Store, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		users:          users,
		tokens:         tokens,
		revoked:        revoked,
		metrics:        opts.Metrics,
		log:            log.WithField("component", "auth"),
		revokeOnRotate: opts.RevokeRefreshOnRotate,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		s.metrics.AuthEvent("register", "duplicate")
		return nil, ErrDuplicateIdentity
	}

	dob, err := validator.ParseDate(req.DateOfBirth)
	if err != nil {
		return nil, ErrInvalidDate
	}

	hash, err := s.users.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	profile := &domain.Profile{
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		DateOfBirth:        dob,
		Gender:             domain.Gender(req.Gender),
		Height:             req.Height,
		Weight:             req.Weight,
		BloodType:          req.BloodType,
		MedicalConditions:  nonNil(req.MedicalConditions),
		Allergies:          nonNil(req.Allergies),
		CurrentMedications: nonNil(req.CurrentMedications),
		EmergencyContact:   toEmergencyContact(req.EmergencyContact),
	}

	if err := s.users.Create(ctx, user, profile); err != nil {
		// lost a race against a concurrent registration
		if errors.Is(err, repository.ErrDuplicateKey) {
			s.metrics.AuthEvent("register", "duplicate")
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	session, err := s.newSession(user, profile)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent("register", "success")
	s.log.WithField("user_id", user.ID).Info("user registered")
	return session, nil
}

// Login returns ErrInvalidCredentials for both an unknown username and a
// wrong password. The unknown-user path still runs a bcrypt comparison.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	username := strings.TrimSpace(req.Username)

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.users.VerifyPassword(nil, req.Password)
			s.loginFailed(username, "unknown_user")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.users.VerifyPassword(user, req.Password) {
		s.loginFailed(username, "wrong_password")
		return nil, ErrInvalidCredentials
	}

	profile, err := s.profileOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	session, err := s.newSession(user, profile)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent("login", "success")
	s.log.WithField("user_id", user.ID).Info("user logged in")
	return session, nil
}

// Refresh exchanges a refresh token for a new pair. The revocation check
// runs before verification.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, ErrRefreshRequired
	}

	revoked, err := s.revoked.IsRevoked(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("check refresh revocation: %w", err)
	}
	if revoked {
		s.metrics.AuthEvent("refresh", "revoked")
		return nil, ErrTokenRevoked
	}

	v := s.tokens.VerifyRefresh(refreshToken)
	if !v.OK() {
		s.metrics.AuthEvent("refresh", "invalid")
		s.log.WithError(v.Err).WithField("outcome", v.Outcome.String()).Info("refresh token rejected")
		return nil, ErrInvalidRefresh
	}

	pair, err := s.tokens.IssuePair(v.Claims.Identity)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	csrf, err := s.tokens.IssueCSRFToken(v.Claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("issue csrf token: %w", err)
	}

	if s.revokeOnRotate {
		if err := s.revoked.Revoke(ctx, refreshToken); err != nil {
			return nil, fmt.Errorf("revoke rotated refresh token: %w", err)
		}
	}

	s.metrics.AuthEvent("refresh", "success")
	return &RefreshResult{Tokens: pair, CSRFToken: csrf}, nil
}

// Logout revokes the presented tokens. Empty tokens are skipped and revoking
// an already revoked token succeeds.
func (s *Service) Logout(ctx context.Context, userID, accessToken, refreshToken string) error {
	for _, token := range []string{accessToken, refreshToken} {
		if token == "" {
			continue
		}
		if err := s.revoked.Revoke(ctx, token); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}

	s.metrics.AuthEvent("logout", "success")
	s.log.WithField("user_id", userID).Info("user logged out")
	return nil
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (*domain.User, *domain.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	profile, err := s.profileOf(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, profile, nil
}

func (s *Service) IssueCSRFToken(userID string) (string, error) {
	return s.tokens.IssueCSRFToken(userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.Profile, error) {
	profile, err := s.users.GetProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if req.FirstName != nil {
		profile.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		profile.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.DateOfBirth != nil {
		dob, err := validator.ParseDate(*req.DateOfBirth)
		if err != nil {
			return nil, ErrInvalidDate
		}
		profile.DateOfBirth = dob
	}
	if req.Gender != nil {
		profile.Gender = domain.Gender(*req.Gender)
	}
	if req.Height != nil {
		profile.Height = req.Height
	}
	if req.Weight != nil {
		profile.Weight = req.Weight
	}
	if req.BloodType != nil {
		profile.BloodType = *req.BloodType
	}
	if req.MedicalConditions != nil {
		profile.MedicalConditions = req.MedicalConditions
	}
	if req.Allergies != nil {
		profile.Allergies = req.Allergies
	}
	if req.CurrentMedications != nil {
		profile.CurrentMedications = req.CurrentMedications
	}
	if req.EmergencyContact != nil {
		profile.EmergencyContact = toEmergencyContact(req.EmergencyContact)
	}

	if err := s.users.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

// ChangePassword stores a new hash after checking the current password and
// revokes the access token used for the request.
func (s *Service) ChangePassword(ctx context.Context, userID, accessToken string, req ChangePasswordRequest) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if !s.users.VerifyPassword(user, req.CurrentPassword) {
		s.metrics.AuthEvent("change_password", "invalid_credentials")
		return ErrInvalidCredentials
	}

	hash, err := s.users.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if accessToken != "" {
		if err := s.revoked.Revoke(ctx, accessToken); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}

	s.metrics.AuthEvent("change_password", "success")
	s.log.WithField("user_id", user.ID).Info("password changed")
	return nil
}

func (s *Service) newSession(user *domain.User, profile *domain.Profile) (*Session, error) {
	id := jwt.Identity{UserID: user.ID, Username: user.Username}
	if profile != nil {
		id.ProfileID = profile.ID
	}

	pair, err := s.tokens.IssuePair(id)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	csrf, err := s.tokens.IssueCSRFToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue csrf token: %w", err)
	}

	return &Session{User: user, Profile: profile, Tokens: pair, CSRFToken: csrf}, nil
}

func (s *Service) profileOf(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.users.GetProfileByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

func (s *Service) loginFailed(username, reason string) {
	s.metrics.AuthEvent("login", "invalid_credentials")
	s.log.WithFields(logrus.Fields{
		"username": username,
		"reason":   reason,
	}).Warn("login failed")
}

func toEmergencyContact(req *EmergencyContactRequest) *domain.EmergencyContact {
	if req == nil {
		return nil
	}
	return &domain.EmergencyContact{
		Name:         strings.TrimSpace(req.Name),
		Relationship: strings.TrimSpace(req.Relationship),
		Phone:        strings.TrimSpace(req.Phone),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
