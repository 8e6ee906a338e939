package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"healthtrack/internal/domain"
	"healthtrack/internal/pkg/jwt"
	"healthtrack/internal/repository"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Mock User Repository implementing the interface
type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User, p *domain.Profile) error {
	args := m.Called(ctx, u, p)
	if args.Error(0) == nil {
		u.ID = "u-1"
		if p != nil {
			p.ID = "p-1"
			p.UserID = u.ID
		}
	}
	return args.Error(0)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, p *domain.Profile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return m.Called(ctx, userID, passwordHash).Error(0)
}

func (m *mockUserRepo) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(hash), err
}

func (m *mockUserRepo) VerifyPassword(u *domain.User, password string) bool {
	m.Called(u, password)
	if u == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Mock revocation store
type mockRevocations struct {
	mock.Mock
}

func (m *mockRevocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *mockRevocations) Revoke(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func newTokenService(t *testing.T) *jwt.Service {
	t.Helper()
	svc, err := jwt.New(jwt.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		CSRFSecret:    "csrf-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func newService(t *testing.T, opts Options) (*Service, *mockUserRepo, *mockRevocations, *jwt.Service) {
	t.Helper()
	users := new(mockUserRepo)
	revoked := new(mockRevocations)
	tokens := newTokenService(t)
	if opts.Logger == nil {
		opts.Logger, _ = test.NewNullLogger()
	}
	return NewService(users, tokens, revoked, opts), users, revoked, tokens
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func validRegisterRequest() RegisterRequest {
	return RegisterRequest{
		Username:    "alice",
		Email:       "a@x.io",
		Password:    "P@ssw0rd1",
		FirstName:   "Alice",
		LastName:    "Smith",
		DateOfBirth: "1990-04-12",
		Gender:      "female",
	}
}

func TestService_Register_Success(t *testing.T) {
	service, users, _, tokens := newService(t, Options{})

	users.On("ExistsByUsernameOrEmail", mock.Anything, "alice", "a@x.io").Return(false, nil)
	users.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	session, err := service.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)

	assert.Equal(t, "u-1", session.User.ID)
	assert.NotEqual(t, "P@ssw0rd1", session.User.PasswordHash)
	assert.Equal(t, []string{}, session.Profile.Allergies)
	assert.Equal(t, 1990, session.Profile.DateOfBirth.Year())

	v := tokens.VerifyAccess(session.Tokens.AccessToken)
	require.True(t, v.OK())
	assert.Equal(t, jwt.Identity{UserID: "u-1", Username: "alice", ProfileID: "p-1"}, v.Claims.Identity)
	assert.True(t, tokens.VerifyRefresh(session.Tokens.RefreshToken).OK())
	assert.Equal(t, "u-1", tokens.VerifyCSRF(session.CSRFToken).Claims.UserID)

	users.AssertExpectations(t)
}

func TestService_Register_Duplicate(t *testing.T) {
	service, users, _, _ := newService(t, Options{})

	users.On("ExistsByUsernameOrEmail", mock.Anything, "alice", "a@x.io").Return(true, nil)

	_, err := service.Register(context.Background(), validRegisterRequest())
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Register_RacingDuplicate(t *testing.T) {
	service, users, _, _ := newService(t, Options{})

	users.On("ExistsByUsernameOrEmail", mock.Anything, "alice", "a@x.io").Return(false, nil)
	users.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("create user: %w", repository.ErrDuplicateKey))

	_, err := service.Register(context.Background(), validRegisterRequest())
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
}

func TestService_Login_Success(t *testing.T) {
	service, users, _, tokens := newService(t, Options{})

	user := &domain.User{ID: "u-1", Username: "alice", PasswordHash: hashed(t, "P@ssw0rd1")}
	users.On("FindByUsername", mock.Anything, "alice").Return(user, nil)
	users.On("VerifyPassword", user, "P@ssw0rd1").Return()
	users.On("GetProfileByUserID", mock.Anything, "u-1").Return(&domain.Profile{ID: "p-1", UserID: "u-1"}, nil)

	session, err := service.Login(context.Background(), LoginRequest{Username: "alice", Password: "P@ssw0rd1"})
	require.NoError(t, err)

	v := tokens.VerifyAccess(session.Tokens.AccessToken)
	require.True(t, v.OK())
	assert.Equal(t, "u-1", v.Claims.UserID)
	assert.Equal(t, "p-1", v.Claims.ProfileID)
}

func TestService_Login_FailuresAreIndistinguishable(t *testing.T) {
	service, users, _, _ := newService(t, Options{})

	user := &domain.User{ID: "u-1", Username: "alice", PasswordHash: hashed(t, "P@ssw0rd1")}
	users.On("FindByUsername", mock.Anything, "alice").Return(user, nil)
	users.On("FindByUsername", mock.Anything, "bob").Return(nil, gorm.ErrRecordNotFound)
	users.On("VerifyPassword", mock.Anything, mock.Anything).Return()

	_, wrongPassword := service.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong"})
	_, unknownUser := service.Login(context.Background(), LoginRequest{Username: "bob", Password: "P@ssw0rd1"})

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword, unknownUser)

	// unknown user still pays for a bcrypt comparison
	users.AssertCalled(t, "VerifyPassword", (*domain.User)(nil), "P@ssw0rd1")
}

func TestService_Login_StoreFailure(t *testing.T) {
	service, users, _, _ := newService(t, Options{})
	users.On("FindByUsername", mock.Anything, "alice").Return(nil, errors.New("connection refused"))

	_, err := service.Login(context.Background(), LoginRequest{Username: "alice", Password: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Refresh(t *testing.T) {
	service, _, revoked, tokens := newService(t, Options{})
	ctx := context.Background()

	pair, err := tokens.IssuePair(jwt.Identity{UserID: "u-1", Username: "alice", ProfileID: "p-1"})
	require.NoError(t, err)

	revoked.On("IsRevoked", ctx, pair.RefreshToken).Return(false, nil)

	result, err := service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	v := tokens.VerifyAccess(result.Tokens.AccessToken)
	require.True(t, v.OK())
	assert.Equal(t, "p-1", v.Claims.ProfileID)
	assert.NotEqual(t, pair.RefreshToken, result.Tokens.RefreshToken)
	assert.NotEmpty(t, result.CSRFToken)
	revoked.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
}

func TestService_Refresh_RevokeOnRotate(t *testing.T) {
	service, _, revoked, tokens := newService(t, Options{RevokeRefreshOnRotate: true})
	ctx := context.Background()

	pair, err := tokens.IssuePair(jwt.Identity{UserID: "u-1"})
	require.NoError(t, err)

	revoked.On("IsRevoked", ctx, pair.RefreshToken).Return(false, nil)
	revoked.On("Revoke", ctx, pair.RefreshToken).Return(nil)

	_, err = service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	revoked.AssertExpectations(t)
}

func TestService_Refresh_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		service, _, _, _ := newService(t, Options{})
		_, err := service.Refresh(ctx, "")
		assert.ErrorIs(t, err, ErrRefreshRequired)
	})

	t.Run("revoked", func(t *testing.T) {
		service, _, revoked, tokens := newService(t, Options{})
		pair, err := tokens.IssuePair(jwt.Identity{UserID: "u-1"})
		require.NoError(t, err)
		revoked.On("IsRevoked", ctx, pair.RefreshToken).Return(true, nil)

		result, err := service.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
		assert.Nil(t, result)
	})

	t.Run("access token", func(t *testing.T) {
		service, _, revoked, tokens := newService(t, Options{})
		pair, err := tokens.IssuePair(jwt.Identity{UserID: "u-1"})
		require.NoError(t, err)
		revoked.On("IsRevoked", ctx, pair.AccessToken).Return(false, nil)

		_, err = service.Refresh(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("store failure", func(t *testing.T) {
		service, _, revoked, _ := newService(t, Options{})
		revoked.On("IsRevoked", ctx, "tok").Return(false, errors.New("connection refused"))

		_, err := service.Refresh(ctx, "tok")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidRefresh)
	})
}

func TestService_Logout(t *testing.T) {
	service, _, revoked, _ := newService(t, Options{})
	ctx := context.Background()

	revoked.On("Revoke", ctx, "access").Return(nil).Twice()
	revoked.On("Revoke", ctx, "refresh").Return(nil).Once()

	require.NoError(t, service.Logout(ctx, "u-1", "access", "refresh"))
	require.NoError(t, service.Logout(ctx, "u-1", "access", ""))
	revoked.AssertExpectations(t)
}

func TestService_CurrentUser(t *testing.T) {
	service, users, _, _ := newService(t, Options{})
	ctx := context.Background()

	users.On("FindByID", ctx, "u-1").Return(&domain.User{ID: "u-1"}, nil)
	users.On("GetProfileByUserID", ctx, "u-1").Return(nil, gorm.ErrRecordNotFound)
	users.On("FindByID", ctx, "u-2").Return(nil, gorm.ErrRecordNotFound)

	user, profile, err := service.CurrentUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Nil(t, profile)

	_, _, err = service.CurrentUser(ctx, "u-2")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_UpdateProfile(t *testing.T) {
	service, users, _, _ := newService(t, Options{})
	ctx := context.Background()

	existing := &domain.Profile{ID: "p-1", UserID: "u-1", FirstName: "Alice", LastName: "Smith"}
	users.On("GetProfileByUserID", ctx, "u-1").Return(existing, nil)
	users.On("UpdateProfile", ctx, existing).Return(nil)

	height := 165.0
	last := "Jones"
	profile, err := service.UpdateProfile(ctx, "u-1", UpdateProfileRequest{Height: &height, LastName: &last})
	require.NoError(t, err)

	assert.Equal(t, "Alice", profile.FirstName)
	assert.Equal(t, "Jones", profile.LastName)
	assert.Equal(t, 165.0, *profile.Height)
}

func TestService_ChangePassword(t *testing.T) {
	service, users, revoked, _ := newService(t, Options{})
	ctx := context.Background()

	user := &domain.User{ID: "u-1", PasswordHash: hashed(t, "P@ssw0rd1")}
	users.On("FindByID", ctx, "u-1").Return(user, nil)
	users.On("VerifyPassword", user, mock.Anything).Return()
	users.On("UpdatePassword", ctx, "u-1", mock.AnythingOfType("string")).Return(nil).Once()
	revoked.On("Revoke", ctx, "access").Return(nil).Once()

	err := service.ChangePassword(ctx, "u-1", "access", ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "N3w!passw0rd"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = service.ChangePassword(ctx, "u-1", "access", ChangePasswordRequest{CurrentPassword: "P@ssw0rd1", NewPassword: "N3w!passw0rd"})
	require.NoError(t, err)

	users.AssertExpectations(t)
	revoked.AssertExpectations(t)
}
