package repository

import (
	"context"
	"fmt"
	"sync"

	"healthtrack/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserRepository struct {
	db   *gorm.DB
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

type UserOption func(*UserRepository)

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) UserOption {
	return func(r *UserRepository) { r.cost = cost }
}

func NewUserRepository(db *gorm.DB, opts ...UserOption) *UserRepository {
	r := &UserRepository{db: db, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create inserts the user and its profile in one transaction. A unique
// constraint hit on username or email is reported as ErrDuplicateKey.
func (r *UserRepository) Create(ctx context.Context, u *domain.User, p *domain.Profile) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if p != nil && p.ID == "" {
		p.ID = uuid.NewString()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		if p == nil {
			return nil
		}
		p.UserID = u.ID
		return tx.Create(p).Error
	})
	if IsUniqueViolation(err) {
		return fmt.Errorf("create user %q: %w", u.Username, ErrDuplicateKey)
	}
	return err
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	tx := r.db.WithContext(ctx).Where("username = ?", username).First(&u)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	tx := r.db.WithContext(ctx).Where("id = ?", id).First(&u)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &u, nil
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	tx := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &p, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, p *domain.Profile) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Update("password_hash", passwordHash)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserRepository) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares password against the user's hash. A nil user is
// compared against a throwaway hash so unknown usernames cost the same time.
func (r *UserRepository) VerifyPassword(u *domain.User, password string) bool {
	if u == nil {
		_ = bcrypt.CompareHashAndPassword(r.dummy(), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (r *UserRepository) dummy() []byte {
	r.dummyOnce.Do(func() {
		r.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), r.cost)
	})
	return r.dummyHash
}
