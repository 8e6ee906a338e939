package repository

import (
	"context"
	"time"

	"healthtrack/internal/domain"
	"healthtrack/internal/revocation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevokedTokenRepository is the SQL revocation store. Rows are keyed by
// revocation.Digest of the token.
type RevokedTokenRepository struct {
	db        *gorm.DB
	retention time.Duration
	now       func() time.Time
}

func NewRevokedTokenRepository(db *gorm.DB, retention time.Duration) *RevokedTokenRepository {
	return &RevokedTokenRepository{db: db, retention: retention, now: time.Now}
}

// IsRevoked ignores rows older than the retention window, so a record is
// treated as gone even before the sweeper deletes it.
func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.RevokedToken{}).
		Where("token_hash = ? AND created_at > ?", revocation.Digest(token), r.now().UTC().Add(-r.retention)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Revoke inserts the token if absent. Losing a race against a concurrent
// insert of the same token is success.
func (r *RevokedTokenRepository) Revoke(ctx context.Context, token string) error {
	row := domain.RevokedToken{TokenHash: revocation.Digest(token), CreatedAt: r.now().UTC()}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if IsUniqueViolation(err) {
		return nil
	}
	return err
}

// PurgeExpired deletes records created more than olderThan ago and returns
// how many were removed.
func (r *RevokedTokenRepository) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("created_at <= ?", r.now().UTC().Add(-olderThan)).
		Delete(&domain.RevokedToken{})
	return tx.RowsAffected, tx.Error
}
