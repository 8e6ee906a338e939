package domain

import "time"

// RevokedToken marks a token as no longer acceptable. The token itself is
// never stored, only its hex SHA-256 digest. Rows are purged once they are
// older than the revocation retention window.
type RevokedToken struct {
	TokenHash string    `gorm:"primaryKey;size:64"`
	CreatedAt time.Time `gorm:"index;not null"`
}
