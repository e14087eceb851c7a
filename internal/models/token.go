package models

import "time"

// Token is one issued session token. Rows are never deleted by the
// application; revocation flips Revoked and the flag never goes back.
type Token struct {
	ID        string    `gorm:"primaryKey;size:64"` // UUID
	UserID    uint      `gorm:"index;not null"`
	Token     string    `gorm:"size:1024;uniqueIndex;not null"` // raw signed token
	IssuedAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"` // always equals the expiry embedded in Token
	Revoked   bool      `gorm:"index;not null"`
	CreatedAt time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
