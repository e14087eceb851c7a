package auth

import (
	"context"
	"errors"

	"socialboard/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserStore is the read-only contract the auth core needs from the user
// store. The core never mutates user records.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// GormUserStore looks users up in the main database.
type GormUserStore struct {
	DB *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{DB: db}
}

// FindByUsername matches usernames case-insensitively. A missing row is
// ErrUserNotFound; anything else is a DataError.
func (s *GormUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, dataErr("find user", err)
	}
	return &user, nil
}

// CredentialVerifier checks a presented username/password pair against the
// stored bcrypt hash.
type CredentialVerifier struct {
	users UserStore
}

func NewCredentialVerifier(users UserStore) *CredentialVerifier {
	return &CredentialVerifier{users: users}
}

// Verify returns the matching user or ErrInvalidCredentials. An unknown
// username yields the same error as a wrong password so responses cannot
// be used to enumerate accounts. Store failures pass through as DataError.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := v.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
