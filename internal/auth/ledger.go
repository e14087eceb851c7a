package auth

import (
	"context"
	"errors"

	"socialboard/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenStore is the ledger of issued session tokens. It exists because a
// bare signed token cannot be revoked before its natural expiry; the ledger
// can. Records are never deleted here, only flagged.
//
// Mutations to a user's token set go through RevokeAllActive and Persist
// only, and login always orders them revoke-before-persist.
type TokenStore interface {
	// RevokeAllActive marks every non-revoked record for the user as
	// revoked and returns how many it flipped. Idempotent: a second call
	// revokes zero records.
	RevokeAllActive(ctx context.Context, userID uint) (int64, error)
	// Persist inserts a new record, assigning an ID if empty.
	Persist(ctx context.Context, rec *models.Token) error
	// IsActive reports whether this exact token string exists and is not
	// revoked. A token the ledger never saw is inactive.
	IsActive(ctx context.Context, raw string) (bool, error)
	// FindByToken returns the record for the exact token string, or
	// ErrTokenNotFound.
	FindByToken(ctx context.Context, raw string) (*models.Token, error)
	// InTx runs fn against a store view whose writes commit together when
	// the backend supports cheap transactions; otherwise fn runs against
	// the store itself and only the call order guarantees hold.
	InTx(ctx context.Context, fn func(TokenStore) error) error
}

// GormTokenStore keeps the ledger in the main database.
type GormTokenStore struct {
	DB *gorm.DB
}

func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{DB: db}
}

func (s *GormTokenStore) RevokeAllActive(ctx context.Context, userID uint) (int64, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.Token{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true)
	if res.Error != nil {
		return 0, dataErr("revoke tokens", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormTokenStore) Persist(ctx context.Context, rec *models.Token) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := s.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return dataErr("persist token", err)
	}
	return nil
}

func (s *GormTokenStore) IsActive(ctx context.Context, raw string) (bool, error) {
	rec, err := s.FindByToken(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return false, nil
		}
		return false, err
	}
	return !rec.Revoked, nil
}

func (s *GormTokenStore) FindByToken(ctx context.Context, raw string) (*models.Token, error) {
	var rec models.Token
	err := s.DB.WithContext(ctx).Where("token = ?", raw).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, dataErr("find token", err)
	}
	return &rec, nil
}

// InTx wraps fn in a database transaction, closing the revoke/persist
// window entirely for this backend.
func (s *GormTokenStore) InTx(ctx context.Context, fn func(TokenStore) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormTokenStore{DB: tx})
	})
}
