package auth

import (
	"context"
	"fmt"
	"sync"

	"socialboard/internal/models"
)

// Manager orchestrates login, logout and request-time verification over the
// credential verifier, the signer and the token ledger.
//
// Safe under concurrent use. Operations for different users never contend;
// conflicting operations for the same user serialize on a per-user lock, so
// two racing logins resolve to exactly one active token (last persist wins,
// the loser's revoke is a harmless no-op).
type Manager struct {
	users  UserStore
	creds  *CredentialVerifier
	signer *Signer
	tokens TokenStore

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewManager(users UserStore, signer *Signer, tokens TokenStore) *Manager {
	return &Manager{
		users:  users,
		creds:  NewCredentialVerifier(users),
		signer: signer,
		tokens: tokens,
		locks:  make(map[uint]*sync.Mutex),
	}
}

func (m *Manager) userLock(userID uint) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

// Login verifies the credentials, revokes every previously issued token for
// the user (including ones in use on other devices), mints a fresh token and
// persists its ledger record with the exact expiry the token carries. The
// write order is fixed revoke-before-persist; on the gorm ledger both writes
// commit in one transaction.
func (m *Manager) Login(ctx context.Context, username, password string) (string, error) {
	user, err := m.creds.Verify(ctx, username, password)
	if err != nil {
		return "", err
	}

	l := m.userLock(user.ID)
	l.Lock()
	defer l.Unlock()

	var raw string
	err = m.tokens.InTx(ctx, func(ts TokenStore) error {
		if _, err := ts.RevokeAllActive(ctx, user.ID); err != nil {
			return err
		}
		minted, err := m.signer.Mint(user.ID, user.Username)
		if err != nil {
			return err
		}
		rec := &models.Token{
			UserID:    user.ID,
			Token:     minted.Token,
			IssuedAt:  minted.IssuedAt,
			ExpiresAt: minted.ExpiresAt,
			Revoked:   false,
		}
		if err := ts.Persist(ctx, rec); err != nil {
			return err
		}
		raw = minted.Token
		return nil
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// Logout revokes every active token for the username. Logging out with no
// active tokens succeeds silently; an unknown username is ErrUserNotFound.
func (m *Manager) Logout(ctx context.Context, username string) error {
	user, err := m.users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}

	l := m.userLock(user.ID)
	l.Lock()
	defer l.Unlock()

	_, err = m.tokens.RevokeAllActive(ctx, user.ID)
	return err
}

// Verify checks signature and expiry, then confirms the token is still
// active in the ledger. Expiry is computed lazily here; there is no
// background sweep. Every failure class is IsUnauthenticated to callers,
// except store faults, which stay DataError.
func (m *Manager) Verify(ctx context.Context, raw string) (*SessionClaims, error) {
	claims, err := m.signer.Decode(raw)
	if err != nil {
		return nil, err
	}

	active, err := m.tokens.IsActive(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// RefreshToken is declared for contract stability but intentionally not
// implemented; there is no refresh protocol in this service.
func (m *Manager) RefreshToken(ctx context.Context, oldToken string) (string, error) {
	return "", fmt.Errorf("refresh token: %w", ErrNotImplemented)
}
